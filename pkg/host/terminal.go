package host

import (
	"sync"

	"github.com/core-tools/hsu-launcher/pkg/logging"

	"github.com/gdamore/tcell/v2"
)

// Terminal covers the terminal with a full-screen status surface. Esc, q or
// Ctrl+C close it the way a user would close a window.
type Terminal struct {
	screen tcell.Screen
	title  string
	logger logging.Logger

	mutex     sync.Mutex
	snapshot  Snapshot
	callbacks []func()
	done      chan struct{}
}

func NewTerminal(title string, logger logging.Logger) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return newTerminalWithScreen(screen, title, logger), nil
}

func newTerminalWithScreen(screen tcell.Screen, title string, logger logging.Logger) *Terminal {
	return &Terminal{
		screen:   screen,
		title:    title,
		logger:   logger,
		snapshot: Snapshot{State: WindowStateNormal, Style: WindowStyleBordered},
		done:     make(chan struct{}),
	}
}

func (t *Terminal) Show() error {
	t.mutex.Lock()
	if t.snapshot.Shown {
		t.mutex.Unlock()
		return nil
	}
	if err := t.screen.Init(); err != nil {
		t.mutex.Unlock()
		return err
	}
	t.screen.HideCursor()
	t.snapshot.Shown = true
	t.drawLocked()
	t.mutex.Unlock()

	go t.eventLoop()
	return nil
}

func (t *Terminal) eventLoop() {
	defer close(t.done)
	for {
		ev := t.screen.PollEvent()
		switch ev := ev.(type) {
		case nil:
			// Fini was called
			return
		case *tcell.EventResize:
			t.mutex.Lock()
			if !t.snapshot.Closed {
				t.screen.Sync()
				t.drawLocked()
			}
			t.mutex.Unlock()
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || (ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
				t.logger.Infof("Host surface closed by user")
				t.userClose()
				return
			}
		}
	}
}

func (t *Terminal) userClose() {
	t.mutex.Lock()
	if t.snapshot.Closed {
		t.mutex.Unlock()
		return
	}
	t.snapshot.Closed = true
	callbacks := append([]func(){}, t.callbacks...)
	t.screen.Fini()
	t.mutex.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}

func (t *Terminal) SetTopmost(topmost bool) {
	t.update(func(s *Snapshot) { s.Topmost = topmost })
}

func (t *Terminal) SetWindowState(state WindowState) {
	t.update(func(s *Snapshot) { s.State = state })
}

func (t *Terminal) SetWindowStyle(style WindowStyle) {
	t.update(func(s *Snapshot) { s.Style = style })
}

func (t *Terminal) SetStatus(text string) {
	t.update(func(s *Snapshot) { s.Status = text })
}

func (t *Terminal) update(apply func(s *Snapshot)) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	apply(&t.snapshot)
	if t.snapshot.Shown && !t.snapshot.Closed {
		t.drawLocked()
	}
}

func (t *Terminal) OnClosed(callback func()) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.callbacks = append(t.callbacks, callback)
}

// Close tears the surface down without firing OnClosed callbacks
func (t *Terminal) Close() {
	t.mutex.Lock()
	if t.snapshot.Closed || !t.snapshot.Shown {
		t.snapshot.Closed = true
		t.mutex.Unlock()
		return
	}
	t.snapshot.Closed = true
	t.screen.Fini()
	t.mutex.Unlock()

	<-t.done
}

func (t *Terminal) Snapshot() Snapshot {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.snapshot
}

func (t *Terminal) drawLocked() {
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
	t.screen.SetStyle(style)
	t.screen.Clear()

	width, height := t.screen.Size()
	if t.snapshot.Style == WindowStyleBordered {
		drawBox(t.screen, width, height, style)
	}

	drawCentered(t.screen, width, height/2-1, t.title, style.Bold(true))
	drawCentered(t.screen, width, height/2+1, t.snapshot.Status, style)
	drawCentered(t.screen, width, height-2, "Esc to stop", style.Dim(true))

	t.screen.Show()
}

func drawCentered(screen tcell.Screen, width, y int, text string, style tcell.Style) {
	runes := []rune(text)
	x := (width - len(runes)) / 2
	if x < 0 {
		x = 0
	}
	for i, r := range runes {
		if x+i >= width {
			break
		}
		screen.SetContent(x+i, y, r, nil, style)
	}
}

func drawBox(screen tcell.Screen, width, height int, style tcell.Style) {
	if width < 2 || height < 2 {
		return
	}
	for x := 1; x < width-1; x++ {
		screen.SetContent(x, 0, tcell.RuneHLine, nil, style)
		screen.SetContent(x, height-1, tcell.RuneHLine, nil, style)
	}
	for y := 1; y < height-1; y++ {
		screen.SetContent(0, y, tcell.RuneVLine, nil, style)
		screen.SetContent(width-1, y, tcell.RuneVLine, nil, style)
	}
	screen.SetContent(0, 0, tcell.RuneULCorner, nil, style)
	screen.SetContent(width-1, 0, tcell.RuneURCorner, nil, style)
	screen.SetContent(0, height-1, tcell.RuneLLCorner, nil, style)
	screen.SetContent(width-1, height-1, tcell.RuneLRCorner, nil, style)
}
