package host

import (
	"sync"

	"github.com/core-tools/hsu-launcher/pkg/logging"
)

// Headless records presentation state without showing anything
type Headless struct {
	mutex     sync.Mutex
	snapshot  Snapshot
	callbacks []func()
	logger    logging.Logger
}

func NewHeadless(logger logging.Logger) *Headless {
	return &Headless{
		snapshot: Snapshot{State: WindowStateNormal, Style: WindowStyleBordered},
		logger:   logger,
	}
}

func (h *Headless) Show() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.snapshot.Shown = true
	h.logger.Debugf("Headless host shown, state: %s, style: %s, topmost: %t", h.snapshot.State, h.snapshot.Style, h.snapshot.Topmost)
	return nil
}

func (h *Headless) SetTopmost(topmost bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.snapshot.Topmost = topmost
}

func (h *Headless) SetWindowState(state WindowState) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.snapshot.State = state
}

func (h *Headless) SetWindowStyle(style WindowStyle) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.snapshot.Style = style
}

func (h *Headless) SetStatus(text string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.snapshot.Status = text
}

func (h *Headless) OnClosed(callback func()) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.callbacks = append(h.callbacks, callback)
}

func (h *Headless) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.snapshot.Closed = true
}

// UserClose simulates the user closing the surface
func (h *Headless) UserClose() {
	h.mutex.Lock()
	if h.snapshot.Closed {
		h.mutex.Unlock()
		return
	}
	h.snapshot.Closed = true
	callbacks := append([]func(){}, h.callbacks...)
	h.mutex.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}

func (h *Headless) Snapshot() Snapshot {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.snapshot
}
