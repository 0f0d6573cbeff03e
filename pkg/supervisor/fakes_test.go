package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/core-tools/hsu-launcher/pkg/host"
	"github.com/core-tools/hsu-launcher/pkg/launcher"
	"github.com/core-tools/hsu-launcher/pkg/logging"
	"github.com/core-tools/hsu-launcher/pkg/process"
)

type fakeHandle struct {
	pid  int
	name string

	mutex        sync.Mutex
	exited       bool
	exitedCh     chan struct{}
	hasExitedErr error
	window       process.WindowHandle
	exitOnClose  bool
	exitOnKill   bool
	closeCalls   int
	killCalls    int
	releaseCalls int
}

func newFakeHandle(pid int, name string) *fakeHandle {
	return &fakeHandle{
		pid:      pid,
		name:     name,
		exitedCh: make(chan struct{}),
	}
}

func (h *fakeHandle) PID() int     { return h.pid }
func (h *fakeHandle) Name() string { return h.name }

func (h *fakeHandle) HasExited() (bool, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.exited, h.hasExitedErr
}

func (h *fakeHandle) Refresh() error { return nil }

func (h *fakeHandle) MainWindow() process.WindowHandle {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.window
}

func (h *fakeHandle) CloseMainWindow() (bool, error) {
	h.mutex.Lock()
	h.closeCalls++
	exit := h.exitOnClose
	h.mutex.Unlock()

	if exit {
		h.markExited()
	}
	return true, nil
}

func (h *fakeHandle) Kill() error {
	h.mutex.Lock()
	h.killCalls++
	exit := h.exitOnKill
	h.mutex.Unlock()

	if exit {
		h.markExited()
	}
	return nil
}

func (h *fakeHandle) WaitForExit(timeout time.Duration) (bool, error) {
	select {
	case <-h.exitedCh:
		return true, nil
	case <-time.After(timeout):
		return false, nil
	}
}

func (h *fakeHandle) Release() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.releaseCalls++
}

func (h *fakeHandle) markExited() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if !h.exited {
		h.exited = true
		close(h.exitedCh)
	}
}

func (h *fakeHandle) counts() (closeCalls, killCalls, releaseCalls int) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.closeCalls, h.killCalls, h.releaseCalls
}

// fakeProcesses returns its live handles once more than hiddenPolls queries were made
type fakeProcesses struct {
	mutex       sync.Mutex
	handles     []*fakeHandle
	hiddenPolls int
	failPolls   int
	calls       int
	names       []string
}

func (p *fakeProcesses) FindByName(ctx context.Context, name string) ([]process.Handle, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.calls++
	p.names = append(p.names, name)
	if p.calls <= p.failPolls {
		return nil, context.DeadlineExceeded
	}
	if p.calls <= p.hiddenPolls {
		return nil, nil
	}

	var result []process.Handle
	for _, h := range p.handles {
		if exited, _ := h.HasExited(); !exited {
			result = append(result, h)
		}
	}
	return result, nil
}

func (p *fakeProcesses) add(h *fakeHandle) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.handles = append(p.handles, h)
}

func (p *fakeProcesses) callCount() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.calls
}

type fakeWindows struct {
	mutex        sync.Mutex
	foreground   []process.WindowHandle
	foregroundOK bool
}

func (w *fakeWindows) MainWindow(pid int) process.WindowHandle { return 0 }

func (w *fakeWindows) BringToForeground(hwnd process.WindowHandle) bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.foreground = append(w.foreground, hwnd)
	return w.foregroundOK
}

func (w *fakeWindows) RequestClose(hwnd process.WindowHandle) error { return nil }

func (w *fakeWindows) foregroundCalls() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return len(w.foreground)
}

type recordingService struct {
	mutex    sync.Mutex
	ready    int
	stopping int
	statuses []string
}

func (s *recordingService) Ready() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.ready++
}

func (s *recordingService) Stopping() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stopping++
}

func (s *recordingService) Status(text string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.statuses = append(s.statuses, text)
}

func testOptions() Options {
	return Options{
		DiscoveryInterval: 10 * time.Millisecond,
		ProgressInterval:  time.Second,
		MonitorInterval:   10 * time.Millisecond,
		ExitGracePeriod:   20 * time.Millisecond,
		GracefulTimeout:   100 * time.Millisecond,
		KillTimeout:       50 * time.Millisecond,
	}
}

type harness struct {
	options   Options
	state     *SharedState
	processes *fakeProcesses
	windows   *fakeWindows
	host      *host.Headless
	metrics   *Metrics
	logger    logging.Logger
}

func newHarness(options Options) *harness {
	logger := logging.NewNopLogger()
	return &harness{
		options:   options,
		state:     NewSharedState(),
		processes: &fakeProcesses{},
		windows:   &fakeWindows{foregroundOK: true},
		host:      host.NewHeadless(logger),
		metrics:   NewMetrics(),
		logger:    logger,
	}
}

func (h *harness) foreground() *foregroundHandoff {
	return &foregroundHandoff{windows: h.windows, metrics: h.metrics, logger: h.logger}
}

func (h *harness) discovery() *discovery {
	return &discovery{
		processes:  h.processes,
		host:       h.host,
		state:      h.state,
		foreground: h.foreground(),
		metrics:    h.metrics,
		options:    h.options,
		logger:     h.logger,
	}
}

func (h *harness) monitor() *exitMonitor {
	return &exitMonitor{
		discovery: h.discovery(),
		state:     h.state,
		options:   h.options,
		logger:    h.logger,
	}
}

func (h *harness) cleanup() *cleanup {
	return newCleanup(h.state, h.foreground(), nil, h.metrics, h.options, h.logger)
}

type recordingStarter struct {
	mutex    sync.Mutex
	commands []string
	err      error
}

func (s *recordingStarter) start(ctx context.Context, command string, logger logging.Logger) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.commands = append(s.commands, command)
	return s.err
}

func (s *recordingStarter) started() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.commands...)
}

func (h *harness) supervisor(starter *recordingStarter, service ServiceNotifier) *Supervisor {
	sup, err := NewSupervisor(h.options, Dependencies{
		Launcher:  launcher.NewLauncher(starter.start, h.logger),
		Processes: h.processes,
		Windows:   h.windows,
		Host:      h.host,
		Metrics:   h.metrics,
		Service:   service,
		Logger:    h.logger,
	})
	if err != nil {
		panic(err)
	}
	return sup
}
