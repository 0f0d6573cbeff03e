package process

import (
	"context"
	"errors"
	"os"
	"slices"
	"sync"
	"time"

	domainErrors "github.com/core-tools/hsu-launcher/pkg/errors"
	"github.com/core-tools/hsu-launcher/pkg/logging"
	"github.com/core-tools/hsu-launcher/pkg/processstate"

	gopsprocess "github.com/shirou/gopsutil/v4/process"
)

// WindowHandle is a native top-level window handle, zero when there is none
type WindowHandle uintptr

// Handle is a reference to one OS process. Every query tolerates the process
// vanishing: HasExited reports true, MainWindow reports zero, Kill is a no-op.
type Handle interface {
	PID() int
	Name() string

	// HasExited reports whether the process is gone. PID reuse counts as gone.
	HasExited() (bool, error)
	// Refresh drops cached state such as the main window handle
	Refresh() error
	MainWindow() WindowHandle

	// CloseMainWindow asks the process to exit the way a user closing its window would.
	// It returns false when there was nothing to send the request to.
	CloseMainWindow() (bool, error)
	Kill() error
	// WaitForExit blocks up to timeout and reports whether the process exited
	WaitForExit(timeout time.Duration) (bool, error)

	Release()
}

const queryTimeout = 2 * time.Second

type osHandle struct {
	proc    *gopsprocess.Process
	pid     int
	name    string
	windows WindowAPI
	logger  logging.Logger

	mutex      sync.Mutex
	mainWindow WindowHandle
	windowRead bool
	released   bool
}

func newOSHandle(ctx context.Context, proc *gopsprocess.Process, name string, windows WindowAPI, logger logging.Logger) *osHandle {
	// Pin the create time so a recycled PID is not mistaken for the original process
	if _, err := proc.CreateTimeWithContext(ctx); err != nil {
		logger.Debugf("Create time unavailable, PID: %d, error: %v", proc.Pid, err)
	}
	return &osHandle{
		proc:    proc,
		pid:     int(proc.Pid),
		name:    name,
		windows: windows,
		logger:  logger,
	}
}

func (h *osHandle) PID() int {
	return h.pid
}

func (h *osHandle) Name() string {
	return h.name
}

func (h *osHandle) HasExited() (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	running, err := h.proc.IsRunningWithContext(ctx)
	if err != nil {
		if errors.Is(err, gopsprocess.ErrorProcessNotRunning) {
			return true, nil
		}
		// Fall back to a plain liveness probe before reporting a query failure
		alive, probeErr := processstate.IsProcessRunning(h.pid)
		if probeErr == nil && !alive {
			return true, nil
		}
		return false, domainErrors.NewProcessError("failed to query process state", err).WithContext("pid", h.pid)
	}
	if !running {
		return true, nil
	}

	statuses, err := h.proc.StatusWithContext(ctx)
	if err == nil && slices.Contains(statuses, gopsprocess.Zombie) {
		return true, nil
	}
	return false, nil
}

func (h *osHandle) Refresh() error {
	h.mutex.Lock()
	h.windowRead = false
	h.mainWindow = 0
	h.mutex.Unlock()

	exited, err := h.HasExited()
	if err != nil {
		return err
	}
	if exited {
		return domainErrors.NewProcessError("process has exited", nil).WithContext("pid", h.pid)
	}
	return nil
}

func (h *osHandle) MainWindow() WindowHandle {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.windowRead {
		h.mainWindow = h.windows.MainWindow(h.pid)
		h.windowRead = h.mainWindow != 0
	}
	return h.mainWindow
}

func (h *osHandle) CloseMainWindow() (bool, error) {
	return requestGracefulClose(h)
}

func (h *osHandle) Kill() error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := h.proc.KillWithContext(ctx); err != nil {
		if exited, _ := h.HasExited(); exited {
			return nil
		}
		return domainErrors.NewProcessError("failed to kill process", err).WithContext("pid", h.pid)
	}
	return nil
}

func (h *osHandle) WaitForExit(timeout time.Duration) (bool, error) {
	exited, err := processstate.WaitForExit(h.pid, timeout)
	if err != nil {
		// The process may have vanished between probes
		if gone, _ := h.HasExited(); gone {
			return true, nil
		}
		return false, err
	}
	return exited, nil
}

func (h *osHandle) Release() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.released {
		return
	}
	h.released = true
	h.mainWindow = 0
	h.logger.Debugf("Released process reference, PID: %d", h.pid)
}

// OSProcessAPI enumerates processes on the local machine
type OSProcessAPI interface {
	FindByName(ctx context.Context, name string) ([]Handle, error)
}

type osProcessAPI struct {
	windows WindowAPI
	logger  logging.Logger
}

func NewOSProcessAPI(windows WindowAPI, logger logging.Logger) OSProcessAPI {
	return &osProcessAPI{
		windows: windows,
		logger:  logger,
	}
}

// FindByName returns every live process whose name matches, in ascending PID order
func (a *osProcessAPI) FindByName(ctx context.Context, name string) ([]Handle, error) {
	procs, err := gopsprocess.ProcessesWithContext(ctx)
	if err != nil {
		return nil, domainErrors.NewProcessError("failed to enumerate processes", err).WithContext("process_name", name)
	}

	self := int32(os.Getpid())
	var matches []*gopsprocess.Process
	var names []string
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		procName, err := p.NameWithContext(ctx)
		if err != nil {
			// Processes exit while we iterate
			continue
		}
		if MatchName(procName, name) {
			matches = append(matches, p)
			names = append(names, procName)
		}
	}

	handles := make([]Handle, 0, len(matches))
	for i, p := range matches {
		handles = append(handles, newOSHandle(ctx, p, names[i], a.windows, a.logger))
	}
	slices.SortFunc(handles, func(a, b Handle) int { return a.PID() - b.PID() })
	return handles, nil
}
