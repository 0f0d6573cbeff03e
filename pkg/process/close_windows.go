//go:build windows

package process

import (
	"sync"
	"time"

	domainErrors "github.com/core-tools/hsu-launcher/pkg/errors"

	"golang.org/x/sys/windows"
)

const ctrlBreakTimeout = time.Second

var (
	kernel32                     = windows.NewLazySystemDLL("kernel32.dll")
	procGenerateConsoleCtrlEvent = kernel32.NewProc("GenerateConsoleCtrlEvent")

	// Console control events are process-wide state
	consoleOperationLock sync.Mutex
)

// requestGracefulClose posts WM_CLOSE to the main window. Windowless processes get a
// Ctrl+Break, which only reaches console processes in their own process group.
func requestGracefulClose(h *osHandle) (bool, error) {
	if hwnd := h.MainWindow(); hwnd != 0 {
		if err := h.windows.RequestClose(hwnd); err != nil {
			return false, err
		}
		return true, nil
	}

	h.logger.Debugf("No main window, sending Ctrl+Break, PID: %d", h.pid)
	if err := sendCtrlBreak(h.pid); err != nil {
		return false, err
	}
	return true, nil
}

func sendCtrlBreak(pid int) error {
	consoleOperationLock.Lock()
	defer consoleOperationLock.Unlock()

	done := make(chan error, 1)
	go func() {
		r, _, err := procGenerateConsoleCtrlEvent.Call(uintptr(windows.CTRL_BREAK_EVENT), uintptr(pid))
		if r == 0 {
			done <- err
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			return domainErrors.NewProcessError("failed to send Ctrl+Break", err).WithContext("pid", pid)
		}
		return nil
	case <-time.After(ctrlBreakTimeout):
		return domainErrors.NewTimeoutError("timeout sending Ctrl+Break", nil).WithContext("pid", pid)
	}
}
