//go:build windows

package processstate

import (
	"errors"
	"time"

	domainErrors "github.com/core-tools/hsu-launcher/pkg/errors"

	"golang.org/x/sys/windows"
)

const stillActive = 259

// IsProcessRunning reports whether pid refers to a live process.
// A process we may not open (access denied) counts as running.
func IsProcessRunning(pid int) (bool, error) {
	if pid <= 0 {
		return false, domainErrors.NewValidationError("invalid PID", nil).WithContext("pid", pid)
	}

	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		switch {
		case errors.Is(err, windows.ERROR_INVALID_PARAMETER):
			return false, nil
		case errors.Is(err, windows.ERROR_ACCESS_DENIED):
			return true, nil
		}
		return false, domainErrors.NewProcessError("failed to open process", err).WithContext("pid", pid)
	}
	defer windows.CloseHandle(handle)

	var exitCode uint32
	if err := windows.GetExitCodeProcess(handle, &exitCode); err != nil {
		return false, domainErrors.NewProcessError("failed to query exit code", err).WithContext("pid", pid)
	}
	return exitCode == stillActive, nil
}

// WaitForExit blocks until pid exits or timeout elapses and reports whether it exited
func WaitForExit(pid int, timeout time.Duration) (bool, error) {
	if pid <= 0 {
		return false, domainErrors.NewValidationError("invalid PID", nil).WithContext("pid", pid)
	}

	handle, err := windows.OpenProcess(windows.SYNCHRONIZE, false, uint32(pid))
	if err != nil {
		if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
			return true, nil
		}
		return false, domainErrors.NewProcessError("failed to open process for wait", err).WithContext("pid", pid)
	}
	defer windows.CloseHandle(handle)

	event, err := windows.WaitForSingleObject(handle, uint32(timeout.Milliseconds()))
	if err != nil {
		return false, domainErrors.NewProcessError("wait for process failed", err).WithContext("pid", pid)
	}
	return event == windows.WAIT_OBJECT_0, nil
}
