//go:build !windows

package processstate

import (
	"errors"
	"os"
	"slices"
	"syscall"
	"time"

	domainErrors "github.com/core-tools/hsu-launcher/pkg/errors"

	gopsprocess "github.com/shirou/gopsutil/v4/process"
)

const waitPollInterval = 50 * time.Millisecond

// IsProcessRunning reports whether pid refers to a live process.
// A process owned by another user (EPERM) counts as running, an unreaped
// zombie does not.
func IsProcessRunning(pid int) (bool, error) {
	if pid <= 0 {
		return false, domainErrors.NewValidationError("invalid PID", nil).WithContext("pid", pid)
	}

	// FindProcess always succeeds on Unix, signal 0 does the actual probe
	process, err := os.FindProcess(pid)
	if err != nil {
		return false, err
	}

	err = process.Signal(syscall.Signal(0))
	switch {
	case err == nil, errors.Is(err, syscall.EPERM):
		// A zombie still accepts signal 0
		return !isZombie(pid), nil
	case errors.Is(err, os.ErrProcessDone), errors.Is(err, syscall.ESRCH):
		return false, nil
	}
	return false, domainErrors.NewProcessError("failed to probe process", err).WithContext("pid", pid)
}

// WaitForExit blocks until pid exits or timeout elapses and reports whether it exited
func WaitForExit(pid int, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		running, err := IsProcessRunning(pid)
		if err != nil {
			return false, err
		}
		if !running {
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		<-ticker.C
	}
}

func isZombie(pid int) bool {
	proc, err := gopsprocess.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	statuses, err := proc.Status()
	return err == nil && slices.Contains(statuses, gopsprocess.Zombie)
}
