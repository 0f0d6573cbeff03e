//go:build !windows

package process

import (
	"errors"
	"syscall"

	domainErrors "github.com/core-tools/hsu-launcher/pkg/errors"
)

// requestGracefulClose sends SIGTERM to the process; there is no window manager to ask
func requestGracefulClose(h *osHandle) (bool, error) {
	err := syscall.Kill(h.pid, syscall.SIGTERM)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, syscall.ESRCH):
		return false, nil
	}
	return false, domainErrors.NewProcessError("failed to send SIGTERM", err).WithContext("pid", h.pid)
}
