//go:build !windows

package process

import (
	domainErrors "github.com/core-tools/hsu-launcher/pkg/errors"
)

// headlessWindowAPI is used where there is no native window manager API to talk to.
// Graceful close falls back to SIGTERM in requestGracefulClose.
type headlessWindowAPI struct{}

func NewWindowAPI() WindowAPI {
	return headlessWindowAPI{}
}

func (headlessWindowAPI) MainWindow(pid int) WindowHandle {
	return 0
}

func (headlessWindowAPI) BringToForeground(hwnd WindowHandle) bool {
	return false
}

func (headlessWindowAPI) RequestClose(hwnd WindowHandle) error {
	return domainErrors.NewUnsupportedError("window close requests are not supported on this platform", nil)
}
