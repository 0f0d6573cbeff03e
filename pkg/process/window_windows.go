//go:build windows

package process

import (
	"sync"

	domainErrors "github.com/core-tools/hsu-launcher/pkg/errors"

	"golang.org/x/sys/windows"
)

const (
	gwOwner   = 4
	wmClose   = 0x0010
	swRestore = 9
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procGetWindow           = user32.NewProc("GetWindow")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")
	procPostMessageW        = user32.NewProc("PostMessageW")
	procShowWindow          = user32.NewProc("ShowWindow")
	procIsIconic            = user32.NewProc("IsIconic")
)

// Callbacks created by NewCallback are never freed, so there is exactly one
// and searches are serialized through enumLock.
var (
	enumLock     sync.Mutex
	enumPID      uint32
	enumFound    windows.HWND
	enumCallback = windows.NewCallback(enumWindowsProc)
)

func enumWindowsProc(hwnd windows.HWND, _ uintptr) uintptr {
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil || pid != enumPID {
		return 1
	}
	if !windows.IsWindowVisible(hwnd) {
		return 1
	}
	if owner, _, _ := procGetWindow.Call(uintptr(hwnd), gwOwner); owner != 0 {
		return 1
	}
	enumFound = hwnd
	return 0
}

type nativeWindowAPI struct{}

func NewWindowAPI() WindowAPI {
	return nativeWindowAPI{}
}

// MainWindow returns the first visible unowned top-level window of pid
func (nativeWindowAPI) MainWindow(pid int) WindowHandle {
	enumLock.Lock()
	defer enumLock.Unlock()

	enumPID = uint32(pid)
	enumFound = 0
	// EnumWindows reports an error when the callback stops early
	_ = windows.EnumWindows(enumCallback, nil)
	return WindowHandle(enumFound)
}

func (nativeWindowAPI) BringToForeground(hwnd WindowHandle) bool {
	if hwnd == 0 {
		return false
	}
	if iconic, _, _ := procIsIconic.Call(uintptr(hwnd)); iconic != 0 {
		procShowWindow.Call(uintptr(hwnd), swRestore)
	}
	ok, _, _ := procSetForegroundWindow.Call(uintptr(hwnd))
	return ok != 0
}

func (nativeWindowAPI) RequestClose(hwnd WindowHandle) error {
	if hwnd == 0 {
		return domainErrors.NewValidationError("no window to close", nil)
	}
	ok, _, err := procPostMessageW.Call(uintptr(hwnd), wmClose, 0, 0)
	if ok == 0 {
		return domainErrors.NewProcessError("failed to post WM_CLOSE", err).WithContext("hwnd", uintptr(hwnd))
	}
	return nil
}
