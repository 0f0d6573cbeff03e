package process

// WindowAPI is the native window manager surface used for foregrounding and graceful close
type WindowAPI interface {
	MainWindow(pid int) WindowHandle
	BringToForeground(hwnd WindowHandle) bool
	RequestClose(hwnd WindowHandle) error
}
