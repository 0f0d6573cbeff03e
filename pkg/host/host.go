package host

type WindowState string

const (
	WindowStateNormal    WindowState = "normal"
	WindowStateMaximized WindowState = "maximized"
)

type WindowStyle string

const (
	WindowStyleBordered   WindowStyle = "bordered"
	WindowStyleBorderless WindowStyle = "borderless"
)

// Host is the surface the launcher presents while it supervises the target.
// OnClosed callbacks fire only when the user closes the surface, not on Close.
type Host interface {
	Show() error
	SetTopmost(topmost bool)
	SetWindowState(state WindowState)
	SetWindowStyle(style WindowStyle)
	SetStatus(text string)
	OnClosed(callback func())
	Close()
}

// Snapshot is the presentation state of a host
type Snapshot struct {
	Shown   bool
	Closed  bool
	Topmost bool
	State   WindowState
	Style   WindowStyle
	Status  string
}
