package supervisor

import (
	"github.com/core-tools/hsu-launcher/pkg/logging"
	"github.com/core-tools/hsu-launcher/pkg/process"
)

// foregroundHandoff makes a best-effort attempt to put the target's main window in front.
// Failures are logged only.
type foregroundHandoff struct {
	windows process.WindowAPI
	metrics *Metrics
	logger  logging.Logger
}

func (f *foregroundHandoff) Foreground(h process.Handle) bool {
	hwnd := h.MainWindow()
	if hwnd == 0 {
		f.logger.Infof("Process '%s' with PID %d does not have a main window", h.Name(), h.PID())
		f.metrics.observeForeground("no_window")
		return false
	}

	if !f.windows.BringToForeground(hwnd) {
		f.logger.Warnf("Failed to set foreground window for process '%s' with PID %d", h.Name(), h.PID())
		f.metrics.observeForeground("failed")
		return false
	}

	f.logger.Debugf("Foreground window set, PID: %d, hwnd: %#x", h.PID(), uintptr(hwnd))
	f.metrics.observeForeground("ok")
	return true
}
