//go:build windows

package supervisor

import (
	"os"
	"syscall"
)

// The runtime reports console close, logoff and shutdown events as SIGTERM
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
