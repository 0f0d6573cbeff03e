package launcher

import (
	"context"

	"github.com/core-tools/hsu-launcher/pkg/errors"
	"github.com/core-tools/hsu-launcher/pkg/logging"
	"github.com/core-tools/hsu-launcher/pkg/process"
)

// StartFunc starts a launch command without waiting for it
type StartFunc func(ctx context.Context, command string, logger logging.Logger) error

type Launcher struct {
	start  StartFunc
	logger logging.Logger
}

// NewLauncher uses process.StartShell when start is nil
func NewLauncher(start StartFunc, logger logging.Logger) *Launcher {
	if start == nil {
		start = process.StartShell
	}
	return &Launcher{
		start:  start,
		logger: logger,
	}
}

// Launch runs the target's launch command once. There are no retries.
func (l *Launcher) Launch(ctx context.Context, spec TargetSpec) error {
	if !spec.HasLaunchCommand() {
		l.logger.Debugf("No launch command, waiting for '%s' to be started externally", spec.ProcessName)
		return nil
	}

	l.logger.Infof("Launching '%s' for process '%s'", spec.LaunchCommand, spec.ProcessName)
	if err := l.start(ctx, spec.LaunchCommand, l.logger); err != nil {
		if errors.IsCancelledError(err) {
			return err
		}
		l.logger.Errorf("Launch failed, command: '%s', error: %v", spec.LaunchCommand, err)
		return errors.NewLaunchError("Failed to launch", err).WithContext("command", spec.LaunchCommand)
	}

	l.logger.Infof("Launch command started: '%s'", spec.LaunchCommand)
	return nil
}
