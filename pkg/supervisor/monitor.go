package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/core-tools/hsu-launcher/pkg/errors"
	"github.com/core-tools/hsu-launcher/pkg/events"
	"github.com/core-tools/hsu-launcher/pkg/logging"
	"github.com/core-tools/hsu-launcher/pkg/process"
)

// exitMonitor waits for the monitored process to exit. It never terminates anything.
type exitMonitor struct {
	discovery *discovery
	state     *SharedState
	bus       *events.Bus
	options   Options
	logger    logging.Logger
}

// Run returns nil once the target has exited and the grace period has passed with
// no relaunch to follow, or ErrExitRequested when the exit flag is set first
func (m *exitMonitor) Run(ctx context.Context, h process.Handle) error {
	ticker := time.NewTicker(m.options.MonitorInterval)
	defer ticker.Stop()

	m.logger.Infof("Monitoring process '%s', PID: %d, interval: %v", h.Name(), h.PID(), m.options.MonitorInterval)

	for {
		if m.state.ExitRequested() {
			m.logger.Debugf("Exit monitor stopped, exit requested")
			return ErrExitRequested
		}

		if m.hasExited(h) {
			m.logger.Infof("Process '%s' with PID %d has exited", h.Name(), h.PID())
			m.bus.Publish(events.ProcessExitedEvent{Name: h.Name(), PID: h.PID(), At: time.Now()})

			next, err := m.afterExit(ctx, h)
			if err != nil {
				return err
			}
			if next == nil {
				return nil
			}
			h = next
			continue
		}

		select {
		case <-ticker.C:
		case <-m.state.Done():
		case <-ctx.Done():
			return errors.NewCancelledError("exit monitor cancelled", ctx.Err())
		}
	}
}

// hasExited treats a failed query as an exit; the process is no longer accessible
func (m *exitMonitor) hasExited(h process.Handle) bool {
	exited, err := h.HasExited()
	if err != nil {
		m.logger.Warnf("Process PID %d is no longer accessible, treating as exited: %v", h.PID(), err)
		return true
	}
	return exited
}

// afterExit waits out the grace period and returns a relaunched instance to follow, if any
func (m *exitMonitor) afterExit(ctx context.Context, exited process.Handle) (process.Handle, error) {
	m.logger.Infof("Waiting %v before shutting down", m.options.ExitGracePeriod)
	m.discovery.host.SetStatus(fmt.Sprintf("%s exited", exited.Name()))

	if err := sleepOrExit(ctx, m.state, m.options.ExitGracePeriod); err != nil {
		return nil, err
	}
	if !m.options.FollowRelaunch {
		return nil, nil
	}

	next, err := m.discovery.poll(ctx, exited.Name(), exited.PID())
	if err != nil {
		m.logger.Warnf("Relaunch check failed: %v", err)
		return nil, nil
	}
	if next == nil {
		return nil, nil
	}
	if m.state.ExitRequested() {
		next.Release()
		return nil, ErrExitRequested
	}

	m.discovery.adopt(next, true)
	return next, nil
}
