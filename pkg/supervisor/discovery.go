package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/core-tools/hsu-launcher/pkg/errors"
	"github.com/core-tools/hsu-launcher/pkg/events"
	"github.com/core-tools/hsu-launcher/pkg/host"
	"github.com/core-tools/hsu-launcher/pkg/launcher"
	"github.com/core-tools/hsu-launcher/pkg/logging"
	"github.com/core-tools/hsu-launcher/pkg/process"

	"golang.org/x/time/rate"
)

type discovery struct {
	processes    process.OSProcessAPI
	host         host.Host
	state        *SharedState
	foreground   *foregroundHandoff
	bus          *events.Bus
	metrics      *Metrics
	onDiscovered func(events.ProcessDiscoveredEvent)
	options      Options
	logger       logging.Logger
}

// Run polls the process list until the target appears, the timeout elapses or
// an exit is requested. The found process becomes the monitored reference.
func (d *discovery) Run(ctx context.Context, spec launcher.TargetSpec) (process.Handle, error) {
	name := spec.LookupName()

	if d.options.DiscoveryStartDelay > 0 {
		d.logger.Debugf("Delaying discovery by %v", d.options.DiscoveryStartDelay)
		if err := d.sleep(ctx, d.options.DiscoveryStartDelay); err != nil {
			return nil, err
		}
	}
	d.host.SetTopmost(false)

	d.logger.Infof("Waiting for process '%s' to start, timeout: %ds", name, spec.TimeoutSeconds)
	d.host.SetStatus(fmt.Sprintf("Waiting for %s", name))

	progress := rate.Sometimes{Interval: d.options.ProgressInterval}
	timeout := spec.Timeout()
	started := time.Now()

	for {
		if d.state.ExitRequested() {
			d.logger.Infof("Discovery stopped, exit requested")
			return nil, ErrExitRequested
		}

		handle, err := d.poll(ctx, name, 0)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.NewCancelledError("discovery cancelled", ctx.Err())
			}
			d.logger.Warnf("Process list query failed, will retry: %v", err)
		}
		if handle != nil {
			if d.state.ExitRequested() {
				handle.Release()
				return nil, ErrExitRequested
			}
			d.adopt(handle, false)
			return handle, nil
		}

		elapsed := time.Since(started)
		if elapsed >= timeout {
			d.logger.Errorf("Process '%s' not found within %d seconds", name, spec.TimeoutSeconds)
			return nil, errors.NewNotFoundError(
				fmt.Sprintf("Process '%s' not found within %d seconds", name, spec.TimeoutSeconds), nil,
			).WithContext("process_name", name)
		}

		progress.Do(func() {
			d.logger.Infof("Still waiting for process '%s', elapsed: %v", name, elapsed.Truncate(time.Second))
		})

		wait := d.options.DiscoveryInterval
		if remaining := timeout - elapsed; remaining < wait {
			wait = remaining
		}
		if err := d.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// poll returns the best live match for name, skipping excludePID when it is nonzero
func (d *discovery) poll(ctx context.Context, name string, excludePID int) (process.Handle, error) {
	d.metrics.observePoll()

	handles, err := d.processes.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}

	var chosen process.Handle
	for _, h := range handles {
		if h.PID() == excludePID {
			h.Release()
			continue
		}
		if chosen == nil {
			chosen = h
			continue
		}
		// Prefer the instance that owns a window, otherwise keep the lowest PID
		if chosen.MainWindow() == 0 && h.MainWindow() != 0 {
			chosen.Release()
			chosen = h
			continue
		}
		h.Release()
	}

	if chosen != nil && len(handles) > 1 {
		d.logger.Debugf("Found %d processes named '%s', using PID %d", len(handles), name, chosen.PID())
	}
	return chosen, nil
}

// adopt stores h as the monitored reference and hands it the foreground
func (d *discovery) adopt(h process.Handle, replacement bool) {
	if prev := d.state.SetProcess(h); prev != nil && prev != h {
		prev.Release()
	}

	if replacement {
		d.logger.Infof("Process '%s' relaunched, now monitoring PID %d", h.Name(), h.PID())
	} else {
		d.logger.Infof("Process '%s' found, PID: %d", h.Name(), h.PID())
	}
	d.metrics.observeDiscovered(replacement)
	event := events.ProcessDiscoveredEvent{Name: h.Name(), PID: h.PID(), Replacement: replacement, At: time.Now()}
	if d.onDiscovered != nil {
		d.onDiscovered(event)
	}
	d.bus.Publish(event)

	d.foreground.Foreground(h)
}

// sleep returns early when an exit is requested or ctx is done
func (d *discovery) sleep(ctx context.Context, wait time.Duration) error {
	return sleepOrExit(ctx, d.state, wait)
}

func sleepOrExit(ctx context.Context, state *SharedState, wait time.Duration) error {
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-state.Done():
		return ErrExitRequested
	case <-ctx.Done():
		return errors.NewCancelledError("wait cancelled", ctx.Err())
	}
}
