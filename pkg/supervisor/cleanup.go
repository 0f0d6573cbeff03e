package supervisor

import (
	"sync"
	"time"

	"github.com/core-tools/hsu-launcher/pkg/events"
	"github.com/core-tools/hsu-launcher/pkg/logging"
	"github.com/core-tools/hsu-launcher/pkg/process"
)

type CleanupState string

const (
	CleanupIdle              CleanupState = "idle"
	CleanupClosingGracefully CleanupState = "closing_gracefully"
	CleanupWaitingGraceful   CleanupState = "waiting_graceful"
	CleanupKilling           CleanupState = "killing"
	CleanupWaitingKill       CleanupState = "waiting_kill"
	CleanupDone              CleanupState = "done"
)

// WaitForExit implementations may overrun their timeout slightly before giving up
const waitSlack = 250 * time.Millisecond

// cleanup escalates from a graceful close to a kill. It runs at most once.
type cleanup struct {
	state      *SharedState
	foreground *foregroundHandoff
	bus        *events.Bus
	metrics    *Metrics
	options    Options
	logger     logging.Logger

	mutex   sync.Mutex
	current CleanupState
	started bool
	pid     int
}

func newCleanup(state *SharedState, foreground *foregroundHandoff, bus *events.Bus, metrics *Metrics, options Options, logger logging.Logger) *cleanup {
	return &cleanup{
		state:      state,
		foreground: foreground,
		bus:        bus,
		metrics:    metrics,
		options:    options,
		logger:     logger,
		current:    CleanupIdle,
	}
}

func (c *cleanup) State() CleanupState {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.current
}

// Run performs the escalation. The exit request flag must already be set.
// It returns false when an earlier call already ran it.
func (c *cleanup) Run() bool {
	c.mutex.Lock()
	if c.started {
		c.mutex.Unlock()
		return false
	}
	c.started = true
	c.mutex.Unlock()

	h := c.state.Process()
	if h == nil {
		c.logger.Infof("Cleanup: no monitored process")
		c.finish()
		return true
	}
	c.pid = h.PID()

	if c.exited(h) {
		c.logger.Infof("Cleanup: process PID %d has already exited", h.PID())
		c.finish()
		return true
	}

	c.transition(CleanupClosingGracefully)
	c.logger.Infof("Requesting process '%s' with PID %d to close", h.Name(), h.PID())
	c.foreground.Foreground(h)
	sent, err := h.CloseMainWindow()
	if err != nil {
		c.logger.Warnf("Graceful close request failed, PID: %d, error: %v", h.PID(), err)
	} else if !sent {
		c.logger.Warnf("Graceful close request had no receiver, PID: %d", h.PID())
	}

	c.transition(CleanupWaitingGraceful)
	if c.waitForExit(h, c.options.GracefulTimeout) {
		c.logger.Infof("Process PID %d closed gracefully", h.PID())
		c.finish()
		return true
	}

	c.transition(CleanupKilling)
	c.logger.Warnf("Process PID %d did not close within %v, killing", h.PID(), c.options.GracefulTimeout)
	if err := h.Kill(); err != nil {
		c.logger.Errorf("Failed to kill process PID %d: %v", h.PID(), err)
	}

	c.transition(CleanupWaitingKill)
	if c.waitForExit(h, c.options.KillTimeout) {
		c.logger.Infof("Process PID %d killed", h.PID())
	} else {
		c.logger.Errorf("Process PID %d did not exit after kill attempt", h.PID())
	}

	c.finish()
	return true
}

func (c *cleanup) exited(h process.Handle) bool {
	if err := h.Refresh(); err != nil {
		c.logger.Debugf("Refresh failed, PID: %d, error: %v", h.PID(), err)
	}
	exited, err := h.HasExited()
	if err != nil {
		c.logger.Warnf("Process PID %d is not accessible, treating as exited: %v", h.PID(), err)
		return true
	}
	return exited
}

// waitForExit runs the blocking wait on its own goroutine and bounds it
func (c *cleanup) waitForExit(h process.Handle, timeout time.Duration) bool {
	result := make(chan bool, 1)
	go func() {
		exited, err := h.WaitForExit(timeout)
		if err != nil {
			c.logger.Warnf("Wait for exit failed, PID: %d, error: %v", h.PID(), err)
		}
		result <- exited
	}()

	timer := time.NewTimer(timeout + waitSlack)
	defer timer.Stop()

	select {
	case exited := <-result:
		return exited
	case <-timer.C:
		return false
	}
}

func (c *cleanup) finish() {
	c.transition(CleanupDone)
	if h := c.state.TakeProcess(); h != nil {
		h.Release()
	}
	c.logger.Infof("Cleanup complete")
}

func (c *cleanup) transition(to CleanupState) {
	c.mutex.Lock()
	from := c.current
	c.current = to
	c.mutex.Unlock()

	c.logger.Debugf("Cleanup transition: %s -> %s", from, to)
	c.metrics.observeCleanupState(to)
	c.bus.Publish(events.CleanupStateChangedEvent{From: string(from), To: string(to), PID: c.pid, At: time.Now()})
}
