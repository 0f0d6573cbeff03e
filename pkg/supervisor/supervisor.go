package supervisor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/core-tools/hsu-launcher/pkg/errors"
	"github.com/core-tools/hsu-launcher/pkg/events"
	"github.com/core-tools/hsu-launcher/pkg/host"
	"github.com/core-tools/hsu-launcher/pkg/launcher"
	"github.com/core-tools/hsu-launcher/pkg/logging"
	"github.com/core-tools/hsu-launcher/pkg/process"
)

// Launcher starts the optional launch command of a target
type Launcher interface {
	Launch(ctx context.Context, spec launcher.TargetSpec) error
}

// ServiceNotifier reports readiness to a service manager, see host.SystemdNotifier
type ServiceNotifier interface {
	Ready()
	Stopping()
	Status(text string)
}

type Dependencies struct {
	Launcher  Launcher
	Processes process.OSProcessAPI
	Windows   process.WindowAPI
	Host      host.Host

	// Optional
	Bus     *events.Bus
	Metrics *Metrics
	Service ServiceNotifier
	Logger  logging.Logger

	// OnDiscovered runs on the pipeline for every adopted process, before
	// monitoring starts and before Run can return
	OnDiscovered func(events.ProcessDiscoveredEvent)
}

// Outcome reasons
const (
	ReasonTargetExited     = "target_exited"
	ReasonCleanup          = "cleanup"
	ReasonNotFound         = "not_found"
	ReasonInvalidArguments = "invalid_arguments"
	ReasonLaunchFailed     = "launch_failed"
	ReasonFailed           = "failed"
)

// Outcome is the final result of a supervisor run
type Outcome struct {
	ExitCode int
	Reason   string
	PID      int
}

// Supervisor drives one target through launch, discovery, monitoring and cleanup
type Supervisor struct {
	options    Options
	launcher   Launcher
	host       host.Host
	service    ServiceNotifier
	bus        *events.Bus
	metrics    *Metrics
	logger     logging.Logger
	state      *SharedState
	lifecycle  *lifecycle
	foreground *foregroundHandoff
	discovery  *discovery
	monitor    *exitMonitor
	cleanup    *cleanup

	mutex          sync.Mutex
	cleanupStarted bool
	cleanupDone    chan struct{}
	ran            bool
}

func NewSupervisor(options Options, deps Dependencies) (*Supervisor, error) {
	if deps.Launcher == nil {
		return nil, errors.NewValidationError("launcher is required", nil)
	}
	if deps.Processes == nil {
		return nil, errors.NewValidationError("process API is required", nil)
	}
	if deps.Windows == nil {
		return nil, errors.NewValidationError("window API is required", nil)
	}
	if deps.Host == nil {
		return nil, errors.NewValidationError("host is required", nil)
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	state := NewSharedState()
	foreground := &foregroundHandoff{
		windows: deps.Windows,
		metrics: deps.Metrics,
		logger:  logger,
	}
	disc := &discovery{
		processes:    deps.Processes,
		host:         deps.Host,
		state:        state,
		foreground:   foreground,
		bus:          deps.Bus,
		metrics:      deps.Metrics,
		onDiscovered: deps.OnDiscovered,
		options:      options,
		logger:       logger,
	}

	return &Supervisor{
		options:    options,
		launcher:   deps.Launcher,
		host:       deps.Host,
		service:    deps.Service,
		bus:        deps.Bus,
		metrics:    deps.Metrics,
		logger:     logger,
		state:      state,
		lifecycle:  newLifecycle(deps.Bus, deps.Metrics, logger),
		foreground: foreground,
		discovery:  disc,
		monitor: &exitMonitor{
			discovery: disc,
			state:     state,
			bus:       deps.Bus,
			options:   options,
			logger:    logger,
		},
		cleanup:     newCleanup(state, foreground, deps.Bus, deps.Metrics, options, logger),
		cleanupDone: make(chan struct{}),
	}, nil
}

func (s *Supervisor) State() LifecycleState {
	return s.lifecycle.State()
}

func (s *Supervisor) CleanupState() CleanupState {
	return s.cleanup.State()
}

func (s *Supervisor) ExitRequested() bool {
	return s.state.ExitRequested()
}

// Run executes the whole lifecycle for the positional arguments
// <processName> [launchCommand] [timeoutSeconds]. It can be called once.
func (s *Supervisor) Run(ctx context.Context, args []string) (Outcome, error) {
	s.mutex.Lock()
	if s.ran {
		s.mutex.Unlock()
		return Outcome{ExitCode: launcher.ExitCodeInvalidArguments, Reason: ReasonFailed},
			errors.NewInternalError("supervisor already ran", nil)
	}
	s.ran = true
	s.mutex.Unlock()

	if err := s.lifecycle.transition(StateParsingArgs); err != nil {
		return s.finish(ReasonFailed, err)
	}

	spec, err := launcher.ParseArgs(args)
	if err != nil {
		s.logger.Errorf("Invalid arguments: %v", err)
		return s.finish(ReasonInvalidArguments, err)
	}
	if len(spec.ExtraArgs) > 0 {
		s.logger.Warnf("Ignoring extra arguments: %s", strings.Join(spec.ExtraArgs, " "))
	}
	s.logger.Infof("Target: '%s', launch command: '%s', timeout: %ds", spec.ProcessName, spec.LaunchCommand, spec.TimeoutSeconds)

	// Nothing would be left to supervise a target started after shutdown began
	if s.state.ExitRequested() {
		s.logger.Infof("Exit requested before launch, not starting the target")
		return s.finish(ReasonCleanup, ErrExitRequested)
	}

	if spec.HasLaunchCommand() {
		if err := s.lifecycle.transition(StateLaunching); err != nil {
			return s.finish(ReasonFailed, err)
		}
		if err := s.launcher.Launch(ctx, spec); err != nil {
			return s.finish(ReasonLaunchFailed, err)
		}
	}

	s.showHost()
	stop := context.AfterFunc(ctx, func() {
		s.RequestCleanup("context cancelled")
	})
	defer stop()

	if err := s.lifecycle.transition(StateDiscovering); err != nil {
		return s.finish(ReasonFailed, err)
	}
	s.serviceStatus(fmt.Sprintf("Waiting for %s", spec.LookupName()))

	handle, err := s.discovery.Run(ctx, spec)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return s.finish(ReasonNotFound, err)
		}
		return s.finish(ReasonCleanup, err)
	}

	if err := s.lifecycle.transition(StateMonitoring); err != nil {
		return s.finish(ReasonFailed, err)
	}
	if s.service != nil {
		s.service.Ready()
	}
	s.serviceStatus(fmt.Sprintf("Monitoring %s (PID %d)", handle.Name(), handle.PID()))
	s.foreground.Foreground(handle)

	if err := s.monitor.Run(ctx, handle); err != nil {
		return s.finish(ReasonCleanup, err)
	}
	return s.finish(ReasonTargetExited, nil)
}

// RequestCleanup sets the exit request flag and starts the cleanup escalation in
// the background. Only the first call has any effect; it reports whether this was it.
// Safe to call from signal handlers and host callbacks.
func (s *Supervisor) RequestCleanup(reason string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.state.RequestExit(reason) {
		s.logger.Debugf("Cleanup already requested, ignoring: %s", reason)
		return false
	}

	s.logger.Infof("Exit requested: %s", reason)
	s.metrics.observeExitRequest(reason)
	s.bus.Publish(events.ExitRequestedEvent{Reason: reason, At: time.Now()})
	if s.service != nil {
		s.service.Stopping()
	}

	s.cleanupStarted = true
	go func() {
		defer close(s.cleanupDone)
		s.cleanup.Run()
	}()
	return true
}

func (s *Supervisor) showHost() {
	s.host.SetWindowState(host.WindowStateMaximized)
	s.host.SetWindowStyle(host.WindowStyleBorderless)
	s.host.SetTopmost(true)
	s.host.OnClosed(func() {
		s.RequestCleanup("host closed")
	})
	if err := s.host.Show(); err != nil {
		s.logger.Warnf("Failed to show host surface: %v", err)
	}
}

func (s *Supervisor) serviceStatus(text string) {
	if s.service != nil {
		s.service.Status(text)
	}
}

// finish stops the loops, waits for a running cleanup, then closes the host
func (s *Supervisor) finish(reason string, err error) (Outcome, error) {
	if errors.IsCancelledError(err) {
		// A loop may see the context cancel before the cleanup hook does
		s.RequestCleanup("context cancelled")
	}

	s.mutex.Lock()
	s.state.RequestExit(reason)
	cleanupStarted := s.cleanupStarted
	s.mutex.Unlock()

	pid := 0
	if h := s.state.Process(); h != nil {
		pid = h.PID()
	}

	if cleanupStarted {
		if err == nil || errors.IsCancelledError(err) {
			reason = ReasonCleanup
		}
		if canTransition(s.lifecycle.State(), StateCleaningUp) {
			s.lifecycle.transition(StateCleaningUp)
		}
		<-s.cleanupDone
	}
	if errors.IsCancelledError(err) {
		err = nil
	}

	if transitionErr := s.lifecycle.transition(StateExiting); transitionErr != nil {
		s.logger.Debugf("Lifecycle: %v", transitionErr)
	}
	s.host.Close()
	if h := s.state.TakeProcess(); h != nil {
		h.Release()
	}

	outcome := Outcome{
		ExitCode: launcher.ExitCodeFor(err),
		Reason:   reason,
		PID:      pid,
	}
	if err != nil {
		s.logger.Errorf("Supervisor finished, reason: %s, exit code: %d, error: %v", outcome.Reason, outcome.ExitCode, err)
	} else {
		s.logger.Infof("Supervisor finished, reason: %s, exit code: %d", outcome.Reason, outcome.ExitCode)
	}
	return outcome, err
}
