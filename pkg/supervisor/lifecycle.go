package supervisor

import (
	"fmt"
	"sync"
	"time"

	"github.com/core-tools/hsu-launcher/pkg/errors"
	"github.com/core-tools/hsu-launcher/pkg/events"
	"github.com/core-tools/hsu-launcher/pkg/logging"
)

type LifecycleState string

const (
	StateCreated     LifecycleState = "created"
	StateParsingArgs LifecycleState = "parsing_args"
	StateLaunching   LifecycleState = "launching"
	StateDiscovering LifecycleState = "discovering"
	StateMonitoring  LifecycleState = "monitoring"
	StateCleaningUp  LifecycleState = "cleaning_up"
	StateExiting     LifecycleState = "exiting"
)

func canTransition(from, to LifecycleState) bool {
	switch from {
	case StateCreated:
		return to == StateParsingArgs
	case StateParsingArgs:
		return to == StateLaunching || to == StateDiscovering || to == StateExiting
	case StateLaunching:
		return to == StateDiscovering || to == StateExiting
	case StateDiscovering:
		return to == StateMonitoring || to == StateCleaningUp || to == StateExiting
	case StateMonitoring:
		return to == StateCleaningUp || to == StateExiting
	case StateCleaningUp:
		return to == StateExiting
	default:
		return false
	}
}

type lifecycle struct {
	mutex   sync.Mutex
	state   LifecycleState
	bus     *events.Bus
	metrics *Metrics
	logger  logging.Logger
}

func newLifecycle(bus *events.Bus, metrics *Metrics, logger logging.Logger) *lifecycle {
	return &lifecycle{
		state:   StateCreated,
		bus:     bus,
		metrics: metrics,
		logger:  logger,
	}
}

func (l *lifecycle) State() LifecycleState {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.state
}

func (l *lifecycle) transition(to LifecycleState) error {
	l.mutex.Lock()
	from := l.state
	if !canTransition(from, to) {
		l.mutex.Unlock()
		return errors.NewInternalError(fmt.Sprintf("invalid lifecycle transition %s -> %s", from, to), nil)
	}
	l.state = to
	l.mutex.Unlock()

	l.logger.Debugf("Lifecycle transition: %s -> %s", from, to)
	l.metrics.observeLifecycle(to)
	l.bus.Publish(events.LifecycleStateChangedEvent{From: string(from), To: string(to), At: time.Now()})
	return nil
}
