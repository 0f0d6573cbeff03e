package supervisor

import (
	"testing"
	"time"

	"github.com/core-tools/hsu-launcher/pkg/errors"
	"github.com/core-tools/hsu-launcher/pkg/events"
	"github.com/core-tools/hsu-launcher/pkg/logging"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from     LifecycleState
		to       LifecycleState
		expected bool
	}{
		{StateCreated, StateParsingArgs, true},
		{StateCreated, StateDiscovering, false},
		{StateParsingArgs, StateLaunching, true},
		{StateParsingArgs, StateDiscovering, true},
		{StateParsingArgs, StateExiting, true},
		{StateParsingArgs, StateCleaningUp, false},
		{StateLaunching, StateDiscovering, true},
		{StateLaunching, StateExiting, true},
		{StateLaunching, StateMonitoring, false},
		{StateDiscovering, StateMonitoring, true},
		{StateDiscovering, StateCleaningUp, true},
		{StateDiscovering, StateExiting, true},
		{StateMonitoring, StateCleaningUp, true},
		{StateMonitoring, StateExiting, true},
		{StateMonitoring, StateDiscovering, false},
		{StateCleaningUp, StateExiting, true},
		{StateCleaningUp, StateMonitoring, false},
		{StateExiting, StateCreated, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.expected, canTransition(tt.from, tt.to))
		})
	}
}

func TestLifecycle_Transition(t *testing.T) {
	metrics := NewMetrics()
	l := newLifecycle(events.New(), metrics, logging.NewNopLogger())
	assert.Equal(t, StateCreated, l.State())

	require.NoError(t, l.transition(StateParsingArgs))
	require.NoError(t, l.transition(StateDiscovering))
	assert.Equal(t, StateDiscovering, l.State())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.lifecycleState.WithLabelValues(string(StateDiscovering))))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.lifecycleState.WithLabelValues(string(StateParsingArgs))))

	err := l.transition(StateCreated)
	assert.True(t, errors.IsInternalError(err))
	assert.Equal(t, StateDiscovering, l.State())
}

func TestLifecycle_PublishesTransitions(t *testing.T) {
	bus := events.New()
	received := make(chan events.LifecycleStateChangedEvent, 4)
	unsubscribe := bus.Subscribe(func(e events.LifecycleStateChangedEvent) {
		received <- e
	})
	defer unsubscribe()

	l := newLifecycle(bus, nil, logging.NewNopLogger())
	require.NoError(t, l.transition(StateParsingArgs))

	require.Eventually(t, func() bool { return len(received) == 1 }, time.Second, 5*time.Millisecond)
	e := <-received
	assert.Equal(t, "created", e.From)
	assert.Equal(t, "parsing_args", e.To)
}
