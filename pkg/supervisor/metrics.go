package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts supervisor activity in a private registry. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	discoveryPolls     prometheus.Counter
	discoveredTotal    *prometheus.CounterVec
	foregroundAttempts *prometheus.CounterVec
	exitRequests       *prometheus.CounterVec
	cleanupStates      *prometheus.CounterVec
	lifecycleState     *prometheus.GaugeVec
}

var lifecycleStates = []LifecycleState{
	StateCreated, StateParsingArgs, StateLaunching, StateDiscovering,
	StateMonitoring, StateCleaningUp, StateExiting,
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		discoveryPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hsu_launcher_discovery_polls_total",
			Help: "Process list queries made while waiting for the target",
		}),
		discoveredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hsu_launcher_processes_discovered_total",
			Help: "Processes adopted as the monitored target",
		}, []string{"kind"}),
		foregroundAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hsu_launcher_foreground_attempts_total",
			Help: "Foreground handoff attempts by result",
		}, []string{"result"}),
		exitRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hsu_launcher_exit_requests_total",
			Help: "Exit requests by trigger",
		}, []string{"trigger"}),
		cleanupStates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hsu_launcher_cleanup_state_transitions_total",
			Help: "Cleanup escalation states entered",
		}, []string{"state"}),
		lifecycleState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hsu_launcher_lifecycle_state",
			Help: "1 for the current supervisor lifecycle state",
		}, []string{"state"}),
	}
	m.registry.MustRegister(
		m.discoveryPolls,
		m.discoveredTotal,
		m.foregroundAttempts,
		m.exitRequests,
		m.cleanupStates,
		m.lifecycleState,
	)
	return m
}

// WriteTextfile writes all metrics in the Prometheus text format
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observePoll() {
	if m == nil {
		return
	}
	m.discoveryPolls.Inc()
}

func (m *Metrics) observeDiscovered(replacement bool) {
	if m == nil {
		return
	}
	kind := "initial"
	if replacement {
		kind = "replacement"
	}
	m.discoveredTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) observeForeground(result string) {
	if m == nil {
		return
	}
	m.foregroundAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) observeExitRequest(trigger string) {
	if m == nil {
		return
	}
	m.exitRequests.WithLabelValues(trigger).Inc()
}

func (m *Metrics) observeCleanupState(state CleanupState) {
	if m == nil {
		return
	}
	m.cleanupStates.WithLabelValues(string(state)).Inc()
}

func (m *Metrics) observeLifecycle(current LifecycleState) {
	if m == nil {
		return
	}
	for _, state := range lifecycleStates {
		value := 0.0
		if state == current {
			value = 1
		}
		m.lifecycleState.WithLabelValues(string(state)).Set(value)
	}
}
