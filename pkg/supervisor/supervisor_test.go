package supervisor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/core-tools/hsu-launcher/pkg/errors"
	"github.com/core-tools/hsu-launcher/pkg/events"
	"github.com/core-tools/hsu-launcher/pkg/host"
	"github.com/core-tools/hsu-launcher/pkg/launcher"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runResult struct {
	outcome Outcome
	err     error
}

func runAsync(sup *Supervisor, ctx context.Context, args []string) <-chan runResult {
	result := make(chan runResult, 1)
	go func() {
		outcome, err := sup.Run(ctx, args)
		result <- runResult{outcome, err}
	}()
	return result
}

func waitForState(t *testing.T, sup *Supervisor, state LifecycleState) {
	t.Helper()
	require.Eventually(t, func() bool { return sup.State() == state }, 2*time.Second, 5*time.Millisecond)
}

func TestNewSupervisor_RequiresDependencies(t *testing.T) {
	_, err := NewSupervisor(testOptions(), Dependencies{})
	assert.True(t, errors.IsValidationError(err))
}

func TestSupervisor_InvalidArguments(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		message string
	}{
		{"missing_name", nil, "Missing process name"},
		{"invalid_timeout", []string{"mygame", "launcher.exe", "abc"}, "Invalid timeout value 'abc'"},
		{"negative_timeout", []string{"mygame", "", "-1"}, "Invalid timeout value '-1'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(testOptions())
			starter := &recordingStarter{}
			sup := h.supervisor(starter, nil)

			outcome, err := sup.Run(context.Background(), tt.args)

			require.Error(t, err)
			assert.Contains(t, launcher.UserMessage(err), tt.message)
			assert.Equal(t, launcher.ExitCodeInvalidArguments, outcome.ExitCode)
			assert.Equal(t, ReasonInvalidArguments, outcome.Reason)
			assert.Empty(t, starter.started())
			assert.False(t, h.host.Snapshot().Shown)
			assert.Equal(t, StateExiting, sup.State())
		})
	}
}

func TestSupervisor_LaunchFailure(t *testing.T) {
	h := newHarness(testOptions())
	starter := &recordingStarter{err: fmt.Errorf("file not found")}
	sup := h.supervisor(starter, nil)

	outcome, err := sup.Run(context.Background(), []string{"game", "missing.exe", "10"})

	require.Error(t, err)
	assert.Equal(t, launcher.ExitCodeLaunchFailed, outcome.ExitCode)
	assert.Equal(t, ReasonLaunchFailed, outcome.Reason)
	assert.Equal(t, "Failed to launch: file not found", launcher.UserMessage(err))
	assert.Equal(t, []string{"missing.exe"}, starter.started())
	assert.Zero(t, h.processes.callCount())
}

func TestSupervisor_NotFound(t *testing.T) {
	h := newHarness(testOptions())
	sup := h.supervisor(&recordingStarter{}, nil)

	outcome, err := sup.Run(context.Background(), []string{"game", "", "0"})

	require.Error(t, err)
	assert.Equal(t, launcher.ExitCodeNotFound, outcome.ExitCode)
	assert.Equal(t, ReasonNotFound, outcome.Reason)
	assert.True(t, h.host.Snapshot().Closed)
}

func TestSupervisor_TargetExits(t *testing.T) {
	h := newHarness(testOptions())
	game := newFakeHandle(77, "game.exe")
	h.processes.add(game)
	h.processes.hiddenPolls = 2
	starter := &recordingStarter{}
	service := &recordingService{}
	sup := h.supervisor(starter, service)

	result := runAsync(sup, context.Background(), []string{"game", "steam://run/1", "5"})
	waitForState(t, sup, StateMonitoring)
	game.markExited()

	res := <-result
	require.NoError(t, res.err)
	assert.Equal(t, Outcome{ExitCode: launcher.ExitCodeOK, Reason: ReasonTargetExited, PID: 77}, res.outcome)
	assert.Equal(t, []string{"steam://run/1"}, starter.started())

	snapshot := h.host.Snapshot()
	assert.True(t, snapshot.Shown)
	assert.True(t, snapshot.Closed)
	assert.False(t, snapshot.Topmost)
	assert.Equal(t, host.WindowStateMaximized, snapshot.State)
	assert.Equal(t, host.WindowStyleBorderless, snapshot.Style)

	closeCalls, killCalls, released := game.counts()
	assert.Zero(t, closeCalls)
	assert.Zero(t, killCalls)
	assert.Equal(t, 1, released)
	assert.Equal(t, 1, service.ready)
	assert.Zero(t, service.stopping)
	assert.Equal(t, CleanupIdle, sup.CleanupState())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.lifecycleState.WithLabelValues(string(StateExiting))))
}

func TestSupervisor_CleanupDuringMonitoring(t *testing.T) {
	h := newHarness(testOptions())
	game := newFakeHandle(5, "game")
	game.exitOnClose = true
	h.processes.add(game)
	sup := h.supervisor(&recordingStarter{}, nil)

	result := runAsync(sup, context.Background(), []string{"game"})
	waitForState(t, sup, StateMonitoring)
	assert.True(t, sup.RequestCleanup("test signal"))

	res := <-result
	require.NoError(t, res.err)
	assert.Equal(t, launcher.ExitCodeOK, res.outcome.ExitCode)
	assert.Equal(t, ReasonCleanup, res.outcome.Reason)
	assert.Equal(t, CleanupDone, sup.CleanupState())

	closeCalls, killCalls, _ := game.counts()
	assert.Equal(t, 1, closeCalls)
	assert.Zero(t, killCalls)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.exitRequests.WithLabelValues("test signal")))
}

func TestSupervisor_CleanupDuringDiscovery(t *testing.T) {
	h := newHarness(testOptions())
	sup := h.supervisor(&recordingStarter{}, nil)

	result := runAsync(sup, context.Background(), []string{"game", "", "30"})
	waitForState(t, sup, StateDiscovering)
	sup.RequestCleanup("test signal")

	select {
	case res := <-result:
		require.NoError(t, res.err)
		assert.Equal(t, ReasonCleanup, res.outcome.Reason)
		assert.Zero(t, res.outcome.PID)
	case <-time.After(2 * time.Second):
		t.Fatal("discovery did not stop after cleanup request")
	}
	assert.Equal(t, CleanupDone, sup.CleanupState())
}

func TestSupervisor_ConcurrentTriggersKillOnce(t *testing.T) {
	h := newHarness(testOptions())
	game := newFakeHandle(5, "game")
	h.processes.add(game)
	sup := h.supervisor(&recordingStarter{}, nil)

	result := runAsync(sup, context.Background(), []string{"game"})
	waitForState(t, sup, StateMonitoring)

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if sup.RequestCleanup(fmt.Sprintf("trigger %d", i%2)) {
				accepted.Add(1)
			}
		}(i)
	}
	wg.Wait()

	res := <-result
	require.NoError(t, res.err)
	assert.Equal(t, int32(1), accepted.Load())
	closeCalls, killCalls, _ := game.counts()
	assert.Equal(t, 1, closeCalls)
	assert.Equal(t, 1, killCalls)
}

func TestSupervisor_HostCloseTriggersCleanup(t *testing.T) {
	h := newHarness(testOptions())
	game := newFakeHandle(5, "game")
	game.exitOnClose = true
	h.processes.add(game)
	sup := h.supervisor(&recordingStarter{}, nil)

	result := runAsync(sup, context.Background(), []string{"game"})
	waitForState(t, sup, StateMonitoring)
	h.host.UserClose()

	res := <-result
	require.NoError(t, res.err)
	assert.Equal(t, ReasonCleanup, res.outcome.Reason)
	closeCalls, _, _ := game.counts()
	assert.Equal(t, 1, closeCalls)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.exitRequests.WithLabelValues("host closed")))
}

func TestSupervisor_ContextCancelTriggersCleanup(t *testing.T) {
	h := newHarness(testOptions())
	game := newFakeHandle(5, "game")
	game.exitOnClose = true
	h.processes.add(game)
	sup := h.supervisor(&recordingStarter{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	result := runAsync(sup, ctx, []string{"game"})
	waitForState(t, sup, StateMonitoring)
	cancel()

	res := <-result
	require.NoError(t, res.err)
	assert.Equal(t, ReasonCleanup, res.outcome.Reason)
	closeCalls, _, _ := game.counts()
	assert.Equal(t, 1, closeCalls)
	assert.True(t, sup.ExitRequested())
}

func TestSupervisor_SignalAfterTargetExitIsIgnored(t *testing.T) {
	h := newHarness(testOptions())
	game := newFakeHandle(5, "game")
	h.processes.add(game)
	sup := h.supervisor(&recordingStarter{}, nil)

	result := runAsync(sup, context.Background(), []string{"game"})
	waitForState(t, sup, StateMonitoring)
	game.markExited()
	res := <-result

	assert.Equal(t, ReasonTargetExited, res.outcome.Reason)
	assert.False(t, sup.RequestCleanup("late signal"))
}

func TestSupervisor_RunOnce(t *testing.T) {
	h := newHarness(testOptions())
	sup := h.supervisor(&recordingStarter{}, nil)

	_, _ = sup.Run(context.Background(), nil)
	_, err := sup.Run(context.Background(), nil)

	assert.True(t, errors.IsInternalError(err))
}

func TestSupervisor_ExitRequestedBeforeLaunch(t *testing.T) {
	h := newHarness(testOptions())
	starter := &recordingStarter{}
	sup := h.supervisor(starter, nil)
	require.True(t, sup.RequestCleanup("signal interrupt"))

	outcome, err := sup.Run(context.Background(), []string{"game", "steam://run/1", "10"})

	require.NoError(t, err)
	assert.Equal(t, launcher.ExitCodeOK, outcome.ExitCode)
	assert.Equal(t, ReasonCleanup, outcome.Reason)
	assert.Empty(t, starter.started())
	assert.Zero(t, h.processes.callCount())
	assert.False(t, h.host.Snapshot().Shown)
	assert.Equal(t, StateExiting, sup.State())
}

func TestSupervisor_OnDiscoveredRunsBeforeMonitoring(t *testing.T) {
	h := newHarness(testOptions())
	game := newFakeHandle(5, "game")
	game.exitOnClose = true
	h.processes.add(game)

	var mutex sync.Mutex
	var seen []events.ProcessDiscoveredEvent
	var states []LifecycleState
	var sup *Supervisor
	sup, err := NewSupervisor(h.options, Dependencies{
		Launcher:  launcher.NewLauncher((&recordingStarter{}).start, h.logger),
		Processes: h.processes,
		Windows:   h.windows,
		Host:      h.host,
		Metrics:   h.metrics,
		Logger:    h.logger,

		OnDiscovered: func(e events.ProcessDiscoveredEvent) {
			mutex.Lock()
			defer mutex.Unlock()
			seen = append(seen, e)
			states = append(states, sup.State())
		},
	})
	require.NoError(t, err)

	result := runAsync(sup, context.Background(), []string{"game"})
	waitForState(t, sup, StateMonitoring)
	sup.RequestCleanup("test signal")
	res := <-result
	require.NoError(t, res.err)

	mutex.Lock()
	defer mutex.Unlock()
	require.Len(t, seen, 1)
	assert.Equal(t, 5, seen[0].PID)
	assert.Equal(t, "game", seen[0].Name)
	assert.False(t, seen[0].Replacement)
	assert.Equal(t, []LifecycleState{StateDiscovering}, states)
}
