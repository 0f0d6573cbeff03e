package host

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/core-tools/hsu-launcher/pkg/logging"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadless_PresentationState(t *testing.T) {
	h := NewHeadless(logging.NewNopLogger())

	h.SetWindowState(WindowStateMaximized)
	h.SetWindowStyle(WindowStyleBorderless)
	h.SetTopmost(true)
	h.SetStatus("Waiting for mygame.exe")
	require.NoError(t, h.Show())

	snap := h.Snapshot()
	assert.True(t, snap.Shown)
	assert.True(t, snap.Topmost)
	assert.Equal(t, WindowStateMaximized, snap.State)
	assert.Equal(t, WindowStyleBorderless, snap.Style)
	assert.Equal(t, "Waiting for mygame.exe", snap.Status)

	h.SetTopmost(false)
	assert.False(t, h.Snapshot().Topmost)
}

func TestHeadless_CloseDoesNotFireCallbacks(t *testing.T) {
	h := NewHeadless(logging.NewNopLogger())
	var fired int32
	h.OnClosed(func() { atomic.AddInt32(&fired, 1) })

	h.Close()
	h.UserClose()

	assert.True(t, h.Snapshot().Closed)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestHeadless_UserCloseFiresOnce(t *testing.T) {
	h := NewHeadless(logging.NewNopLogger())
	var fired int32
	h.OnClosed(func() { atomic.AddInt32(&fired, 1) })
	h.OnClosed(func() { atomic.AddInt32(&fired, 10) })

	h.UserClose()
	h.UserClose()

	assert.Equal(t, int32(11), atomic.LoadInt32(&fired))
}

func newSimulatedTerminal(t *testing.T) (*Terminal, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	return newTerminalWithScreen(screen, "hsu-launcher", logging.NewNopLogger()), screen
}

func TestTerminal_EscapeClosesByUser(t *testing.T) {
	term, screen := newSimulatedTerminal(t)
	closed := make(chan struct{})
	term.OnClosed(func() { close(closed) })

	term.SetWindowStyle(WindowStyleBorderless)
	require.NoError(t, term.Show())
	term.SetStatus("Monitoring mygame.exe")

	screen.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("OnClosed not fired")
	}
	assert.True(t, term.Snapshot().Closed)
	assert.Equal(t, "Monitoring mygame.exe", term.Snapshot().Status)

	// Already closed by the user
	term.Close()
}

func TestTerminal_CloseStopsLoopWithoutCallbacks(t *testing.T) {
	term, _ := newSimulatedTerminal(t)
	var fired int32
	term.OnClosed(func() { atomic.AddInt32(&fired, 1) })

	require.NoError(t, term.Show())
	require.NoError(t, term.Show())

	done := make(chan struct{})
	go func() {
		term.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
	assert.True(t, term.Snapshot().Closed)
}

func TestTerminal_CloseBeforeShow(t *testing.T) {
	term, _ := newSimulatedTerminal(t)
	term.Close()
	assert.True(t, term.Snapshot().Closed)
}

func TestSystemdNotifier(t *testing.T) {
	var states []string
	n := NewSystemdNotifier(logging.NewNopLogger())
	n.notify = func(state string) (bool, error) {
		states = append(states, state)
		return false, nil
	}

	n.Ready()
	n.Status("Monitoring PID 42")
	n.Stopping()

	assert.Equal(t, []string{"READY=1", "STATUS=Monitoring PID 42", "STOPPING=1"}, states)
}
