//go:build !windows

package processstate

import (
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsProcessRunning_UnreapedChild(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	pid := cmd.Process.Pid
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	running, err := IsProcessRunning(pid)
	require.NoError(t, err)
	assert.True(t, running)

	// Terminated but not waited on, so it lingers as a zombie
	require.NoError(t, cmd.Process.Signal(syscall.SIGTERM))

	exited, err := WaitForExit(pid, 2*time.Second)
	require.NoError(t, err)
	assert.True(t, exited)
}
