package launcher

import (
	"fmt"
	"testing"

	"github.com/core-tools/hsu-launcher/pkg/errors"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, ExitCodeOK},
		{"cancelled", errors.NewCancelledError("exit requested", nil), ExitCodeOK},
		{"validation", errors.NewValidationError("bad", nil), ExitCodeInvalidArguments},
		{"launch", errors.NewLaunchError("Failed to launch", nil), ExitCodeLaunchFailed},
		{"not_found", errors.NewNotFoundError("missing", nil), ExitCodeNotFound},
		{"wrapped_not_found", fmt.Errorf("run: %w", errors.NewNotFoundError("missing", nil)), ExitCodeNotFound},
		{"internal", errors.NewInternalError("host", nil), ExitCodeInvalidArguments},
		{"plain", fmt.Errorf("plain"), ExitCodeInvalidArguments},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExitCodeFor(tt.err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	cause := fmt.Errorf("exec: file not found")
	launchErr := errors.NewLaunchError("Failed to launch", errors.NewLaunchError("failed to start the process", cause))
	assert.Equal(t, "Failed to launch: exec: file not found", UserMessage(launchErr))

	notFound := errors.NewNotFoundError("Process 'mygame.exe' not found within 30 seconds", nil)
	assert.Equal(t, "Process 'mygame.exe' not found within 30 seconds", UserMessage(notFound))

	assert.Equal(t, "plain", UserMessage(fmt.Errorf("plain")))
}
