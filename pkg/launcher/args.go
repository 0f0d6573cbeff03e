package launcher

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/core-tools/hsu-launcher/pkg/errors"
	"github.com/core-tools/hsu-launcher/pkg/process"
)

const DefaultTimeoutSeconds = 30

const Usage = "<processName> [launchCommand] [timeoutSeconds]"

// TargetSpec identifies the application to supervise. It is not modified after ParseArgs.
type TargetSpec struct {
	// ProcessName is the executable name, ".exe" appended when it was missing
	ProcessName    string
	LaunchCommand  string
	TimeoutSeconds int

	// ExtraArgs holds positional arguments past the timeout; they are ignored
	ExtraArgs []string
}

// LookupName is the name compared against the process list
func (s TargetSpec) LookupName() string {
	return process.LookupName(s.ProcessName)
}

func (s TargetSpec) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func (s TargetSpec) HasLaunchCommand() bool {
	return strings.TrimSpace(s.LaunchCommand) != ""
}

// ParseArgs parses the positional arguments <processName> [launchCommand] [timeoutSeconds]
func ParseArgs(args []string) (TargetSpec, error) {
	if len(args) == 0 {
		return TargetSpec{}, errors.NewValidationError("Missing process name. Usage: "+Usage, nil)
	}
	if err := process.ValidateProcessName(args[0]); err != nil {
		return TargetSpec{}, errors.NewValidationError("Invalid process name. Usage: "+Usage, err)
	}

	spec := TargetSpec{
		ProcessName:    process.NormalizeName(args[0]),
		TimeoutSeconds: DefaultTimeoutSeconds,
	}

	if len(args) > 1 {
		if err := process.ValidateLaunchCommand(args[1]); err != nil {
			return TargetSpec{}, err
		}
		spec.LaunchCommand = strings.TrimSpace(args[1])
	}

	if len(args) > 2 {
		timeout, err := parseTimeout(args[2])
		if err != nil {
			return TargetSpec{}, err
		}
		spec.TimeoutSeconds = timeout
	}

	if len(args) > 3 {
		spec.ExtraArgs = append([]string(nil), args[3:]...)
	}

	return spec, nil
}

func parseTimeout(value string) (int, error) {
	timeout, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || timeout < 0 {
		return 0, errors.NewValidationError(fmt.Sprintf("Invalid timeout value '%s'", value), nil).
			WithContext("timeout", value)
	}
	return timeout, nil
}
