package process

import (
	"strings"

	"github.com/core-tools/hsu-launcher/pkg/errors"
)

// ValidateProcessName checks a target process name as given on the command line
func ValidateProcessName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.NewValidationError("process name is required", nil)
	}
	if strings.ContainsAny(trimmed, `/\`) {
		return errors.NewValidationError("process name must not contain a path: "+trimmed, nil)
	}
	if LookupName(trimmed) == "" {
		return errors.NewValidationError("process name is empty after removing the executable suffix: "+trimmed, nil)
	}
	return nil
}

// ValidateLaunchCommand checks an optional launch command; blank means "no launch"
func ValidateLaunchCommand(command string) error {
	if strings.ContainsRune(command, 0) {
		return errors.NewValidationError("launch command contains a NUL byte", nil)
	}
	return nil
}
