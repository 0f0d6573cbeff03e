package launcher

import (
	"errors"

	domainErrors "github.com/core-tools/hsu-launcher/pkg/errors"
)

const (
	ExitCodeOK               = 0
	ExitCodeInvalidArguments = 1
	ExitCodeLaunchFailed     = 2
	ExitCodeNotFound         = 3
)

// ExitCodeFor maps a run result to the process exit code.
// Errors outside the launcher taxonomy exit with 1.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitCodeOK
	}
	switch domainErrors.TypeOf(err) {
	case domainErrors.ErrorTypeCancelled:
		return ExitCodeOK
	case domainErrors.ErrorTypeLaunch:
		return ExitCodeLaunchFailed
	case domainErrors.ErrorTypeNotFound:
		return ExitCodeNotFound
	default:
		return ExitCodeInvalidArguments
	}
}

// UserMessage renders err for a message box: the top-level message, plus the
// cause for launch failures where the OS reason matters to the user
func UserMessage(err error) string {
	var domainErr *domainErrors.DomainError
	if !errors.As(err, &domainErr) {
		return err.Error()
	}
	if domainErr.Type == domainErrors.ErrorTypeLaunch && domainErr.Cause != nil {
		return domainErr.Message + ": " + rootCause(domainErr.Cause).Error()
	}
	return domainErr.Message
}

func rootCause(err error) error {
	for {
		var domainErr *domainErrors.DomainError
		if !errors.As(err, &domainErr) || domainErr.Cause == nil {
			return err
		}
		err = domainErr.Cause
	}
}
