package launcher

import (
	"fmt"
	"time"

	"github.com/core-tools/hsu-launcher/pkg/errors"
	"github.com/core-tools/hsu-launcher/pkg/logging"
)

const (
	minPollInterval = 100 * time.Millisecond
	maxPollInterval = time.Second
	maxWaitTimeout  = time.Minute
)

// ValidateConfig reports every invalid field, not just the first one
func ValidateConfig(config *Config) error {
	if config == nil {
		return errors.NewValidationError("configuration cannot be nil", nil)
	}

	collection := errors.NewErrorCollection()
	collection.Add(validateRange("discovery.interval", config.Discovery.Interval, minPollInterval, maxPollInterval))
	collection.Add(validateRange("discovery.start_delay", config.Discovery.StartDelay, 0, maxWaitTimeout))
	collection.Add(validateRange("discovery.progress_interval", config.Discovery.ProgressInterval, time.Second, maxWaitTimeout))
	collection.Add(validateRange("monitor.interval", config.Monitor.Interval, minPollInterval, maxPollInterval))
	collection.Add(validateRange("monitor.exit_grace_period", config.Monitor.ExitGracePeriod, 0, maxWaitTimeout))
	collection.Add(validateRange("cleanup.graceful_timeout", config.Cleanup.GracefulTimeout, time.Millisecond, maxWaitTimeout))
	collection.Add(validateRange("cleanup.kill_timeout", config.Cleanup.KillTimeout, time.Millisecond, maxWaitTimeout))
	collection.Add(ValidateHostMode(config.Host.Mode))
	collection.Add(validateLogConfig(config.Log))
	collection.Add(validatePIDFileConfig(config.PIDFile))

	if err := collection.ToError(); err != nil {
		return errors.NewValidationError("invalid configuration", err)
	}
	return nil
}

func ValidateHostMode(mode HostMode) error {
	switch mode {
	case HostModeAuto, HostModeHeadless, HostModeTerminal:
		return nil
	}
	return errors.NewValidationError(fmt.Sprintf("host.mode must be auto, headless or terminal, got '%s'", mode), nil)
}

func validateLogConfig(config LogConfig) error {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		return errors.NewValidationError("invalid log.level", err)
	}
	switch logging.Format(config.Format) {
	case "", logging.FormatJSON, logging.FormatConsole, logging.FormatPlain:
	default:
		return errors.NewValidationError(fmt.Sprintf("log.format must be json, console or plain, got '%s'", config.Format), nil)
	}
	switch config.Output {
	case "stdout", "stderr":
	default:
		return errors.NewValidationError(fmt.Sprintf("log.output must be stdout or stderr, got '%s'", config.Output), nil)
	}
	return nil
}

func validatePIDFileConfig(config PIDFileConfig) error {
	switch config.Context {
	case "system", "user", "session":
		return nil
	}
	return errors.NewValidationError(fmt.Sprintf("pid_file.context must be system, user or session, got '%s'", config.Context), nil)
}

func validateRange(field string, value Duration, min, max time.Duration) error {
	if value.Std() < min || value.Std() > max {
		return errors.NewValidationError(fmt.Sprintf("%s must be between %v and %v, got %v", field, min, max, value.Std()), nil)
	}
	return nil
}
