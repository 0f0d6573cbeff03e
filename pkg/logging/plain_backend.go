package logging

import (
	sprintfLogging "github.com/core-tools/hsu-core/pkg/logging/sprintf"
)

// newPlainBackend uses the hsu-core sprintf logger; it has no level filter of its own
func newPlainBackend(config BackendConfig) (*Backend, error) {
	threshold, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	std := sprintfLogging.NewStdSprintfLogger()
	prefix := ""
	if config.SessionID != "" {
		prefix = "session: " + config.SessionID + " , "
	}

	return &Backend{
		Funcs: LogFuncs{
			LogLevelf: func(level int, format string, args ...interface{}) {
				if level < threshold {
					return
				}
				format = prefix + format
				switch level {
				case LogLevelDebug:
					std.Debugf(format, args...)
				case LogLevelInfo:
					std.Infof(format, args...)
				case LogLevelWarn:
					std.Warnf(format, args...)
				default:
					std.Errorf(format, args...)
				}
			},
		},
		Format: FormatPlain,
	}, nil
}
