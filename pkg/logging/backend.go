package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Format selects the log backend and its encoding
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
	FormatPlain   Format = "plain"
)

type BackendConfig struct {
	Level     string // debug, info, warn, error
	Format    Format // empty picks console on a terminal, json otherwise
	Output    string // stdout or stderr
	Caller    bool
	SessionID string

	// Writer overrides Output when set
	Writer io.Writer
}

// Backend owns the process-wide log sink. Loggers are created on top of Funcs.
type Backend struct {
	Funcs  LogFuncs
	Format Format
	sync   func() error
}

func DefaultBackendConfig() BackendConfig {
	return BackendConfig{
		Level:  "info",
		Output: "stdout",
	}
}

func NewBackend(config BackendConfig) (*Backend, error) {
	if config.Format == "" {
		config.Format = DetectFormat(config.Output)
	}

	switch config.Format {
	case FormatJSON, FormatConsole:
		return newZapBackend(config)
	case FormatPlain:
		return newPlainBackend(config)
	default:
		return nil, fmt.Errorf("unsupported log format: %s", config.Format)
	}
}

// Logger creates a prefixed Logger writing to this backend
func (b *Backend) Logger(prefix string) Logger {
	return NewLogger(prefix, b.Funcs)
}

func (b *Backend) Sync() error {
	if b.sync == nil {
		return nil
	}
	return b.sync()
}

// DetectFormat returns console when output is an interactive terminal
func DetectFormat(output string) Format {
	f := os.Stdout
	if output == "stderr" {
		f = os.Stderr
	}
	if term.IsTerminal(int(f.Fd())) {
		return FormatConsole
	}
	return FormatJSON
}

// ParseLevel maps a level name to the LogLevel* constants
func ParseLevel(levelStr string) (int, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return LogLevelDebug, nil
	case "info", "":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("invalid log level: %s", levelStr)
	}
}

func outputWriter(config BackendConfig) io.Writer {
	if config.Writer != nil {
		return config.Writer
	}
	if config.Output == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}
