package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/core-tools/hsu-launcher/pkg/events"
	"github.com/core-tools/hsu-launcher/pkg/host"
	"github.com/core-tools/hsu-launcher/pkg/launcher"
	"github.com/core-tools/hsu-launcher/pkg/logging"
	"github.com/core-tools/hsu-launcher/pkg/notify"
	"github.com/core-tools/hsu-launcher/pkg/process"
	"github.com/core-tools/hsu-launcher/pkg/processfile"
	"github.com/core-tools/hsu-launcher/pkg/supervisor"

	"github.com/google/uuid"
	flags "github.com/jessevdk/go-flags"
	"golang.org/x/term"
)

const appTitle = "hsu-launcher"

type flagOptions struct {
	Config    string `long:"config" description:"YAML or TOML configuration file"`
	LogLevel  string `long:"log-level" description:"debug, info, warn or error"`
	LogFormat string `long:"log-format" description:"json, console or plain"`
	Host      string `long:"host" description:"host surface: auto, headless or terminal"`
	NoNotify  bool   `long:"no-notify" description:"do not show message boxes or desktop alerts"`

	Args struct {
		Target []string `positional-arg-name:"processName [launchCommand] [timeoutSeconds]"`
	} `positional-args:"yes"`
}

func logPrefix(module string) string {
	return fmt.Sprintf("module: %s , ", module)
}

func main() {
	os.Exit(run())
}

func run() int {
	var opts flagOptions
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Usage = "[OPTIONS] " + launcher.Usage
	var err error
	_, err = parser.ParseArgs(argv)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			fmt.Println(err)
			return launcher.ExitCodeOK
		}
		fmt.Fprintf(os.Stderr, "Command line flags parsing failed: %v\n", err)
		return launcher.ExitCodeInvalidArguments
	}

	config, err := loadConfig(opts)
	if err != nil {
		notify.New(notify.Config{Popup: !opts.NoNotify}, logging.NewNopLogger()).Error(appTitle, launcher.UserMessage(err))
		return launcher.ExitCodeFor(err)
	}

	sessionID := uuid.New().String()
	backend, err := logging.NewBackend(logging.BackendConfig{
		Level:     config.Log.Level,
		Format:    logging.Format(config.Log.Format),
		Output:    config.Log.Output,
		SessionID: sessionID,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return launcher.ExitCodeInvalidArguments
	}
	defer backend.Sync()

	logger := backend.Logger(logPrefix("launcher"))
	logger.Infof("Starting %s, session: %s, opts: %+v", appTitle, sessionID, opts)

	notifier := notify.New(notify.Config{Popup: config.Notify.IsEnabled() && !opts.NoNotify}, logger)

	surface, err := createHost(config.Host.Mode, config.Log.Output, backend.Logger(logPrefix("host")))
	if err != nil {
		logger.Warnf("Terminal host unavailable, running headless: %v", err)
		surface = host.NewHeadless(backend.Logger(logPrefix("host")))
	}

	metrics := supervisor.NewMetrics()
	bus := events.New()
	unsubscribe := bus.Subscribe(func(e events.CleanupStateChangedEvent) {
		logger.Debugf("Cleanup state: %s -> %s, PID: %d", e.From, e.To, e.PID)
	})
	defer unsubscribe()

	// Written from the pipeline, not the async bus, so removal after the run always sees it
	var pidFiles *pidFileTracker
	var onDiscovered func(events.ProcessDiscoveredEvent)
	if config.PIDFile.Enabled {
		pidFiles = newPIDFileTracker(config, backend.Logger(logPrefix("pidfile")))
		onDiscovered = pidFiles.onDiscovered
	}

	windows := process.NewWindowAPI()
	sup, err := supervisor.NewSupervisor(supervisor.OptionsFromConfig(config), supervisor.Dependencies{
		Launcher:  launcher.NewLauncher(nil, backend.Logger(logPrefix("launch"))),
		Processes: process.NewOSProcessAPI(windows, backend.Logger(logPrefix("process"))),
		Windows:   windows,
		Host:      surface,
		Bus:       bus,
		Metrics:   metrics,
		Service:   host.NewSystemdNotifier(backend.Logger(logPrefix("systemd"))),
		Logger:    backend.Logger(logPrefix("supervisor")),

		OnDiscovered: onDiscovered,
	})
	if err != nil {
		logger.Errorf("Failed to create supervisor: %v", err)
		return launcher.ExitCodeFor(err)
	}

	outcome, err := supervisor.RunWithSignals(context.Background(), sup, opts.Args.Target)

	if pidFiles != nil {
		pidFiles.removeAll()
	}
	if config.Metrics.Textfile != "" {
		if writeErr := metrics.WriteTextfile(config.Metrics.Textfile); writeErr != nil {
			logger.Warnf("Failed to write metrics textfile %s: %v", config.Metrics.Textfile, writeErr)
		}
	}

	if err != nil {
		notifier.Error(appTitle, launcher.UserMessage(err))
	}
	logger.Infof("Exiting, reason: %s, exit code: %d", outcome.Reason, outcome.ExitCode)
	return outcome.ExitCode
}

func loadConfig(opts flagOptions) (*launcher.Config, error) {
	config := launcher.DefaultConfig()
	if opts.Config != "" {
		loaded, err := launcher.LoadConfigFromFile(opts.Config)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if opts.LogLevel != "" {
		config.Log.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		config.Log.Format = opts.LogFormat
	}
	if opts.Host != "" {
		config.Host.Mode = launcher.HostMode(strings.ToLower(opts.Host))
	}

	if err := launcher.ValidateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// createHost picks the terminal surface in auto mode only when logs do not share the terminal
func createHost(mode launcher.HostMode, logOutput string, logger logging.Logger) (host.Host, error) {
	switch mode {
	case launcher.HostModeHeadless:
		return host.NewHeadless(logger), nil
	case launcher.HostModeTerminal:
		return host.NewTerminal(appTitle, logger)
	}

	logStream := os.Stdout
	if logOutput == "stderr" {
		logStream = os.Stderr
	}
	if term.IsTerminal(int(os.Stdin.Fd())) && !term.IsTerminal(int(logStream.Fd())) {
		return host.NewTerminal(appTitle, logger)
	}
	return host.NewHeadless(logger), nil
}

// pidFileTracker writes the launcher PID once a target is discovered so
// external tooling can signal this launcher
type pidFileTracker struct {
	files  *processfile.Manager
	logger logging.Logger

	mutex   sync.Mutex
	written map[string]bool
}

func newPIDFileTracker(config *launcher.Config, logger logging.Logger) *pidFileTracker {
	return &pidFileTracker{
		files: processfile.NewManager(processfile.Config{
			BaseDirectory:   config.PIDFile.Directory,
			ServiceContext:  processfile.ServiceContext(config.PIDFile.Context),
			UseSubdirectory: config.PIDFile.Directory == "",
		}, logger),
		logger:  logger,
		written: make(map[string]bool),
	}
}

func (t *pidFileTracker) onDiscovered(e events.ProcessDiscoveredEvent) {
	target := process.LookupName(e.Name)

	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.written[target] {
		return
	}
	if pid := t.files.RunningPID(target); pid != 0 {
		t.logger.Warnf("Another launcher with PID %d is supervising '%s'", pid, target)
	}
	if _, err := t.files.WritePIDFile(target, os.Getpid()); err != nil {
		t.logger.Warnf("Failed to write PID file: %v", err)
		return
	}
	t.written[target] = true
}

// removeAll deletes only the files this launcher wrote
func (t *pidFileTracker) removeAll() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	for target := range t.written {
		if err := t.files.RemovePIDFile(target); err != nil {
			t.logger.Warnf("Failed to remove PID file: %v", err)
		}
	}
	t.written = make(map[string]bool)
}
