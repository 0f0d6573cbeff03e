package launcher

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/core-tools/hsu-launcher/pkg/errors"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Duration reads "500ms" style values from both YAML and TOML
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

type HostMode string

const (
	HostModeAuto     HostMode = "auto"
	HostModeHeadless HostMode = "headless"
	HostModeTerminal HostMode = "terminal"
)

// Config holds the supervisor tunables. Target selection stays on the command line.
type Config struct {
	Discovery DiscoveryConfig `yaml:"discovery" toml:"discovery"`
	Monitor   MonitorConfig   `yaml:"monitor" toml:"monitor"`
	Cleanup   CleanupConfig   `yaml:"cleanup" toml:"cleanup"`
	Host      HostConfig      `yaml:"host" toml:"host"`
	Log       LogConfig       `yaml:"log" toml:"log"`
	Notify    NotifyConfig    `yaml:"notify" toml:"notify"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
	PIDFile   PIDFileConfig   `yaml:"pid_file" toml:"pid_file"`
}

type DiscoveryConfig struct {
	Interval Duration `yaml:"interval,omitempty" toml:"interval,omitempty"`
	// StartDelay keeps the host surface on top before the first poll
	StartDelay       Duration `yaml:"start_delay,omitempty" toml:"start_delay,omitempty"`
	ProgressInterval Duration `yaml:"progress_interval,omitempty" toml:"progress_interval,omitempty"`
}

type MonitorConfig struct {
	Interval        Duration `yaml:"interval,omitempty" toml:"interval,omitempty"`
	ExitGracePeriod Duration `yaml:"exit_grace_period,omitempty" toml:"exit_grace_period,omitempty"`
	// FollowRelaunch re-checks the process list once the grace period ends and keeps
	// monitoring a new process with the same name. Pointer to distinguish unset from false.
	FollowRelaunch *bool `yaml:"follow_relaunch,omitempty" toml:"follow_relaunch,omitempty"`
}

func (c MonitorConfig) FollowRelaunchEnabled() bool {
	return c.FollowRelaunch == nil || *c.FollowRelaunch
}

type CleanupConfig struct {
	GracefulTimeout Duration `yaml:"graceful_timeout,omitempty" toml:"graceful_timeout,omitempty"`
	KillTimeout     Duration `yaml:"kill_timeout,omitempty" toml:"kill_timeout,omitempty"`
}

type HostConfig struct {
	Mode HostMode `yaml:"mode,omitempty" toml:"mode,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level,omitempty" toml:"level,omitempty"`
	Format string `yaml:"format,omitempty" toml:"format,omitempty"`
	Output string `yaml:"output,omitempty" toml:"output,omitempty"`
}

type NotifyConfig struct {
	// Pointer to distinguish unset from false
	Enabled *bool `yaml:"enabled,omitempty" toml:"enabled,omitempty"`
}

type MetricsConfig struct {
	// Textfile is written in Prometheus text format on exit when set
	Textfile string `yaml:"textfile,omitempty" toml:"textfile,omitempty"`
}

// PIDFileConfig controls the launcher PID file written per target
type PIDFileConfig struct {
	Enabled bool `yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	// Directory overrides the OS default for Context
	Directory string `yaml:"directory,omitempty" toml:"directory,omitempty"`
	// Context is system, user or session
	Context string `yaml:"context,omitempty" toml:"context,omitempty"`
}

func (c NotifyConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	config := &Config{
		Discovery: DiscoveryConfig{
			Interval:         Duration(500 * time.Millisecond),
			StartDelay:       Duration(2 * time.Second),
			ProgressInterval: Duration(5 * time.Second),
		},
		Monitor: MonitorConfig{
			Interval:        Duration(time.Second),
			ExitGracePeriod: Duration(3 * time.Second),
		},
		Cleanup: CleanupConfig{
			GracefulTimeout: Duration(3000 * time.Millisecond),
			KillTimeout:     Duration(500 * time.Millisecond),
		},
	}
	setConfigDefaults(config)
	return config
}

// LoadConfigFromFile loads a YAML (.yaml, .yml) or TOML (.toml) configuration file
func LoadConfigFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	config, err := parseConfig(data, filepath.Ext(filename))
	if err != nil {
		return nil, errors.NewValidationError("failed to parse configuration", err).WithContext("filename", filename)
	}
	return config, nil
}

func parseConfig(data []byte, ext string) (*Config, error) {
	// Keys absent from the file keep their defaults, explicit zero values are kept
	config := DefaultConfig()

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(config); err != nil && err != io.EOF {
			return nil, err
		}
	case ".toml":
		decoder := toml.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(config); err != nil {
			return nil, err
		}
	default:
		return nil, errors.NewValidationError("unsupported configuration format: "+ext, nil)
	}

	setConfigDefaults(config)
	return config, nil
}

// setConfigDefaults fills string fields left empty
func setConfigDefaults(config *Config) {
	if config.Host.Mode == "" {
		config.Host.Mode = HostModeAuto
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Output == "" {
		config.Log.Output = "stdout"
	}
	if config.PIDFile.Context == "" {
		config.PIDFile.Context = "user"
	}
}
