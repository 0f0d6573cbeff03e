package supervisor

import (
	"time"

	"github.com/core-tools/hsu-launcher/pkg/launcher"
)

type Options struct {
	DiscoveryInterval   time.Duration
	DiscoveryStartDelay time.Duration
	ProgressInterval    time.Duration
	MonitorInterval     time.Duration
	ExitGracePeriod     time.Duration
	GracefulTimeout     time.Duration
	KillTimeout         time.Duration

	// FollowRelaunch adopts a new process with the target name found at the end
	// of the exit grace period instead of shutting down
	FollowRelaunch bool
}

func DefaultOptions() Options {
	return OptionsFromConfig(launcher.DefaultConfig())
}

func OptionsFromConfig(config *launcher.Config) Options {
	return Options{
		DiscoveryInterval:   config.Discovery.Interval.Std(),
		DiscoveryStartDelay: config.Discovery.StartDelay.Std(),
		ProgressInterval:    config.Discovery.ProgressInterval.Std(),
		MonitorInterval:     config.Monitor.Interval.Std(),
		ExitGracePeriod:     config.Monitor.ExitGracePeriod.Std(),
		GracefulTimeout:     config.Cleanup.GracefulTimeout.Std(),
		KillTimeout:         config.Cleanup.KillTimeout.Std(),
		FollowRelaunch:      config.Monitor.FollowRelaunchEnabled(),
	}
}
