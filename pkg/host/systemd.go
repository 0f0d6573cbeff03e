package host

import (
	"github.com/core-tools/hsu-launcher/pkg/logging"

	"github.com/coreos/go-systemd/v22/daemon"
)

// SystemdNotifier reports readiness to a service manager. Without NOTIFY_SOCKET it does nothing.
type SystemdNotifier struct {
	logger logging.Logger
	notify func(state string) (bool, error)
}

func NewSystemdNotifier(logger logging.Logger) *SystemdNotifier {
	return &SystemdNotifier{
		logger: logger,
		notify: func(state string) (bool, error) {
			return daemon.SdNotify(false, state)
		},
	}
}

func (n *SystemdNotifier) Ready() {
	n.send(daemon.SdNotifyReady)
}

func (n *SystemdNotifier) Stopping() {
	n.send(daemon.SdNotifyStopping)
}

func (n *SystemdNotifier) Status(text string) {
	n.send("STATUS=" + text)
}

func (n *SystemdNotifier) send(state string) {
	sent, err := n.notify(state)
	if err != nil {
		n.logger.Warnf("sd_notify failed, state: %s, error: %v", state, err)
		return
	}
	if sent {
		n.logger.Debugf("sd_notify sent: %s", state)
	}
}
