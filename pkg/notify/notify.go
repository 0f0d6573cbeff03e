package notify

import (
	"fmt"
	"io"
	"os"

	"github.com/core-tools/hsu-launcher/pkg/logging"
)

// Notifier shows fatal launcher errors to the user
type Notifier interface {
	Error(title, message string)
}

type Config struct {
	// Popup enables the desktop message box / alert on top of the stderr line
	Popup bool
	// Out receives the message line, stderr when nil
	Out io.Writer
}

type notifier struct {
	out    io.Writer
	popup  func(title, message string) error
	logger logging.Logger
}

func New(config Config, logger logging.Logger) Notifier {
	n := &notifier{
		out:    config.Out,
		logger: logger,
	}
	if n.out == nil {
		n.out = os.Stderr
	}
	if config.Popup {
		n.popup = showPopup
	}
	return n
}

func (n *notifier) Error(title, message string) {
	fmt.Fprintf(n.out, "%s: %s\n", title, message)
	if n.popup == nil {
		return
	}
	// Popups are best effort, a headless session simply has nowhere to show them
	if err := n.popup(title, message); err != nil {
		n.logger.Warnf("Failed to show error popup: %v", err)
	}
}
