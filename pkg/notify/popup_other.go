//go:build !windows

package notify

import (
	"github.com/gen2brain/beeep"
)

func showPopup(title, message string) error {
	return beeep.Alert(title, message, "")
}
