//go:build !windows && !darwin

package process

import (
	"os/exec"
)

// openWithDefaultHandler hands a URI or document to xdg-open. There is no
// fallback to a web browser, a steam:// URI means nothing to one.
var openWithDefaultHandler = openWithXDG

func openWithXDG(target string) error {
	path, err := exec.LookPath("xdg-open")
	if err != nil {
		return err
	}

	cmd := exec.Command(path, target)
	setupProcessAttributes(cmd)
	if err := cmd.Start(); err != nil {
		return err
	}
	// Some desktops keep xdg-open alive with the handler, the caller bounds this wait
	return cmd.Wait()
}
