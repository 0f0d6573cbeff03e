package process

import (
	"context"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/core-tools/hsu-launcher/pkg/errors"
	"github.com/core-tools/hsu-launcher/pkg/logging"
)

// handlerStartBound is how long a default handler may take to report a failure.
// A helper still running after that counts as started.
var handlerStartBound = 2 * time.Second

// StartShell starts command the way a desktop shell would. Executables are started
// directly and detached, anything else (URIs such as steam://run/123, documents)
// goes to the default handler. It never waits for the started program.
func StartShell(ctx context.Context, command string, logger logging.Logger) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return errors.NewValidationError("launch command is empty", nil)
	}
	if err := ValidateLaunchCommand(command); err != nil {
		return err
	}

	if path, ok := resolveExecutable(command); ok {
		return startDetached(ctx, path, logger)
	}

	logger.Infof("Opening with default handler: '%s'", command)
	return openDefault(ctx, command, logger)
}

// openDefault runs the default handler without waiting on it past handlerStartBound,
// some helpers stay alive for as long as the program they opened
func openDefault(ctx context.Context, command string, logger logging.Logger) error {
	if err := ctx.Err(); err != nil {
		return errors.NewCancelledError("launch cancelled", err)
	}

	result := make(chan error, 1)
	go func() {
		result <- openWithDefaultHandler(command)
	}()

	timer := time.NewTimer(handlerStartBound)
	defer timer.Stop()

	select {
	case err := <-result:
		if err != nil {
			return errors.NewLaunchError("default handler failed", err).WithContext("command", command)
		}
		return nil
	case <-timer.C:
		logger.Debugf("Default handler still running after %v, treating as started", handlerStartBound)
		return nil
	case <-ctx.Done():
		return errors.NewCancelledError("launch cancelled", ctx.Err())
	}
}

func startDetached(ctx context.Context, path string, logger logging.Logger) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.NewLaunchError("failed to get absolute path", err).WithContext("executable_path", path)
	}

	// Not CommandContext: the launched program must outlive the launcher
	cmd := exec.Command(absPath)
	cmd.Dir = filepath.Dir(absPath)
	cmd.Env = os.Environ()
	setupProcessAttributes(cmd)

	logger.Debugf("Starting executable: '%s', working directory: '%s'", absPath, cmd.Dir)

	if err := ctx.Err(); err != nil {
		return errors.NewCancelledError("launch cancelled", err)
	}
	if err := cmd.Start(); err != nil {
		return errors.NewLaunchError("failed to start the process", err).WithContext("executable_path", absPath)
	}

	logger.Infof("Started executable, PID: %d", cmd.Process.Pid)

	// Reap the child so it never lingers as a zombie that still looks alive
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

// resolveExecutable reports whether command names a program that can be started directly
func resolveExecutable(command string) (string, bool) {
	if u, err := url.Parse(command); err == nil && len(u.Scheme) > 1 {
		return "", false
	}

	if info, err := os.Stat(command); err == nil {
		if info.Mode().IsRegular() && isExecutable(command, info) {
			return command, true
		}
		return "", false
	}

	if !strings.ContainsAny(command, `/\ `) {
		if path, err := exec.LookPath(command); err == nil {
			return path, true
		}
	}
	return "", false
}

func isExecutable(path string, info os.FileInfo) bool {
	if runtime.GOOS == "windows" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".exe", ".bat", ".cmd", ".com":
			return true
		}
		return false
	}
	return info.Mode()&0111 != 0
}
