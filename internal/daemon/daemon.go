// Package daemon installs and controls the headless serve mode under the
// platform service manager: launchd on macOS, a systemd user unit on Linux.
package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/patchplaza/patchwork-cli/internal/config"
)

const serviceLabel = "dev.patchplaza.patchwork"

// Manager controls the background service on one platform.
type Manager interface {
	Install() error
	Uninstall() error
	Start() error
	Stop() error
	Restart() error
	Status() (*Status, error)
}

// Status describes the current state of the background service.
type Status struct {
	Installed bool
	Running   bool
	PID       int
	LogPath   string
}

// LogPath returns where the service writes its combined output.
func LogPath() string {
	return filepath.Join(config.Dir(), "daemon.log")
}

// binaryPath resolves the absolute path of the current executable, following
// symlinks so the service definition survives a brew-style install.
func binaryPath() (string, error) {
	p, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("cannot locate binary: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved, nil
	}
	return p, nil
}

// run executes a service-manager command and wraps failures with its output.
func run(what string, name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %s (%w)", what, strings.TrimSpace(string(out)), err)
	}
	return nil
}

// lockFilePID reads the serve-mode lock file and reports whether that
// process is still alive.
func lockFilePID() (int, bool) {
	data, err := os.ReadFile(filepath.Join(config.Dir(), "chat.lock"))
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return pid, false
	}
	return pid, proc.Signal(syscall.Signal(0)) == nil
}
