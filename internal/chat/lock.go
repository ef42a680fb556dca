package chat

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/patchplaza/patchwork-cli/internal/config"
)

func lockPath() string {
	return filepath.Join(config.Dir(), "chat.lock")
}

// AcquireLock writes a PID lock file so two sessions cannot mutate the same
// workspace. A lock left by a dead process is reclaimed. The returned
// function releases the lock.
func AcquireLock() (func(), error) {
	path := lockPath()

	if pid, held := readLock(path); held {
		return nil, fmt.Errorf(
			"another patchwork session is running (PID %d)\n"+
				"If this is wrong, remove: %s", pid, path)
	}

	if err := os.MkdirAll(config.Dir(), 0700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0600); err != nil {
		return nil, fmt.Errorf("create lock file: %w", err)
	}
	return func() { _ = os.Remove(path) }, nil
}

// readLock reports the PID in an existing lock file and whether that process
// is still alive. Stale files are removed.
func readLock(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err == nil && processAlive(pid) {
		return pid, true
	}
	_ = os.Remove(path)
	return 0, false
}

// processAlive tests PID existence with signal 0.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
