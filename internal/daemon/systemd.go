//go:build linux

package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// New returns the systemd user-unit manager.
func New() (Manager, error) {
	return systemdManager{}, nil
}

type systemdManager struct{}

const unitFile = "patchwork.service"

const unitTemplate = `[Unit]
Description=Patchwork Maintenance Agent
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart=%s serve
Restart=on-failure
RestartSec=30
StandardOutput=append:%s
StandardError=append:%s

[Install]
WantedBy=default.target
`

func (systemdManager) unitPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "systemd", "user", unitFile)
}

func (m systemdManager) Install() error {
	bin, err := binaryPath()
	if err != nil {
		return err
	}
	logPath := LogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.unitPath()), 0755); err != nil {
		return fmt.Errorf("create systemd directory: %w", err)
	}

	unit := fmt.Sprintf(unitTemplate, bin, logPath, logPath)
	if err := os.WriteFile(m.unitPath(), []byte(unit), 0644); err != nil {
		return fmt.Errorf("write unit file: %w", err)
	}

	if err := run("daemon-reload", "systemctl", "--user", "daemon-reload"); err != nil {
		return err
	}
	return run("enable service", "systemctl", "--user", "enable", "--now", "patchwork")
}

func (m systemdManager) Uninstall() error {
	if _, err := os.Stat(m.unitPath()); os.IsNotExist(err) {
		return fmt.Errorf("service not installed")
	}

	_ = exec.Command("systemctl", "--user", "disable", "--now", "patchwork").Run()
	if err := os.Remove(m.unitPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove unit file: %w", err)
	}
	_ = exec.Command("systemctl", "--user", "daemon-reload").Run()
	_ = os.Remove(LogPath())
	return nil
}

func (systemdManager) Start() error {
	return run("start service", "systemctl", "--user", "start", "patchwork")
}

func (systemdManager) Stop() error {
	return run("stop service", "systemctl", "--user", "stop", "patchwork")
}

func (systemdManager) Restart() error {
	return run("restart service", "systemctl", "--user", "restart", "patchwork")
}

func (m systemdManager) Status() (*Status, error) {
	s := &Status{LogPath: LogPath()}

	if _, err := os.Stat(m.unitPath()); err == nil {
		s.Installed = true
	}

	out, err := exec.Command("systemctl", "--user", "is-active", "patchwork").Output()
	if err != nil || strings.TrimSpace(string(out)) != "active" {
		return s, nil
	}
	s.Running = true

	pidOut, err := exec.Command("systemctl", "--user", "show", "patchwork",
		"--property=MainPID", "--value").Output()
	if err == nil {
		if pid, e := strconv.Atoi(strings.TrimSpace(string(pidOut))); e == nil && pid > 0 {
			s.PID = pid
		}
	}
	return s, nil
}
