//go:build darwin

package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// New returns the launchd LaunchAgent manager.
func New() (Manager, error) {
	return launchdManager{}, nil
}

type launchdManager struct{}

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN"
  "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>%s</string>
    <key>ProgramArguments</key>
    <array>
        <string>%s</string>
        <string>serve</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>%s</string>
    <key>StandardErrorPath</key>
    <string>%s</string>
</dict>
</plist>
`

func (launchdManager) plistPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Library", "LaunchAgents", serviceLabel+".plist")
}

func (m launchdManager) Install() error {
	bin, err := binaryPath()
	if err != nil {
		return err
	}
	logPath := LogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.plistPath()), 0755); err != nil {
		return fmt.Errorf("create LaunchAgents directory: %w", err)
	}

	plist := fmt.Sprintf(plistTemplate, serviceLabel, bin, logPath, logPath)
	if err := os.WriteFile(m.plistPath(), []byte(plist), 0644); err != nil {
		return fmt.Errorf("write plist: %w", err)
	}

	return run("launchctl load", "launchctl", "load", "-w", m.plistPath())
}

func (m launchdManager) Uninstall() error {
	pp := m.plistPath()
	if _, err := os.Stat(pp); os.IsNotExist(err) {
		return fmt.Errorf("service not installed")
	}

	_ = exec.Command("launchctl", "unload", pp).Run()
	if err := os.Remove(pp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove plist: %w", err)
	}
	_ = os.Remove(LogPath())
	return nil
}

func (launchdManager) Start() error {
	return run("launchctl start", "launchctl", "start", serviceLabel)
}

func (launchdManager) Stop() error {
	return run("launchctl stop", "launchctl", "stop", serviceLabel)
}

func (m launchdManager) Restart() error {
	_ = m.Stop()
	return m.Start()
}

func (m launchdManager) Status() (*Status, error) {
	s := &Status{LogPath: LogPath()}
	if _, err := os.Stat(m.plistPath()); err == nil {
		s.Installed = true
	}
	if pid, alive := lockFilePID(); alive {
		s.Running = true
		s.PID = pid
	}
	return s, nil
}
