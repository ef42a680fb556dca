//go:build !darwin && !linux

package daemon

import "fmt"

// New returns an error on platforms without a supported service manager.
func New() (Manager, error) {
	return nil, fmt.Errorf("background service not supported on this platform; run 'patchwork serve' in the foreground instead")
}
