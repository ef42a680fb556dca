// Package updater implements self-update from the release CDN.
//
// CDN layout:
//
//	dl.patchplaza.dev/patchwork/version.json
//	dl.patchplaza.dev/patchwork/v0.1.0/patchwork_0.1.0_darwin_arm64.tar.gz
package updater

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"
)

const cdnBase = "https://dl.patchplaza.dev/patchwork"

// VersionInfo is the remote version manifest.
type VersionInfo struct {
	Version   string `json:"version"`
	Changelog string `json:"changelog"`
}

// CheckUpdate fetches the latest manifest and returns it when it is newer
// than current, nil when already up to date.
func CheckUpdate(current string) (*VersionInfo, error) {
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Get(cdnBase + "/version.json")
	if err != nil {
		return nil, fmt.Errorf("failed to check for updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("update server returned %d", resp.StatusCode)
	}

	var info VersionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to parse version info: %w", err)
	}

	if !semverNewer(info.Version, current) {
		return nil, nil
	}
	return &info, nil
}

// Apply downloads the given release and swaps it in for the running binary.
func Apply(info *VersionInfo) error {
	fmt.Printf("Downloading v%s ...\n", info.Version)

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Get(archiveURL(info.Version))
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("download returned %d, binary may not be published yet", resp.StatusCode)
	}

	staged, err := extractBinary(resp.Body)
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}
	defer os.Remove(staged)

	if err := swapBinary(staged); err != nil {
		return err
	}

	fmt.Printf("Updated to v%s\n", info.Version)
	if info.Changelog != "" {
		fmt.Printf("Changelog: %s\n", info.Changelog)
	}
	return nil
}

// swapBinary replaces the running executable with staged. The old binary is
// parked at .bak during the swap so a failed rename can roll back.
func swapBinary(staged string) error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("cannot locate current binary: %w", err)
	}

	bak := execPath + ".bak"
	_ = os.Remove(bak)
	if err := os.Rename(execPath, bak); err != nil {
		return fmt.Errorf("failed to backup current binary: %w", err)
	}
	if err := os.Rename(staged, execPath); err != nil {
		_ = os.Rename(bak, execPath)
		return fmt.Errorf("failed to install new binary: %w", err)
	}
	_ = os.Chmod(execPath, 0755)
	_ = os.Remove(bak)
	return nil
}

// archiveURL follows the GoReleaser name template:
// patchwork_VERSION_OS_ARCH.tar.gz (zip on windows).
func archiveURL(ver string) string {
	ext := "tar.gz"
	if runtime.GOOS == "windows" {
		ext = "zip"
	}
	return fmt.Sprintf("%s/v%s/patchwork_%s_%s_%s.%s",
		cdnBase, ver, ver, runtime.GOOS, runtime.GOARCH, ext)
}

// extractBinary streams a tar.gz archive and stages the patchwork binary in
// a temp file, returning its path.
func extractBinary(r io.Reader) (string, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return "", fmt.Errorf("gzip: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return "", fmt.Errorf("patchwork binary not found in archive")
		}
		if err != nil {
			return "", fmt.Errorf("tar: %w", err)
		}
		if !strings.HasSuffix(hdr.Name, "patchwork") && !strings.HasSuffix(hdr.Name, "patchwork.exe") {
			continue
		}

		tmp, err := os.CreateTemp("", "patchwork-update-*")
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(tmp, tr); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return "", err
		}
		tmp.Close()
		_ = os.Chmod(tmp.Name(), 0755)
		return tmp.Name(), nil
	}
}

// semverNewer reports whether remote is a strictly higher version than
// current. A "dev" or empty current always updates.
func semverNewer(remote, current string) bool {
	if current == "dev" || current == "" {
		return true
	}
	rp := parseSemver(strings.TrimPrefix(remote, "v"))
	cp := parseSemver(strings.TrimPrefix(current, "v"))
	for i := 0; i < 3; i++ {
		if rp[i] != cp[i] {
			return rp[i] > cp[i]
		}
	}
	return false
}

func parseSemver(s string) [3]int {
	var parts [3]int
	n := 0
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			parts[n] = parts[n]*10 + int(c-'0')
		case c == '.':
			n++
			if n >= 3 {
				return parts
			}
		default:
			// pre-release suffix
			return parts
		}
	}
	return parts
}
