package updater

import (
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSemverNewer(t *testing.T) {
	cases := []struct {
		remote, current string
		want            bool
	}{
		{"0.2.0", "0.1.9", true},
		{"0.1.9", "0.2.0", false},
		{"1.0.0", "1.0.0", false},
		{"v1.0.1", "v1.0.0", true},
		{"0.1.0", "dev", true},
		{"0.1.0", "", true},
		{"1.0.0-rc1", "1.0.0", false},
		{"1.0.1-rc1", "1.0.0", true},
	}
	for _, tc := range cases {
		got := semverNewer(tc.remote, tc.current)
		require.Equal(t, tc.want, got, "%s vs %s", tc.remote, tc.current)
	}
}

func TestParseSemver(t *testing.T) {
	require.Equal(t, [3]int{1, 12, 3}, parseSemver("1.12.3"))
	require.Equal(t, [3]int{2, 0, 0}, parseSemver("2"))
	require.Equal(t, [3]int{1, 2, 0}, parseSemver("1.2-beta.1"))
}

func TestArchiveURL(t *testing.T) {
	url := archiveURL("0.3.1")
	require.True(t, strings.HasPrefix(url, cdnBase+"/v0.3.1/"))
	require.Contains(t, url, fmt.Sprintf("patchwork_0.3.1_%s_%s", runtime.GOOS, runtime.GOARCH))
}
