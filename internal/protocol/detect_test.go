package protocol

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func call(name string, args string) string {
	return fmt.Sprintf(`{"tool": "%s", "args": %s}`, name, args)
}

func TestDetectAllSingleRead(t *testing.T) {
	reg, _ := probeRegistry(0)
	d := NewDetector(reg)

	batch := d.DetectAll("Let me look.\n" + call("probe_read", `{"path": "a.go"}`))
	require.Len(t, batch.ReadOnly, 1)
	require.Nil(t, batch.Mutating)
	require.Equal(t, "probe_read", batch.ReadOnly[0].Name)
	require.Equal(t, map[string]any{"path": "a.go"}, batch.ReadOnly[0].Args)
}

func TestDetectAllDedupFirstWins(t *testing.T) {
	reg, _ := probeRegistry(0)
	d := NewDetector(reg)

	// Same canonical call twice, key order flipped in the source text.
	text := `{"tool": "probe_write", "args": {"path": "a.go", "content": "x"}}` + "\n" +
		`{"args": {"content": "x", "path": "a.go"}, "tool": "probe_write"}`
	batch := d.DetectAll(text)
	require.Equal(t, 1, batch.Len())
	require.NotNil(t, batch.Mutating)
}

func TestDetectAllDistinctArgsAreDistinctCalls(t *testing.T) {
	reg, _ := probeRegistry(0)
	d := NewDetector(reg)

	text := call("probe_read", `{"path": "a.go"}`) + "\n" + call("probe_read", `{"path": "b.go"}`)
	batch := d.DetectAll(text)
	require.Len(t, batch.ReadOnly, 2)
}

func TestDetectAllReadAfterMutationDiscarded(t *testing.T) {
	reg, _ := probeRegistry(0)
	d := NewDetector(reg)

	text := call("probe_read", `{"path": "a.go"}`) + "\n" +
		call("probe_write", `{"path": "a.go", "content": "x"}`) + "\n" +
		call("probe_read", `{"path": "b.go"}`)
	batch := d.DetectAll(text)
	require.Len(t, batch.ReadOnly, 1)
	require.Equal(t, "a.go", batch.ReadOnly[0].Args["path"])
	require.NotNil(t, batch.Mutating)
}

func TestDetectAllSecondMutationDiscarded(t *testing.T) {
	reg, _ := probeRegistry(0)
	d := NewDetector(reg)

	text := call("probe_write", `{"path": "a.go", "content": "x"}`) + "\n" +
		call("probe_write", `{"path": "b.go", "content": "y"}`)
	batch := d.DetectAll(text)
	require.Len(t, batch.ReadOnly, 0)
	require.NotNil(t, batch.Mutating)
	require.Equal(t, "a.go", batch.Mutating.Args["path"])
}

func TestDetectAllParallelCap(t *testing.T) {
	reg, _ := probeRegistry(2)
	d := NewDetector(reg)

	var sb strings.Builder
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&sb, "%s\n", call("probe_read", fmt.Sprintf(`{"path": "f%d.go"}`, i)))
	}
	batch := d.DetectAll(sb.String())
	require.Len(t, batch.ReadOnly, 2)
	require.Equal(t, "f0.go", batch.ReadOnly[0].Args["path"])
	require.Equal(t, "f1.go", batch.ReadOnly[1].Args["path"])
}

func TestDetectAllInvalidCallsSkipped(t *testing.T) {
	reg, _ := probeRegistry(0)
	d := NewDetector(reg)

	// Missing required path: skipped, later valid call still detected.
	text := call("probe_read", `{}`) + "\n" + call("probe_list", `{}`)
	batch := d.DetectAll(text)
	require.Len(t, batch.ReadOnly, 1)
	require.Equal(t, "probe_list", batch.ReadOnly[0].Name)
}

func TestDetectAllUnknownToolSkipped(t *testing.T) {
	reg, _ := probeRegistry(0)
	d := NewDetector(reg)

	batch := d.DetectAll(call("no_such_tool", `{"path": "a.go"}`))
	require.True(t, batch.Empty())
}

func TestDetectAllBareArgsRecovery(t *testing.T) {
	reg, fa := probeRegistry(0)
	fa.bare = func(args map[string]any) (string, bool) {
		if _, ok := args["path"]; ok {
			return "probe_read", true
		}
		return "", false
	}
	d := NewDetector(reg)

	batch := d.DetectAll(`{"path": "a.go"}`)
	require.Len(t, batch.ReadOnly, 1)
	require.Equal(t, "probe_read", batch.ReadOnly[0].Name)
}

func TestDetectAllBareArgsNotUsedWhenToolKeyPresent(t *testing.T) {
	reg, fa := probeRegistry(0)
	fa.bare = func(args map[string]any) (string, bool) { return "probe_list", true }
	d := NewDetector(reg)

	// A tool-keyed object that validates wins outright; recovery never runs.
	batch := d.DetectAll(call("probe_read", `{"path": "a.go"}`))
	require.Equal(t, "probe_read", batch.ReadOnly[0].Name)
}

func TestDetectAllBareArgsNotUsedAfterFailedValidation(t *testing.T) {
	reg, fa := probeRegistry(0)
	fa.bare = func(args map[string]any) (string, bool) {
		if _, ok := args["path"]; ok {
			return "probe_read", true
		}
		return "", false
	}
	d := NewDetector(reg)

	// An explicit call that fails validation must fall through to the
	// Diagnoser; the incidental bare object next to it is not executed.
	text := call("probe_read", `{}`) + "\n" + `{"path": "a.go"}`
	batch := d.DetectAll(text)
	require.True(t, batch.Empty())
}

func TestDetectSingleRegistrationPriority(t *testing.T) {
	first := &fakeAdapter{
		family:   Family("first"),
		readOnly: map[string]bool{"first_tool": true},
	}
	second := &fakeAdapter{
		family:   Family("second"),
		readOnly: map[string]bool{"second_tool": true},
	}
	reg := NewRegistry(0)
	reg.Add(first)
	reg.Add(second)
	d := NewDetector(reg)

	// second_tool appears earlier in the text, but first's family is
	// registered first and is scanned first.
	text := call("second_tool", `{}`) + "\n" + call("first_tool", `{}`)
	inv := d.DetectSingle(text)
	require.NotNil(t, inv)
	require.Equal(t, "first_tool", inv.Name)
}

func TestCanonicalKeyIgnoresKeyOrder(t *testing.T) {
	a := Invocation{Family: "probe", Name: "probe_read", Args: map[string]any{"x": 1.0, "y": "z"}}
	b := Invocation{Family: "probe", Name: "probe_read", Args: map[string]any{"y": "z", "x": 1.0}}
	require.Equal(t, a.CanonicalKey(), b.CanonicalKey())
}

func TestSplitCall(t *testing.T) {
	name, args, ok := splitCall(map[string]any{"tool": "probe_read", "args": map[string]any{"path": "a"}})
	require.True(t, ok)
	require.Equal(t, "probe_read", name)
	require.Equal(t, "a", args["path"])

	// Absent args defaults to an empty map.
	_, args, ok = splitCall(map[string]any{"tool": "probe_list"})
	require.True(t, ok)
	require.NotNil(t, args)

	// Non-object args is rejected.
	_, _, ok = splitCall(map[string]any{"tool": "probe_read", "args": "path"})
	require.False(t, ok)

	// Missing or non-string tool is rejected.
	_, _, ok = splitCall(map[string]any{"args": map[string]any{}})
	require.False(t, ok)
	_, _, ok = splitCall(map[string]any{"tool": 7.0})
	require.False(t, ok)
}
