package family

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patchplaza/patchwork-cli/internal/protocol"
)

func TestScratchpadValidateKeys(t *testing.T) {
	p := NewScratchpad(t.TempDir())

	_, verr := p.Validate("scratchpad_write", map[string]any{"key": "has space", "content": "x"})
	require.NotNil(t, verr)
	require.Equal(t, "key", verr.Field)

	_, verr = p.Validate("scratchpad_write", map[string]any{"key": "../escape", "content": "x"})
	require.NotNil(t, verr)

	_, verr = p.Validate("scratchpad_write", map[string]any{"key": strings.Repeat("k", 65), "content": "x"})
	require.NotNil(t, verr)

	inv, verr := p.Validate("scratchpad_write", map[string]any{"key": "plan-v2.1_final", "content": "x"})
	require.Nil(t, verr)
	require.Equal(t, "plan-v2.1_final", inv.Args["key"])
}

func TestScratchpadValidateContentCap(t *testing.T) {
	p := NewScratchpad(t.TempDir())

	_, verr := p.Validate("scratchpad_write", map[string]any{"key": "big", "content": strings.Repeat("a", maxNoteSize+1)})
	require.NotNil(t, verr)
	require.Equal(t, "content", verr.Field)
}

func TestScratchpadRoundTrip(t *testing.T) {
	p := NewScratchpad(t.TempDir())
	ctx := context.Background()

	res := p.Execute(ctx, protocol.Invocation{Name: "scratchpad_write",
		Args: map[string]any{"key": "plan", "content": "1. read  2. fix"}}, protocol.ExecContext{})
	require.Nil(t, res.StructuredError)

	res = p.Execute(ctx, protocol.Invocation{Name: "scratchpad_read",
		Args: map[string]any{"key": "plan"}}, protocol.ExecContext{})
	require.Nil(t, res.StructuredError)
	require.Equal(t, "1. read  2. fix", res.Text)

	res = p.Execute(ctx, protocol.Invocation{Name: "scratchpad_list", Args: map[string]any{}}, protocol.ExecContext{})
	require.Equal(t, "plan", res.Text)
}

func TestScratchpadReadMissing(t *testing.T) {
	p := NewScratchpad(t.TempDir())

	res := p.Execute(context.Background(), protocol.Invocation{Name: "scratchpad_read",
		Args: map[string]any{"key": "nope"}}, protocol.ExecContext{})
	require.NotNil(t, res.StructuredError)
	require.Equal(t, protocol.ErrFileNotFound, res.StructuredError.Type)
}

func TestScratchpadListEmpty(t *testing.T) {
	p := NewScratchpad(t.TempDir())

	res := p.Execute(context.Background(), protocol.Invocation{Name: "scratchpad_list", Args: map[string]any{}},
		protocol.ExecContext{})
	require.Equal(t, "no notes", res.Text)
}
