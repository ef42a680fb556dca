package family

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patchplaza/patchwork-cli/internal/protocol"
)

func TestOptIntCoercion(t *testing.T) {
	n, verr := optInt("t", map[string]any{"n": 3.0}, "n", 5)
	require.Nil(t, verr)
	require.Equal(t, 3, n)

	n, verr = optInt("t", map[string]any{"n": "7"}, "n", 5)
	require.Nil(t, verr)
	require.Equal(t, 7, n)

	n, verr = optInt("t", map[string]any{}, "n", 5)
	require.Nil(t, verr)
	require.Equal(t, 5, n)

	_, verr = optInt("t", map[string]any{"n": "many"}, "n", 5)
	require.NotNil(t, verr)

	_, verr = optInt("t", map[string]any{"n": true}, "n", 5)
	require.NotNil(t, verr)
}

func TestReqString(t *testing.T) {
	_, verr := reqString("t", map[string]any{}, "path")
	require.NotNil(t, verr)
	require.Equal(t, "path", verr.Field)

	_, verr = reqString("t", map[string]any{"path": ""}, "path")
	require.NotNil(t, verr)

	_, verr = reqString("t", map[string]any{"path": 1.0}, "path")
	require.NotNil(t, verr)

	s, verr := reqString("t", map[string]any{"path": "a.go"}, "path")
	require.Nil(t, verr)
	require.Equal(t, "a.go", s)
}

func TestNewRegistryWiring(t *testing.T) {
	reg, sb := NewRegistry(Deps{ScratchDir: t.TempDir(), MaxParallel: 4})
	require.NotNil(t, sb)
	require.Equal(t, 4, reg.MaxParallel())

	// Every family's tools resolve.
	for _, name := range []string{
		"read_file", "list_prs", "list_issues", "search_code", "create_issue",
		"sandbox_create", "sandbox_exec", "sandbox_read_file", "sandbox_write_file",
		"sandbox_diff", "sandbox_prepare_commit", "sandbox_push", "sandbox_cleanup",
		"scratchpad_write", "scratchpad_read", "scratchpad_list",
		"web_search", "ask_user", "delegate_coder", "delegate_reviewer",
	} {
		require.True(t, reg.Knows(name), name)
	}

	// Commit and push are the protected mutations.
	require.True(t, reg.IsProtectedMutation("sandbox_prepare_commit"))
	require.True(t, reg.IsProtectedMutation("sandbox_push"))
	require.False(t, reg.IsProtectedMutation("sandbox_write_file"))

	// Detection priority: delegation outranks repository access.
	families := make([]protocol.Family, 0)
	for _, a := range reg.Adapters() {
		families = append(families, a.Family())
	}
	require.Equal(t, []protocol.Family{
		protocol.FamilyDelegate, protocol.FamilyScratchpad, protocol.FamilyWebSearch,
		protocol.FamilyAskUser, protocol.FamilySandbox, protocol.FamilyGitHub,
	}, families)
}

func TestEveryToolHasWorkedExample(t *testing.T) {
	reg, _ := NewRegistry(Deps{ScratchDir: t.TempDir()})

	// The diagnoser and the system prompt both lean on the hint table; a
	// registered tool without an example would surface an empty correction.
	for _, name := range reg.KnownNames() {
		require.NotEmpty(t, protocol.Hint(name), "no worked example for %s", name)
	}

	// And the table carries no examples for tools that do not exist.
	for _, name := range protocol.HintedNames() {
		require.True(t, reg.Knows(name), "worked example for unregistered tool %s", name)
	}
}

func TestMutationClassification(t *testing.T) {
	reg, _ := NewRegistry(Deps{ScratchDir: t.TempDir()})

	readOnly := []string{
		"read_file", "list_prs", "list_issues", "search_code",
		"sandbox_read_file", "sandbox_diff",
		"scratchpad_write", "scratchpad_read", "scratchpad_list",
		"web_search", "ask_user", "delegate_coder", "delegate_reviewer",
	}
	for _, name := range readOnly {
		require.True(t, reg.IsReadOnly(name), name)
	}

	mutating := []string{
		"create_issue", "sandbox_create", "sandbox_exec", "sandbox_write_file",
		"sandbox_prepare_commit", "sandbox_push", "sandbox_cleanup",
	}
	for _, name := range mutating {
		require.False(t, reg.IsReadOnly(name), name)
	}
}

func TestBareArgsClaimsAcrossFamilies(t *testing.T) {
	reg, _ := NewRegistry(Deps{ScratchDir: t.TempDir()})
	d := protocol.NewDetector(reg)

	cases := []struct {
		text string
		tool string
	}{
		{`{"repo": "acme/app", "path": "src/a.ts"}`, "read_file"},
		{`{"repo": "acme/app", "query": "login"}`, "search_code"},
		{`{"command": "npm test"}`, "sandbox_exec"},
		{`{"key": "plan", "content": "notes"}`, "scratchpad_write"},
		{`{"query": "promise cancellation"}`, "web_search"},
		{`{"question": "Which branch?"}`, "ask_user"},
		{`{"task": "Fix the login null check"}`, "delegate_coder"},
	}
	for _, tc := range cases {
		batch := d.DetectAll(tc.text)
		require.Equal(t, 1, batch.Len(), tc.text)
		var got protocol.Invocation
		if batch.Mutating != nil {
			got = *batch.Mutating
		} else {
			got = batch.ReadOnly[0]
		}
		require.Equal(t, tc.tool, got.Name, tc.text)
	}
}
