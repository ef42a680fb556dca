package family

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patchplaza/patchwork-cli/internal/protocol"
)

type fakeAnswerer struct {
	gotPrompt string
	answer    string
	err       error
}

func (f *fakeAnswerer) Answer(_ context.Context, prompt string) (string, error) {
	f.gotPrompt = prompt
	return f.answer, f.err
}

func (f *fakeAnswerer) Name() string { return "fake" }

func TestDelegateValidate(t *testing.T) {
	d := NewDelegate(nil)

	_, verr := d.Validate("delegate_coder", map[string]any{"task": "short"})
	require.NotNil(t, verr)
	require.Equal(t, "task", verr.Field)

	inv, verr := d.Validate("delegate_reviewer", map[string]any{"task": "Review the new login flow for races"})
	require.Nil(t, verr)
	require.Equal(t, "delegate_reviewer", inv.Name)

	_, verr = d.Validate("delegate_designer", map[string]any{"task": "Design anything at all here"})
	require.NotNil(t, verr)
}

func TestDelegateExecutePrependsRolePreamble(t *testing.T) {
	fa := &fakeAnswerer{answer: "patch attached"}
	d := NewDelegate(fa)

	inv, _ := d.Validate("delegate_coder", map[string]any{"task": "Fix the null check in auth.ts"})
	res := d.Execute(context.Background(), *inv, protocol.ExecContext{})
	require.Nil(t, res.StructuredError)
	require.Equal(t, "patch attached", res.Text)
	require.True(t, strings.HasSuffix(fa.gotPrompt, "Fix the null check in auth.ts"))
	require.Contains(t, fa.gotPrompt, "coding sub-agent")

	inv, _ = d.Validate("delegate_reviewer", map[string]any{"task": "Review the login fix diff"})
	d.Execute(context.Background(), *inv, protocol.ExecContext{})
	require.Contains(t, fa.gotPrompt, "review sub-agent")
}

func TestAskUserValidate(t *testing.T) {
	a := NewAskUser()

	_, verr := a.Validate("ask_user", map[string]any{})
	require.NotNil(t, verr)
	require.Equal(t, "question", verr.Field)

	_, verr = a.Validate("ask_user", map[string]any{"question": "Which?", "choices": []any{"a", 2.0}})
	require.NotNil(t, verr)

	inv, verr := a.Validate("ask_user", map[string]any{"question": "Which branch?", "choices": []any{"main", "dev"}})
	require.Nil(t, verr)
	require.Len(t, inv.Args["choices"], 2)
}

func TestAskUserExecuteProducesQuestionCard(t *testing.T) {
	a := NewAskUser()
	inv, _ := a.Validate("ask_user", map[string]any{"question": "Which branch?", "choices": []any{"main", "dev"}})

	res := a.Execute(context.Background(), *inv, protocol.ExecContext{})
	require.Nil(t, res.StructuredError)
	require.NotNil(t, res.Card)
	require.Equal(t, "question", res.Card.Kind)
	require.Equal(t, "main | dev", res.Card.Fields["choices"])
}
