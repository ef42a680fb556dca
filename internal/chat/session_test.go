package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patchplaza/patchwork-cli/internal/family"
	"github.com/patchplaza/patchwork-cli/internal/llm"
	"github.com/patchplaza/patchwork-cli/internal/protocol"
)

// scriptedLLM returns canned replies in order. Errors in the script are
// returned as call failures.
type scriptedLLM struct {
	replies []string
	errs    []error
	calls   int
	lastMsg []llm.Message
}

func (s *scriptedLLM) Chat(_ context.Context, msgs []llm.Message) (string, error) {
	s.lastMsg = msgs
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i >= len(s.replies) {
		return "", fmt.Errorf("script exhausted at call %d", i)
	}
	return s.replies[i], nil
}

func (s *scriptedLLM) Answer(ctx context.Context, prompt string) (string, error) {
	return s.Chat(ctx, nil)
}

func (s *scriptedLLM) Name() string { return "scripted" }

func testSession(t *testing.T, provider llm.Provider) *Session {
	t.Helper()
	reg, sb := family.NewRegistry(family.Deps{ScratchDir: t.TempDir(), MaxParallel: 4})
	state := &State{SessionID: "test", Repo: "acme/app"}
	ec := protocol.ExecContext{AllowedRepo: "acme/app", IsMainProtected: true, DefaultBranch: "main"}
	return New(provider, reg, sb, ec, state)
}

func TestTurnPlainAnswer(t *testing.T) {
	p := &scriptedLLM{replies: []string{"The bug is in the pagination loop; the bound is off by one."}}
	s := testSession(t, p)

	reply, err := s.Turn(context.Background(), "what causes the bug?")
	require.NoError(t, err)
	require.Contains(t, reply, "pagination loop")
	require.Equal(t, 1, p.calls)
	require.Equal(t, 0, s.State.ToolCalls)

	// Transcript: user question, assistant answer.
	require.Len(t, s.State.Messages, 2)
	require.Equal(t, "user", s.State.Messages[0].Role)
	require.Equal(t, "assistant", s.State.Messages[1].Role)
}

func TestTurnExecutesToolThenAnswers(t *testing.T) {
	p := &scriptedLLM{replies: []string{
		`Saving my plan first.` + "\n" + `{"tool": "scratchpad_write", "args": {"key": "plan", "content": "fix the bound"}}`,
		"Plan saved. The fix is a one-line change.",
	}}
	s := testSession(t, p)

	reply, err := s.Turn(context.Background(), "plan the fix")
	require.NoError(t, err)
	require.Equal(t, "Plan saved. The fix is a one-line change.", reply)
	require.Equal(t, 1, s.State.ToolCalls)
	require.Equal(t, 0, s.State.ToolErrors)

	// The second model call saw the tool results as a user message.
	last := p.lastMsg[len(p.lastMsg)-1]
	require.Equal(t, "user", last.Role)
	require.Contains(t, last.Content, "[tool results]")
	require.Contains(t, last.Content, "### scratchpad_write")
	require.Contains(t, last.Content, "saved note")
}

func TestTurnInjectsCorrectionOnBadCall(t *testing.T) {
	p := &scriptedLLM{replies: []string{
		`{"tool": "web_search", "args": {}}`,
		"Never mind, I can answer directly: use context cancellation.",
	}}
	s := testSession(t, p)

	reply, err := s.Turn(context.Background(), "how do I cancel a request?")
	require.NoError(t, err)
	require.Contains(t, reply, "context cancellation")
	require.Equal(t, 1, s.State.Corrections)

	// The corrective message is model-visible and carries the worked example.
	var correction string
	for _, m := range s.State.Messages {
		if m.Role == "user" && len(m.Content) > 10 && m.Content[:10] == "[protocol]" {
			correction = m.Content
		}
	}
	require.Contains(t, correction, "web_search")
	require.Contains(t, correction, `"query"`)
}

func TestTurnCorrectionBudgetExhausts(t *testing.T) {
	bad := `{"tool": "web_search", "args": {}}`
	p := &scriptedLLM{replies: []string{bad, bad, bad}}
	s := testSession(t, p)

	reply, err := s.Turn(context.Background(), "search something")
	require.NoError(t, err)
	// After the budget the raw reply is surfaced rather than looping forever.
	require.Equal(t, bad, reply)
	require.Equal(t, maxCorrections, s.State.Corrections)
}

func TestTurnGuardBlockCountsAndReports(t *testing.T) {
	p := &scriptedLLM{replies: []string{
		`{"tool": "sandbox_prepare_commit", "args": {"message": "fix"}}`,
		"I need a work branch first; creating the sandbox on a feature branch.",
	}}
	s := testSession(t, p)

	_, err := s.Turn(context.Background(), "commit it")
	require.NoError(t, err)
	require.Equal(t, 1, s.State.GuardBlocks)
	require.Equal(t, 1, s.State.ToolErrors)

	// The model sees the block as a structured error result.
	last := p.lastMsg[len(p.lastMsg)-1]
	require.Contains(t, last.Content, "EDIT_GUARD_BLOCKED")
}

func TestTurnRetriesTransientLLMFailure(t *testing.T) {
	p := &scriptedLLM{
		replies: []string{"", "All good."},
		errs:    []error{errors.New("transient: connection reset"), nil},
	}
	s := testSession(t, p)

	reply, err := s.Turn(context.Background(), "ping")
	require.NoError(t, err)
	require.Equal(t, "All good.", reply)
	require.Equal(t, 2, p.calls)
}

func TestRenderResults(t *testing.T) {
	out := renderResults([]protocol.Outcome{
		{
			Invocation: protocol.Invocation{Name: "read_file"},
			Result:     protocol.ExecutionResult{Text: "package main"},
		},
		{
			Invocation: protocol.Invocation{Name: "sandbox_exec"},
			Result: protocol.ExecutionResult{
				Text:            "FAIL",
				StructuredError: protocol.Errf(protocol.ErrExecNonZeroExit, "exit 1"),
			},
		},
	})
	require.Contains(t, out, "### read_file\npackage main")
	require.Contains(t, out, "### sandbox_exec\nerror EXEC_NON_ZERO_EXIT (retryable=false): exit 1\nFAIL")
}

func TestEmitForwardsEvents(t *testing.T) {
	p := &scriptedLLM{replies: []string{"done"}}
	s := testSession(t, p)

	var types []string
	s.OnEvent = func(eventType, _ string, _ any) { types = append(types, eventType) }

	_, err := s.Turn(context.Background(), "hello")
	require.NoError(t, err)
	require.Contains(t, types, "turn")
	require.Contains(t, types, "reply")
}
