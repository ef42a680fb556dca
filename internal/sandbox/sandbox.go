// Package sandbox provides the isolated git workspace where the agent
// clones, edits, runs commands, and stages commits. Remote mode talks to the
// hosted execution service; local mode runs everything in a temp checkout
// for development.
package sandbox

import "context"

// Output caps. The service enforces the same limits; local mode applies
// them itself so both modes hand identical shapes to the model.
const (
	MaxStdout   = 10_000
	MaxStderr   = 5_000
	MaxReadSize = 50_000
	MaxDiffSize = 20_000

	CloneDepth = 50
)

// Session identifies a live workspace.
type Session struct {
	ID     string `json:"session_id"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
}

// ExecResult carries the outcome of one command.
type ExecResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
	TimedOut bool   `json:"timed_out"`
}

// CommitResult reports a staged commit.
type CommitResult struct {
	SHA     string `json:"sha"`
	Branch  string `json:"branch"`
	Message string `json:"message"`
}

// PushResult reports a completed push.
type PushResult struct {
	Branch string `json:"branch"`
	SHA    string `json:"sha"`
}

// Runner is the workspace contract the tool layer depends on. Implemented
// by Client (remote) and Local.
type Runner interface {
	Create(ctx context.Context, repo, branch string) (*Session, error)
	Exec(ctx context.Context, sessionID, command, workdir string) (*ExecResult, error)
	ReadFile(ctx context.Context, sessionID, path string) (string, error)
	WriteFile(ctx context.Context, sessionID, path, content string) error
	Diff(ctx context.Context, sessionID string) (string, error)
	PrepareCommit(ctx context.Context, sessionID, message string) (*CommitResult, error)
	Push(ctx context.Context, sessionID string) (*PushResult, error)
	CurrentBranch(ctx context.Context, sessionID string) (string, error)
	Cleanup(ctx context.Context, sessionID string) error
}

func capOutput(s string, max int, label string) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[" + label + " truncated]"
}
