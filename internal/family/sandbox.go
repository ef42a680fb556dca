package family

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/patchplaza/patchwork-cli/internal/protocol"
	"github.com/patchplaza/patchwork-cli/internal/sandbox"
)

// Sandbox exposes the isolated workspace: create, run, edit, diff, commit,
// push, clean up. It tracks the live session so follow-up calls do not need
// to repeat the session id.
type Sandbox struct {
	runner sandbox.Runner

	mu        sync.Mutex
	sessionID string
}

func NewSandbox(runner sandbox.Runner) *Sandbox {
	return &Sandbox{runner: runner}
}

func (s *Sandbox) Family() protocol.Family { return protocol.FamilySandbox }

func (s *Sandbox) KnownNames() []string {
	return []string{
		"sandbox_create", "sandbox_exec", "sandbox_read_file", "sandbox_write_file",
		"sandbox_diff", "sandbox_prepare_commit", "sandbox_push", "sandbox_cleanup",
	}
}

func (s *Sandbox) IsReadOnlyName(name string) bool {
	return name == "sandbox_read_file" || name == "sandbox_diff"
}

func (s *Sandbox) Validate(name string, args map[string]any) (*protocol.Invocation, *protocol.ValidationError) {
	out := map[string]any{}
	switch name {
	case "sandbox_create":
		repo, verr := reqString(name, args, "repo")
		if verr != nil {
			return nil, verr
		}
		out["repo"] = repo
		branch, verr := optString(name, args, "branch", "main")
		if verr != nil {
			return nil, verr
		}
		out["branch"] = branch
	case "sandbox_exec":
		command, verr := reqString(name, args, "command")
		if verr != nil {
			return nil, verr
		}
		out["command"] = command
		workdir, verr := optString(name, args, "workdir", "")
		if verr != nil {
			return nil, verr
		}
		if workdir != "" {
			out["workdir"] = workdir
		}
	case "sandbox_read_file":
		path, verr := reqString(name, args, "path")
		if verr != nil {
			return nil, verr
		}
		out["path"] = path
	case "sandbox_write_file":
		path, verr := reqString(name, args, "path")
		if verr != nil {
			return nil, verr
		}
		out["path"] = path
		content, ok := args["content"]
		if !ok {
			return nil, &protocol.ValidationError{Name: name, Field: "content", Reason: "required"}
		}
		str, ok := content.(string)
		if !ok {
			return nil, &protocol.ValidationError{Name: name, Field: "content", Reason: fmt.Sprintf("must be a string, got %T", content)}
		}
		out["content"] = str
	case "sandbox_prepare_commit":
		message, verr := reqString(name, args, "message")
		if verr != nil {
			return nil, verr
		}
		out["message"] = message
	case "sandbox_diff", "sandbox_push", "sandbox_cleanup":
	default:
		return nil, unknownTool(name)
	}
	return &protocol.Invocation{Family: s.Family(), Name: name, Args: out}, nil
}

// RecoverBareArgs claims {command} as sandbox_exec. A repo key means the
// object belongs to the github family instead.
func (s *Sandbox) RecoverBareArgs(args map[string]any) (string, bool) {
	if has(args, "command") && !has(args, "repo") {
		return "sandbox_exec", true
	}
	return "", false
}

func (s *Sandbox) Detect(text string) *protocol.Invocation {
	return protocol.DetectFirst(text, s.Validate)
}

// CurrentBranch reports the branch of the live session. Satisfies the
// dispatcher's guard contract; errors when no session is active.
func (s *Sandbox) CurrentBranch(ctx context.Context) (string, error) {
	id := s.session()
	if id == "" {
		return "", errors.New("no active sandbox session")
	}
	return s.runner.CurrentBranch(ctx, id)
}

func (s *Sandbox) session() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *Sandbox) setSession(id string) {
	s.mu.Lock()
	s.sessionID = id
	s.mu.Unlock()
}

func (s *Sandbox) Execute(ctx context.Context, inv protocol.Invocation, ec protocol.ExecContext) protocol.ExecutionResult {
	if inv.Name == "sandbox_create" {
		return s.create(ctx, inv, ec)
	}

	id := s.session()
	if id == "" {
		id = ec.SandboxSessionID
	}
	if id == "" {
		return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrSandboxUnreachable,
			"no sandbox session; call sandbox_create first")}
	}

	switch inv.Name {
	case "sandbox_exec":
		command, _ := inv.Args["command"].(string)
		workdir, _ := inv.Args["workdir"].(string)
		res, err := s.runner.Exec(ctx, id, command, workdir)
		if err != nil {
			return s.fail(inv.Name, err)
		}
		if res.TimedOut {
			return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrExecTimeout,
				"command timed out: %s", command)}
		}
		text := res.Stdout
		if res.Stderr != "" {
			text += "\n[stderr]\n" + res.Stderr
		}
		text = strings.TrimSpace(text)
		if res.ExitCode != 0 {
			return protocol.ExecutionResult{
				Text: text,
				StructuredError: protocol.Errf(protocol.ErrExecNonZeroExit,
					"command exited with %d: %s", res.ExitCode, command),
			}
		}
		if text == "" {
			text = "(command completed with no output)"
		}
		return protocol.ExecutionResult{Text: text}

	case "sandbox_read_file":
		path, _ := inv.Args["path"].(string)
		content, err := s.runner.ReadFile(ctx, id, path)
		if err != nil {
			return s.fail(inv.Name, err)
		}
		return protocol.ExecutionResult{Text: content}

	case "sandbox_write_file":
		path, _ := inv.Args["path"].(string)
		content, _ := inv.Args["content"].(string)
		if err := s.runner.WriteFile(ctx, id, path, content); err != nil {
			var ae *sandbox.APIError
			if errors.As(err, &ae) && !ae.IsSessionGone() {
				return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrWriteFailed, "write %s: %s", path, ae.Message)}
			}
			return s.fail(inv.Name, err)
		}
		return protocol.ExecutionResult{Text: fmt.Sprintf("wrote %d bytes to %s", len(content), path)}

	case "sandbox_diff":
		diff, err := s.runner.Diff(ctx, id)
		if err != nil {
			return s.fail(inv.Name, err)
		}
		if strings.TrimSpace(diff) == "" {
			diff = "(no changes)"
		}
		return protocol.ExecutionResult{Text: diff}

	case "sandbox_prepare_commit":
		message, _ := inv.Args["message"].(string)
		commit, err := s.runner.PrepareCommit(ctx, id, message)
		if err != nil {
			return s.fail(inv.Name, err)
		}
		return protocol.ExecutionResult{
			Text: fmt.Sprintf("committed %s on %s", commit.SHA, commit.Branch),
			Card: &protocol.Card{Kind: "commit", Title: commit.Message,
				Fields: map[string]string{"sha": commit.SHA, "branch": commit.Branch}},
		}

	case "sandbox_push":
		push, err := s.runner.Push(ctx, id)
		if err != nil {
			return s.fail(inv.Name, err)
		}
		return protocol.ExecutionResult{
			Text: fmt.Sprintf("pushed %s to %s", push.SHA, push.Branch),
			Card: &protocol.Card{Kind: "push", Title: "pushed " + push.Branch,
				Fields: map[string]string{"sha": push.SHA, "branch": push.Branch}},
		}

	case "sandbox_cleanup":
		if err := s.runner.Cleanup(ctx, id); err != nil {
			return s.fail(inv.Name, err)
		}
		s.setSession("")
		return protocol.ExecutionResult{
			Text:        "sandbox session closed",
			SideEffects: &protocol.SideEffects{SandboxID: ""},
		}
	}
	return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrUnknown, "unhandled tool %s", inv.Name)}
}

func (s *Sandbox) create(ctx context.Context, inv protocol.Invocation, ec protocol.ExecContext) protocol.ExecutionResult {
	repo, _ := inv.Args["repo"].(string)
	branch, _ := inv.Args["branch"].(string)
	if ec.AllowedRepo != "" && repo != ec.AllowedRepo {
		return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrAuthFailure,
			"repo %s is not in scope; this session is limited to %s", repo, ec.AllowedRepo)}
	}
	sess, err := s.runner.Create(ctx, repo, branch)
	if err != nil {
		return s.fail(inv.Name, err)
	}
	s.setSession(sess.ID)
	return protocol.ExecutionResult{
		Text: fmt.Sprintf("sandbox ready: %s on %s (session %s)", sess.Repo, sess.Branch, sess.ID),
		Card: &protocol.Card{Kind: "sandbox", Title: "workspace created",
			Fields: map[string]string{"repo": sess.Repo, "branch": sess.Branch}},
		SideEffects: &protocol.SideEffects{SandboxID: sess.ID, BranchSwitched: sess.Branch},
	}
}

// fail maps runner errors onto the structured taxonomy. Network failures
// and vanished sessions are retryable from the model's point of view.
func (s *Sandbox) fail(tool string, err error) protocol.ExecutionResult {
	var ae *sandbox.APIError
	if errors.As(err, &ae) {
		if ae.IsSessionGone() {
			s.setSession("")
			return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrSandboxUnreachable,
				"%s: session expired, call sandbox_create again", tool)}
		}
		return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrUnknown, "%s: %s", tool, ae.Message)}
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrSandboxUnreachable, "%s: %v", tool, err)}
	}
	return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrUnknown, "%s: %v", tool, err)}
}
