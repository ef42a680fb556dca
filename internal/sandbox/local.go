package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const localExecTimeout = 60 * time.Second

// Local runs sessions as shallow clones under the OS temp dir. Meant for
// development without the hosted service; same Runner contract, same caps.
type Local struct {
	token string // github token for clone/push, may be empty for public repos

	mu       sync.Mutex
	sessions map[string]*localSession
}

type localSession struct {
	dir    string
	repo   string
	branch string
}

// NewLocal creates a local runner. The token is injected into clone and
// push URLs when present.
func NewLocal(token string) *Local {
	return &Local{
		token:    token,
		sessions: make(map[string]*localSession),
	}
}

func (l *Local) Create(ctx context.Context, repo, branch string) (*Session, error) {
	if branch == "" {
		branch = "main"
	}
	dir, err := os.MkdirTemp("", "patchwork-sandbox-")
	if err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}

	out, err := l.git(ctx, "", "clone", "--depth", fmt.Sprint(CloneDepth), "--branch", branch, l.cloneURL(repo), dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("clone %s@%s: %v (%s)", repo, branch, err, truncate(out, 200))
	}

	id := uuid.NewString()
	l.mu.Lock()
	l.sessions[id] = &localSession{dir: dir, repo: repo, branch: branch}
	l.mu.Unlock()
	return &Session{ID: id, Repo: repo, Branch: branch}, nil
}

func (l *Local) Exec(ctx context.Context, sessionID, command, workdir string) (*ExecResult, error) {
	s, err := l.session(sessionID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, localExecTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = s.dir
	if workdir != "" && workdir != "/workspace" {
		sub, err := s.resolve(strings.TrimPrefix(workdir, "/workspace/"))
		if err != nil {
			return nil, err
		}
		cmd.Dir = sub
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	res := &ExecResult{
		Stdout:   capOutput(stdout.String(), MaxStdout, "stdout"),
		Stderr:   capOutput(stderr.String(), MaxStderr, "stderr"),
		TimedOut: ctx.Err() == context.DeadlineExceeded,
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	} else if runErr != nil {
		res.ExitCode = -1
	}
	return res, nil
}

func (l *Local) ReadFile(ctx context.Context, sessionID, path string) (string, error) {
	s, err := l.session(sessionID)
	if err != nil {
		return "", err
	}
	full, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", err
	}
	return capOutput(string(data), MaxReadSize, "file"), nil
}

func (l *Local) WriteFile(ctx context.Context, sessionID, path, content string) error {
	s, err := l.session(sessionID)
	if err != nil {
		return err
	}
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("create parent dirs: %w", err)
	}
	return os.WriteFile(full, []byte(content), 0644)
}

func (l *Local) Diff(ctx context.Context, sessionID string) (string, error) {
	s, err := l.session(sessionID)
	if err != nil {
		return "", err
	}
	// Include untracked files the way the service does.
	if _, err := l.git(ctx, s.dir, "add", "-N", "."); err != nil {
		return "", err
	}
	out, err := l.git(ctx, s.dir, "diff")
	if err != nil {
		return "", err
	}
	return capOutput(out, MaxDiffSize, "diff"), nil
}

func (l *Local) PrepareCommit(ctx context.Context, sessionID, message string) (*CommitResult, error) {
	s, err := l.session(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := l.git(ctx, s.dir, "add", "-A"); err != nil {
		return nil, err
	}
	if out, err := l.git(ctx, s.dir, "commit", "-m", message); err != nil {
		return nil, fmt.Errorf("commit: %v (%s)", err, truncate(out, 200))
	}
	sha, err := l.git(ctx, s.dir, "rev-parse", "HEAD")
	if err != nil {
		return nil, err
	}
	branch, err := l.CurrentBranch(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &CommitResult{SHA: strings.TrimSpace(sha), Branch: branch, Message: message}, nil
}

func (l *Local) Push(ctx context.Context, sessionID string) (*PushResult, error) {
	s, err := l.session(sessionID)
	if err != nil {
		return nil, err
	}
	branch, err := l.CurrentBranch(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if out, err := l.git(ctx, s.dir, "push", l.cloneURL(s.repo), "HEAD:"+branch); err != nil {
		return nil, fmt.Errorf("push: %v (%s)", err, truncate(out, 200))
	}
	sha, err := l.git(ctx, s.dir, "rev-parse", "HEAD")
	if err != nil {
		return nil, err
	}
	return &PushResult{Branch: branch, SHA: strings.TrimSpace(sha)}, nil
}

func (l *Local) CurrentBranch(ctx context.Context, sessionID string) (string, error) {
	s, err := l.session(sessionID)
	if err != nil {
		return "", err
	}
	out, err := l.git(ctx, s.dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (l *Local) Cleanup(ctx context.Context, sessionID string) error {
	l.mu.Lock()
	s, ok := l.sessions[sessionID]
	delete(l.sessions, sessionID)
	l.mu.Unlock()
	if !ok {
		return nil
	}
	return os.RemoveAll(s.dir)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (l *Local) session(id string) (*localSession, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sessions[id]
	if !ok {
		return nil, &APIError{StatusCode: 404, Code: "SESSION_NOT_FOUND", Message: "no such session: " + id}
	}
	return s, nil
}

// resolve maps a session-relative path to an absolute one and rejects
// anything that escapes the workspace.
func (s *localSession) resolve(path string) (string, error) {
	full := filepath.Join(s.dir, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.dir, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %q escapes the workspace", path)
	}
	return full, nil
}

func (l *Local) cloneURL(repo string) string {
	if l.token != "" {
		return "https://x-access-token:" + l.token + "@github.com/" + repo + ".git"
	}
	return "https://github.com/" + repo + ".git"
}

func (l *Local) git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}
