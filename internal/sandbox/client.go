package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Exec can legitimately take a while (test suites); everything else is quick.
const (
	requestTimeout = 30 * time.Second
	execTimeout    = 150 * time.Second
)

// version is set at build time via ldflags.
var version = "dev"

// SetVersion sets the version string for User-Agent headers.
func SetVersion(v string) { version = v }

// Client talks to the hosted sandbox service. Every request is signed with
// the API key.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	slow    *http.Client
}

// New creates a client for the given service endpoint.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: requestTimeout},
		slow:    &http.Client{Timeout: execTimeout},
	}
}

// APIError is a structured error from the sandbox service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("sandbox: [%d] %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("sandbox: [%d] %s", e.StatusCode, e.Code)
}

// IsSessionGone reports that the session expired or never existed.
func (e *APIError) IsSessionGone() bool {
	return e.StatusCode == 404 || e.Code == "SESSION_NOT_FOUND"
}

// ── Runner implementation ─────────────────────────────────────────────────────

func (c *Client) Create(ctx context.Context, repo, branch string) (*Session, error) {
	var out Session
	err := c.post(ctx, c.client, "/create", map[string]any{
		"repo":   repo,
		"branch": branch,
		"depth":  CloneDepth,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Exec(ctx context.Context, sessionID, command, workdir string) (*ExecResult, error) {
	var out ExecResult
	err := c.post(ctx, c.slow, "/exec_command", map[string]any{
		"session_id": sessionID,
		"command":    command,
		"workdir":    workdir,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ReadFile(ctx context.Context, sessionID, path string) (string, error) {
	var out struct {
		Content string `json:"content"`
	}
	err := c.post(ctx, c.client, "/read_file", map[string]any{
		"session_id": sessionID,
		"path":       path,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

func (c *Client) WriteFile(ctx context.Context, sessionID, path, content string) error {
	return c.post(ctx, c.client, "/write_file", map[string]any{
		"session_id": sessionID,
		"path":       path,
		"content":    content,
	}, nil)
}

func (c *Client) Diff(ctx context.Context, sessionID string) (string, error) {
	var out struct {
		Diff string `json:"diff"`
	}
	err := c.post(ctx, c.client, "/get_diff", map[string]any{
		"session_id": sessionID,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Diff, nil
}

func (c *Client) PrepareCommit(ctx context.Context, sessionID, message string) (*CommitResult, error) {
	var out CommitResult
	err := c.post(ctx, c.client, "/prepare_commit", map[string]any{
		"session_id": sessionID,
		"message":    message,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Push(ctx context.Context, sessionID string) (*PushResult, error) {
	var out PushResult
	err := c.post(ctx, c.client, "/push", map[string]any{
		"session_id": sessionID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CurrentBranch(ctx context.Context, sessionID string) (string, error) {
	var out struct {
		Branch string `json:"branch"`
	}
	err := c.post(ctx, c.client, "/current_branch", map[string]any{
		"session_id": sessionID,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Branch, nil
}

func (c *Client) Cleanup(ctx context.Context, sessionID string) error {
	return c.post(ctx, c.client, "/cleanup", map[string]any{
		"session_id": sessionID,
	}, nil)
}

// ── transport ─────────────────────────────────────────────────────────────────

func (c *Client) post(ctx context.Context, hc *http.Client, path string, body map[string]any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "patchwork/"+version)
	req.Header.Set("X-API-Key", c.apiKey)
	signRequest(req, c.apiKey, data)

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var se struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBody, &se)
		return &APIError{StatusCode: resp.StatusCode, Code: se.Error, Message: se.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response (status %d): %w (body: %s)", resp.StatusCode, err, truncate(string(respBody), 200))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
