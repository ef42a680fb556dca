// Package github is a minimal REST client for the handful of GitHub
// operations the agent exposes as tools.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const requestTimeout = 30 * time.Second

// version is set at build time via ldflags.
var version = "dev"

// SetVersion sets the version string for User-Agent headers.
func SetVersion(v string) { version = v }

// Client is an HTTP client for the GitHub REST API, scoped to one token.
type Client struct {
	token   string
	baseURL string
	client  *http.Client
}

// New creates a client against api.github.com.
func New(token string) *Client {
	return NewWithBase(token, "https://api.github.com")
}

// NewWithBase creates a client against an arbitrary base URL. Used by tests.
func NewWithBase(token, baseURL string) *Client {
	return &Client{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// APIError is a structured error from the GitHub API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: [%d] %s", e.StatusCode, e.Message)
}

// IsNotFound reports a 404.
func (e *APIError) IsNotFound() bool { return e.StatusCode == 404 }

// IsAuth reports an authentication or permission failure.
func (e *APIError) IsAuth() bool { return e.StatusCode == 401 || e.StatusCode == 403 }

// IsRateLimited reports a secondary rate limit response.
func (e *APIError) IsRateLimited() bool { return e.StatusCode == 429 }

// ── API operations ────────────────────────────────────────────────────────────

// GetFile fetches a file's decoded content at an optional ref.
func (c *Client) GetFile(ctx context.Context, repo, path, ref string) (string, error) {
	u := fmt.Sprintf("%s/repos/%s/contents/%s", c.baseURL, repo, url.PathEscape(path))
	if ref != "" {
		u += "?ref=" + url.QueryEscape(ref)
	}
	var out fileContent
	if err := c.get(ctx, u, &out); err != nil {
		return "", err
	}
	if out.Encoding != "base64" {
		return out.Content, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(out.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return string(decoded), nil
}

// ListPulls lists pull requests in the given state (open, closed, all).
func (c *Client) ListPulls(ctx context.Context, repo, state string) ([]PullRequest, error) {
	if state == "" {
		state = "open"
	}
	u := fmt.Sprintf("%s/repos/%s/pulls?state=%s&per_page=30", c.baseURL, repo, url.QueryEscape(state))
	var out []PullRequest
	if err := c.get(ctx, u, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListIssues lists issues in the given state. Pull requests are filtered
// out: the issues endpoint returns both.
func (c *Client) ListIssues(ctx context.Context, repo, state string) ([]Issue, error) {
	if state == "" {
		state = "open"
	}
	u := fmt.Sprintf("%s/repos/%s/issues?state=%s&per_page=30", c.baseURL, repo, url.QueryEscape(state))
	var all []Issue
	if err := c.get(ctx, u, &all); err != nil {
		return nil, err
	}
	issues := all[:0]
	for _, is := range all {
		if is.PullRequest == nil {
			issues = append(issues, is)
		}
	}
	return issues, nil
}

// SearchCode searches code within a single repository.
func (c *Client) SearchCode(ctx context.Context, repo, query string) ([]CodeMatch, error) {
	q := url.QueryEscape(query + " repo:" + repo)
	u := fmt.Sprintf("%s/search/code?q=%s&per_page=20", c.baseURL, q)
	var out codeSearchResult
	if err := c.get(ctx, u, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// CreateIssue opens a new issue.
func (c *Client) CreateIssue(ctx context.Context, repo, title, body string) (*Issue, error) {
	u := fmt.Sprintf("%s/repos/%s/issues", c.baseURL, repo)
	payload, err := json.Marshal(map[string]string{"title": title, "body": body})
	if err != nil {
		return nil, fmt.Errorf("marshal issue: %w", err)
	}
	var out Issue
	if err := c.do(ctx, "POST", u, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DefaultBranch returns the repository's default branch name.
func (c *Client) DefaultBranch(ctx context.Context, repo string) (string, error) {
	var out repoInfo
	if err := c.get(ctx, fmt.Sprintf("%s/repos/%s", c.baseURL, repo), &out); err != nil {
		return "", err
	}
	return out.DefaultBranch, nil
}

// ── transport ─────────────────────────────────────────────────────────────────

func (c *Client) get(ctx context.Context, u string, out any) error {
	return c.do(ctx, "GET", u, nil, out)
}

func (c *Client) do(ctx context.Context, method, u string, body []byte, out any) error {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "patchwork/"+version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var ge ghError
		_ = json.Unmarshal(respBody, &ge)
		msg := ge.Message
		if msg == "" {
			msg = truncate(string(respBody), 200)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
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
