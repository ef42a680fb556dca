// Package websearch is a thin client for the Brave web search API (or any
// endpoint serving the same response shape).
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.search.brave.com/res/v1/web/search"

// Result is one search hit.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Client queries the search API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// New creates a search client. An empty baseURL selects the Brave endpoint.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

type searchResponse struct {
	Web struct {
		Results []Result `json:"results"`
	} `json:"web"`
}

// Search runs a query and returns up to max results.
func (c *Client) Search(ctx context.Context, query string, max int) ([]Result, error) {
	u := fmt.Sprintf("%s?q=%s&count=%d", c.baseURL, url.QueryEscape(query), max)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == 429 {
		return nil, &RateLimitError{}
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("search failed (%d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	results := sr.Web.Results
	if len(results) > max {
		results = results[:max]
	}
	return results, nil
}

// RateLimitError marks a 429 from the search backend.
type RateLimitError struct{}

func (*RateLimitError) Error() string { return "search rate limit exceeded" }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
