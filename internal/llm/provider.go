// Package llm provides the model backends the agent chats through.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/patchplaza/patchwork-cli/internal/config"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Provider answers prompts using an LLM. Chat carries full conversation
// history; Answer is the one-shot convenience used by delegates.
type Provider interface {
	// Chat sends the conversation and returns the assistant's reply.
	Chat(ctx context.Context, messages []Message) (string, error)
	// Answer generates a response to a single prompt.
	Answer(ctx context.Context, prompt string) (string, error)
	// Name returns the provider name for display.
	Name() string
}

// NewProvider creates an LLM provider based on the config. The systemPrompt
// is injected into each request (except gateway mode, which applies
// server-side prompts).
func NewProvider(cfg *config.LLMConfig, systemPrompt string, maxTokens int) (Provider, error) {
	switch cfg.Provider {
	case "gateway":
		return NewGateway(cfg.APIKey, cfg.Model), nil
	case "openai":
		return NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model, systemPrompt, maxTokens), nil
	case "anthropic":
		return NewAnthropic(cfg.APIKey, cfg.Model, systemPrompt, maxTokens), nil
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return NewOllama(baseURL, cfg.Model, systemPrompt), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}

// postJSON marshals payload, POSTs it with the given headers, and returns
// the response body and status code. Transport errors come back wrapped.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any) ([]byte, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

func truncateStr(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
