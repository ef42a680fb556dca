package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const anthropicURL = "https://api.anthropic.com/v1/messages"

// AnthropicProvider implements Provider for the Anthropic Messages API.
type AnthropicProvider struct {
	apiKey       string
	model        string
	systemPrompt string
	maxTokens    int
	client       *http.Client
}

// NewAnthropic creates a new Anthropic provider.
func NewAnthropic(apiKey, model, systemPrompt string, maxTokens int) *AnthropicProvider {
	return &AnthropicProvider{
		apiKey:       apiKey,
		model:        model,
		systemPrompt: systemPrompt,
		maxTokens:    maxTokens,
		client:       &http.Client{Timeout: 120 * time.Second},
	}
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *AnthropicProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	// The Messages API takes the system prompt out of band; drop any
	// system-role entries from the history.
	msgs := make([]anthropicMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			continue
		}
		msgs = append(msgs, anthropicMessage{Role: m.Role, Content: m.Content})
	}

	req := anthropicRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		System:    p.systemPrompt,
		Messages:  msgs,
	}

	respBody, status, err := postJSON(ctx, p.client, anthropicURL, map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": "2023-06-01",
	}, req)
	if err != nil {
		return "", err
	}
	if status != 200 {
		return "", fmt.Errorf("Anthropic returned %d: %s", status, truncateStr(string(respBody), 200))
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("Anthropic error: %s", parsed.Error.Message)
	}
	if len(parsed.Content) == 0 {
		return "", fmt.Errorf("Anthropic returned empty content")
	}
	return strings.TrimSpace(parsed.Content[0].Text), nil
}

func (p *AnthropicProvider) Answer(ctx context.Context, prompt string) (string, error) {
	return p.Chat(ctx, []Message{{Role: "user", Content: prompt}})
}

func (p *AnthropicProvider) Name() string {
	return fmt.Sprintf("anthropic (%s)", p.model)
}
