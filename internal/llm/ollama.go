package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaProvider implements Provider for a local Ollama instance.
type OllamaProvider struct {
	baseURL      string
	model        string
	systemPrompt string
	client       *http.Client
}

// NewOllama creates a new Ollama provider.
func NewOllama(baseURL, model, systemPrompt string) *OllamaProvider {
	return &OllamaProvider{
		baseURL:      strings.TrimRight(baseURL, "/"),
		model:        model,
		systemPrompt: systemPrompt,
		client:       &http.Client{Timeout: 180 * time.Second}, // local models can be slower
	}
}

type ollamaRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type ollamaResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

func (p *OllamaProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	req := ollamaRequest{
		Model:    p.model,
		Messages: withSystem(p.systemPrompt, messages),
		Stream:   false,
	}

	respBody, status, err := postJSON(ctx, p.client, p.baseURL+"/api/chat", nil, req)
	if err != nil {
		return "", fmt.Errorf("%w (is Ollama running?)", err)
	}
	if status != 200 {
		return "", fmt.Errorf("Ollama returned %d: %s", status, truncateStr(string(respBody), 200))
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("Ollama error: %s", parsed.Error)
	}
	return strings.TrimSpace(parsed.Message.Content), nil
}

func (p *OllamaProvider) Answer(ctx context.Context, prompt string) (string, error) {
	return p.Chat(ctx, []Message{{Role: "user", Content: prompt}})
}

func (p *OllamaProvider) Name() string {
	return fmt.Sprintf("ollama (%s)", p.model)
}
