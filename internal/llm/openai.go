package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OpenAIProvider implements Provider for any OpenAI-compatible API
// (OpenAI, Kimi, Groq, Together AI, vLLM, etc.).
type OpenAIProvider struct {
	baseURL      string
	apiKey       string
	model        string
	systemPrompt string
	maxTokens    int
	client       *http.Client
}

// NewOpenAI creates a new OpenAI-compatible provider.
func NewOpenAI(baseURL, apiKey, model, systemPrompt string, maxTokens int) *OpenAIProvider {
	return &OpenAIProvider{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		model:        model,
		systemPrompt: systemPrompt,
		maxTokens:    maxTokens,
		client:       &http.Client{Timeout: 120 * time.Second},
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role             string `json:"role"`
	Content          string `json:"content"`
	ReasoningContent string `json:"reasoning_content,omitempty"` // thinking models (Kimi, DeepSeek, etc.)
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// withSystem prepends the system prompt, when set, to the outgoing messages.
func withSystem(systemPrompt string, messages []Message) []chatMessage {
	msgs := make([]chatMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: systemPrompt})
	}
	for _, m := range messages {
		msgs = append(msgs, chatMessage{Role: m.Role, Content: m.Content})
	}
	return msgs
}

func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	req := chatRequest{
		Model:     p.model,
		Messages:  withSystem(p.systemPrompt, messages),
		MaxTokens: p.maxTokens,
	}

	respBody, status, err := postJSON(ctx, p.client, p.baseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + p.apiKey}, req)
	if err != nil {
		return "", err
	}
	if status != 200 {
		return "", fmt.Errorf("LLM returned %d: %s", status, truncateStr(string(respBody), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("LLM error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("LLM returned empty choices")
	}

	msg := parsed.Choices[0].Message
	content := strings.TrimSpace(msg.Content)

	// Thinking models may exhaust max_tokens on reasoning and leave content
	// empty; the conclusion then lives in reasoning_content.
	if content == "" && msg.ReasoningContent != "" {
		content = extractConclusion(msg.ReasoningContent)
	}
	return content, nil
}

func (p *OpenAIProvider) Answer(ctx context.Context, prompt string) (string, error) {
	return p.Chat(ctx, []Message{{Role: "user", Content: prompt}})
}

func (p *OpenAIProvider) Name() string {
	return fmt.Sprintf("openai-compat (%s)", p.model)
}

// extractConclusion pulls the last non-empty paragraph from a reasoning
// chain, which is typically the final answer.
func extractConclusion(reasoning string) string {
	reasoning = strings.TrimSpace(reasoning)
	parts := strings.Split(reasoning, "\n\n")
	for i := len(parts) - 1; i >= 0; i-- {
		if p := strings.TrimSpace(parts[i]); p != "" {
			return p
		}
	}
	return reasoning
}
