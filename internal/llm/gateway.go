package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const gatewayURL = "https://llm.patchplaza.dev"

// GatewayProvider calls the hosted patchplaza LLM gateway. Users provide a
// gateway key; the proxy handles model routing and the actual LLM call.
type GatewayProvider struct {
	apiKey string
	model  string
	client *http.Client
}

// NewGateway creates a gateway provider. Model may be empty to accept the
// gateway's default.
func NewGateway(apiKey, model string) *GatewayProvider {
	return &GatewayProvider{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

type gatewayRequest struct {
	Model    string    `json:"model,omitempty"`
	Messages []Message `json:"messages"`
}

type gatewayResponse struct {
	Answer  string `json:"answer,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func (p *GatewayProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	respBody, status, err := postJSON(ctx, p.client, gatewayURL+"/chat",
		map[string]string{"Authorization": "Bearer " + p.apiKey},
		gatewayRequest{Model: p.model, Messages: messages})
	if err != nil {
		return "", err
	}

	var result gatewayResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	if status != 200 || result.Error != "" {
		msg := result.Message
		if msg == "" {
			msg = result.Error
		}
		return "", fmt.Errorf("gateway error: %s", msg)
	}
	if result.Answer == "" {
		return "", fmt.Errorf("gateway returned empty answer")
	}
	return result.Answer, nil
}

func (p *GatewayProvider) Answer(ctx context.Context, prompt string) (string, error) {
	return p.Chat(ctx, []Message{{Role: "user", Content: prompt}})
}

func (p *GatewayProvider) Name() string {
	if p.model != "" {
		return "gateway (" + p.model + ")"
	}
	return "gateway"
}
