package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patchplaza/patchwork-cli/internal/config"
)

func TestNewProviderSelection(t *testing.T) {
	cases := []struct {
		provider string
		wantName string
	}{
		{"gateway", "gateway (gpt-4o-mini)"},
		{"openai", "openai-compat (gpt-4o-mini)"},
		{"anthropic", "anthropic (gpt-4o-mini)"},
		{"ollama", "ollama (gpt-4o-mini)"},
	}
	for _, tc := range cases {
		p, err := NewProvider(&config.LLMConfig{Provider: tc.provider, Model: "gpt-4o-mini", APIKey: "k"}, "", 1024)
		require.NoError(t, err, tc.provider)
		require.Equal(t, tc.wantName, p.Name())
	}

	_, err := NewProvider(&config.LLMConfig{Provider: "bard"}, "", 1024)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown LLM provider")
}

func TestOpenAIChat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "  hello there  "}},
			},
		})
	}))
	defer srv.Close()

	p := NewOpenAI(srv.URL+"/v1/", "sk-test", "gpt-4o-mini", "be terse", 512)
	reply, err := p.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	require.Equal(t, "hello there", reply)

	require.Equal(t, "gpt-4o-mini", got.Model)
	require.Equal(t, 512, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	require.Equal(t, "system", got.Messages[0].Role)
	require.Equal(t, "be terse", got.Messages[0].Content)
	require.Equal(t, "hi", got.Messages[1].Content)
}

func TestOpenAIChatNoSystemPrompt(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "ok"}}},
		})
	}))
	defer srv.Close()

	p := NewOpenAI(srv.URL, "k", "m", "", 0)
	_, err := p.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	require.Equal(t, "user", got.Messages[0].Role)
}

func TestOpenAIChatErrors(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "upstream overloaded", http.StatusBadGateway)
		}))
		defer srv.Close()

		p := NewOpenAI(srv.URL, "k", "m", "", 0)
		_, err := p.Chat(context.Background(), nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "502")
	})

	t.Run("error payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "model not found"},
			})
		}))
		defer srv.Close()

		p := NewOpenAI(srv.URL, "k", "m", "", 0)
		_, err := p.Chat(context.Background(), nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "model not found")
	})

	t.Run("empty choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
		}))
		defer srv.Close()

		p := NewOpenAI(srv.URL, "k", "m", "", 0)
		_, err := p.Chat(context.Background(), nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "empty choices")
	})
}

func TestOpenAIReasoningFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{
					"content":           "",
					"reasoning_content": "Let me think about this.\n\nFirst I consider the options.\n\nThe answer is 42.",
				}},
			},
		})
	}))
	defer srv.Close()

	p := NewOpenAI(srv.URL, "k", "m", "", 0)
	reply, err := p.Chat(context.Background(), []Message{{Role: "user", Content: "q"}})
	require.NoError(t, err)
	require.Equal(t, "The answer is 42.", reply)
}

func TestOpenAIAnswer(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "done"}}},
		})
	}))
	defer srv.Close()

	p := NewOpenAI(srv.URL, "k", "m", "", 0)
	reply, err := p.Answer(context.Background(), "summarize the diff")
	require.NoError(t, err)
	require.Equal(t, "done", reply)
	require.Len(t, got.Messages, 1)
	require.Equal(t, "user", got.Messages[0].Role)
	require.Equal(t, "summarize the diff", got.Messages[0].Content)
}

func TestOllamaChat(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "local reply"},
		})
	}))
	defer srv.Close()

	p := NewOllama(srv.URL, "llama3.2", "sys")
	reply, err := p.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	require.Equal(t, "local reply", reply)
	require.False(t, got.Stream)
	require.Equal(t, "llama3.2", got.Model)
	require.Equal(t, "system", got.Messages[0].Role)
}

func TestOllamaChatError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model not loaded"})
	}))
	defer srv.Close()

	p := NewOllama(srv.URL, "llama3.2", "")
	_, err := p.Chat(context.Background(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "model not loaded")
}

func TestExtractConclusion(t *testing.T) {
	require.Equal(t, "Conclusion.", extractConclusion("Step one.\n\nStep two.\n\nConclusion.\n\n  "))
	require.Equal(t, "single paragraph", extractConclusion("single paragraph"))
	require.Equal(t, "", extractConclusion("   "))
}

func TestTruncateStr(t *testing.T) {
	require.Equal(t, "abc", truncateStr("abc", 5))
	require.Equal(t, "abcde...", truncateStr("abcdefgh", 5))
}
