package config

import (
	"fmt"
	"strings"
)

// Validate checks that the config has all required fields.
func (c *Config) Validate() error {
	if c.GitHub.AllowedRepo == "" {
		return fmt.Errorf("github.allowed_repo is required — run 'patchwork init'")
	}
	if !strings.Contains(c.GitHub.AllowedRepo, "/") {
		return fmt.Errorf("github.allowed_repo must be owner/name, got %q", c.GitHub.AllowedRepo)
	}
	if c.GitHub.Token == "" {
		return fmt.Errorf("github.token is required")
	}

	switch c.Sandbox.Mode {
	case "remote":
		if c.Sandbox.BaseURL == "" {
			return fmt.Errorf("sandbox.base_url is required for remote mode")
		}
		if c.Sandbox.APIKey == "" {
			return fmt.Errorf("sandbox.api_key is required for remote mode")
		}
	case "local":
	default:
		return fmt.Errorf("sandbox.mode must be remote or local")
	}

	switch c.LLM.Provider {
	case "gateway":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for gateway mode")
		}
	case "openai", "anthropic":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for provider %q", c.LLM.Provider)
		}
		if c.LLM.Model == "" {
			return fmt.Errorf("llm.model is required")
		}
	case "ollama":
		if c.LLM.Model == "" {
			return fmt.Errorf("llm.model is required")
		}
	default:
		return fmt.Errorf("llm.provider must be one of: gateway, openai, anthropic, ollama")
	}

	if c.Chat.MaxParallelTools < 1 || c.Chat.MaxParallelTools > 16 {
		return fmt.Errorf("chat.max_parallel_tools must be between 1 and 16")
	}
	return nil
}

// Redact returns a copy of the config with secrets masked for display.
func (c *Config) Redact() *Config {
	copy := *c
	copy.GitHub.Token = redactKey(c.GitHub.Token)
	copy.Sandbox.APIKey = redactKey(c.Sandbox.APIKey)
	copy.LLM.APIKey = redactKey(c.LLM.APIKey)
	copy.Search.APIKey = redactKey(c.Search.APIKey)
	return &copy
}

func redactKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
