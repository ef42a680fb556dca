// Package config loads and persists the patchwork configuration file
// (~/.patchwork/config.toml).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the full on-disk configuration.
type Config struct {
	Agent   AgentConfig   `toml:"agent"`
	GitHub  GitHubConfig  `toml:"github"`
	Sandbox SandboxConfig `toml:"sandbox"`
	LLM     LLMConfig     `toml:"llm"`
	Search  SearchConfig  `toml:"search"`
	Chat    ChatConfig    `toml:"chat"`
	Web     WebConfig     `toml:"web"`
	Log     LogConfig     `toml:"log"`
}

// AgentConfig identifies this agent instance.
type AgentConfig struct {
	Name string `toml:"name"`
}

// GitHubConfig scopes repository access. AllowedRepo is the single
// owner/name the agent may touch; everything else is refused up front.
type GitHubConfig struct {
	Token         string `toml:"token"`
	AllowedRepo   string `toml:"allowed_repo"`
	DefaultBranch string `toml:"default_branch"`
	ProtectMain   bool   `toml:"protect_main"`
}

// SandboxConfig points at the remote execution service, or selects local
// mode for development without one.
type SandboxConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Mode    string `toml:"mode"` // remote or local
	Workdir string `toml:"workdir"`
}

// LLMConfig selects the model provider.
type LLMConfig struct {
	Provider string `toml:"provider"` // gateway, openai, anthropic, ollama
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	Model    string `toml:"model"`
}

// SearchConfig configures the web search backend.
type SearchConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// ChatConfig tunes the chat loop.
type ChatConfig struct {
	MaxParallelTools int `toml:"max_parallel_tools"`
	MaxTurns         int `toml:"max_turns"`
}

// WebConfig controls the local web console.
type WebConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
	File  string `toml:"file"`
}

// Dir returns the patchwork config directory, creating nothing.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".patchwork"
	}
	return filepath.Join(home, ".patchwork")
}

// Path returns the config file path.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// DefaultConfig returns a config with sensible defaults filled in.
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			DefaultBranch: "main",
			ProtectMain:   true,
		},
		Sandbox: SandboxConfig{
			Mode:    "remote",
			Workdir: "/workspace",
		},
		LLM: LLMConfig{
			Provider: "openai",
			BaseURL:  "https://api.openai.com/v1",
			Model:    "gpt-4o-mini",
		},
		Chat: ChatConfig{
			MaxParallelTools: 6,
			MaxTurns:         40,
		},
		Web: WebConfig{
			Listen: "127.0.0.1:8777",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads and parses the config file.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(Path(), cfg); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no config at %s — run 'patchwork init'", Path())
		}
		return nil, fmt.Errorf("parse %s: %w", Path(), err)
	}
	return cfg, nil
}

// Save writes the config to disk with owner-only permissions (it holds
// API keys).
func (c *Config) Save() error {
	if err := os.MkdirAll(Dir(), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.OpenFile(Path(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
