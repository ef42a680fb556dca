// Package chat implements the interactive session loop: model turns in,
// detected tool batches out, results fed back until the model answers in
// prose.
package chat

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/patchplaza/patchwork-cli/internal/config"
	"github.com/patchplaza/patchwork-cli/internal/llm"
)

// State tracks one session's transcript and counters across restarts.
type State struct {
	SessionID     string        `json:"session_id"`
	Repo          string        `json:"repo"`
	Messages      []llm.Message `json:"messages"`
	Turns         int           `json:"turns"`
	ToolCalls     int           `json:"tool_calls"`
	ToolErrors    int           `json:"tool_errors"`
	Corrections   int           `json:"corrections"`
	GuardBlocks   int           `json:"guard_blocks"`
	StartedAt     time.Time     `json:"started_at"`
	LastActive    time.Time     `json:"last_active,omitempty"`
	path          string
}

func sessionsDir() string {
	return filepath.Join(config.Dir(), "sessions")
}

// statePath maps a repo to its session file. Slashes in owner/name become
// dashes so the file sits flat in the sessions dir.
func statePath(repo string) string {
	name := strings.ReplaceAll(repo, "/", "-")
	if name == "" {
		name = "default"
	}
	return filepath.Join(sessionsDir(), name+".json")
}

// LoadState reads the saved session for a repo, or starts a fresh one.
func LoadState(repo string) *State {
	s := &State{path: statePath(repo)}
	data, err := os.ReadFile(s.path)
	if err == nil {
		_ = json.Unmarshal(data, s)
	}
	if s.SessionID == "" || s.Repo != repo {
		*s = State{
			SessionID: uuid.NewString(),
			Repo:      repo,
			StartedAt: time.Now(),
			path:      s.path,
		}
	}
	return s
}

// Save persists the state to disk.
func (s *State) Save() error {
	s.LastActive = time.Now()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Reset discards the transcript but keeps the file path.
func (s *State) Reset(repo string) {
	*s = State{
		SessionID: uuid.NewString(),
		Repo:      repo,
		StartedAt: time.Now(),
		path:      s.path,
	}
}

// Append adds a message to the transcript.
func (s *State) Append(role, content string) {
	s.Messages = append(s.Messages, llm.Message{Role: role, Content: content})
}

// SessionInfo summarizes one saved session for listing.
type SessionInfo struct {
	Repo       string    `json:"repo"`
	SessionID  string    `json:"session_id"`
	Turns      int       `json:"turns"`
	LastActive time.Time `json:"last_active"`
}

// Sessions lists all saved sessions, most recently active first.
func Sessions() ([]SessionInfo, error) {
	entries, err := os.ReadDir(sessionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []SessionInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(sessionsDir(), e.Name()))
		if err != nil {
			continue
		}
		var s State
		if json.Unmarshal(data, &s) != nil || s.SessionID == "" {
			continue
		}
		out = append(out, SessionInfo{
			Repo:       s.Repo,
			SessionID:  s.SessionID,
			Turns:      s.Turns,
			LastActive: s.LastActive,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActive.After(out[j].LastActive) })
	return out, nil
}

// DeleteSession removes the saved session for a repo. Missing files are not
// an error.
func DeleteSession(repo string) error {
	err := os.Remove(statePath(repo))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// PruneSessions deletes sessions idle for longer than maxAge and reports how
// many were removed.
func PruneSessions(maxAge time.Duration) (int, error) {
	sessions, err := Sessions()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, info := range sessions {
		if info.LastActive.Before(cutoff) {
			if err := DeleteSession(info.Repo); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
