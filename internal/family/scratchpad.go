package family

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/patchplaza/patchwork-cli/internal/protocol"
)

const maxNoteSize = 64 * 1024

var keyRe = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// Scratchpad stores the agent's working notes as files under the config
// dir. Notes never leave the machine, so every operation schedules as a
// read.
type Scratchpad struct {
	dir string
}

func NewScratchpad(dir string) *Scratchpad {
	return &Scratchpad{dir: dir}
}

func (p *Scratchpad) Family() protocol.Family { return protocol.FamilyScratchpad }

func (p *Scratchpad) KnownNames() []string {
	return []string{"scratchpad_write", "scratchpad_read", "scratchpad_list"}
}

func (p *Scratchpad) IsReadOnlyName(string) bool { return true }

func (p *Scratchpad) Validate(name string, args map[string]any) (*protocol.Invocation, *protocol.ValidationError) {
	out := map[string]any{}
	switch name {
	case "scratchpad_write":
		key, verr := p.key(name, args)
		if verr != nil {
			return nil, verr
		}
		out["key"] = key
		content, verr := reqString(name, args, "content")
		if verr != nil {
			return nil, verr
		}
		if len(content) > maxNoteSize {
			return nil, &protocol.ValidationError{Name: name, Field: "content", Reason: "too large (max 64KB)"}
		}
		out["content"] = content
	case "scratchpad_read":
		key, verr := p.key(name, args)
		if verr != nil {
			return nil, verr
		}
		out["key"] = key
	case "scratchpad_list":
	default:
		return nil, unknownTool(name)
	}
	return &protocol.Invocation{Family: p.Family(), Name: name, Args: out}, nil
}

func (p *Scratchpad) key(name string, args map[string]any) (string, *protocol.ValidationError) {
	key, verr := reqString(name, args, "key")
	if verr != nil {
		return "", verr
	}
	if !keyRe.MatchString(key) {
		return "", &protocol.ValidationError{Name: name, Field: "key",
			Reason: "must be 1-64 chars of letters, digits, dot, dash, underscore"}
	}
	return key, nil
}

// RecoverBareArgs claims {key, content} as scratchpad_write.
func (p *Scratchpad) RecoverBareArgs(args map[string]any) (string, bool) {
	if has(args, "key", "content") {
		return "scratchpad_write", true
	}
	return "", false
}

func (p *Scratchpad) Detect(text string) *protocol.Invocation {
	return protocol.DetectFirst(text, p.Validate)
}

func (p *Scratchpad) Execute(ctx context.Context, inv protocol.Invocation, ec protocol.ExecContext) protocol.ExecutionResult {
	switch inv.Name {
	case "scratchpad_write":
		key, _ := inv.Args["key"].(string)
		content, _ := inv.Args["content"].(string)
		if err := os.MkdirAll(p.dir, 0700); err != nil {
			return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrWriteFailed, "scratchpad dir: %v", err)}
		}
		if err := os.WriteFile(p.path(key), []byte(content), 0600); err != nil {
			return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrWriteFailed, "scratchpad_write %s: %v", key, err)}
		}
		return protocol.ExecutionResult{Text: fmt.Sprintf("saved note %q (%d bytes)", key, len(content))}

	case "scratchpad_read":
		key, _ := inv.Args["key"].(string)
		data, err := os.ReadFile(p.path(key))
		if err != nil {
			if os.IsNotExist(err) {
				return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrFileNotFound, "no note %q", key)}
			}
			return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrUnknown, "scratchpad_read %s: %v", key, err)}
		}
		return protocol.ExecutionResult{Text: string(data)}

	case "scratchpad_list":
		entries, err := os.ReadDir(p.dir)
		if err != nil {
			if os.IsNotExist(err) {
				return protocol.ExecutionResult{Text: "no notes"}
			}
			return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrUnknown, "scratchpad_list: %v", err)}
		}
		var keys []string
		for _, e := range entries {
			if !e.IsDir() {
				keys = append(keys, strings.TrimSuffix(e.Name(), ".md"))
			}
		}
		if len(keys) == 0 {
			return protocol.ExecutionResult{Text: "no notes"}
		}
		sort.Strings(keys)
		return protocol.ExecutionResult{Text: strings.Join(keys, "\n")}
	}
	return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrUnknown, "unhandled tool %s", inv.Name)}
}

func (p *Scratchpad) path(key string) string {
	return filepath.Join(p.dir, key+".md")
}
