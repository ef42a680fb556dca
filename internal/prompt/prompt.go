// Package prompt builds the system prompt from embedded protocol docs and
// the live tool registry, so the reference the model sees always matches
// the tools actually registered.
package prompt

import (
	"fmt"
	"strings"

	"github.com/patchplaza/patchwork-cli/internal/protocol"
)

// Builder assembles system prompts for a given registry and repo scope.
type Builder struct {
	reg  *protocol.Registry
	repo string
}

func NewBuilder(reg *protocol.Registry, repo string) *Builder {
	return &Builder{reg: reg, repo: repo}
}

// SystemPrompt builds the full prompt: workflow, protocol rules, then the
// generated tool reference.
func (b *Builder) SystemPrompt() string {
	parts := []string{
		strings.TrimSpace(workflowDoc),
		strings.TrimSpace(protocolDoc),
		b.ToolReference(),
	}
	if b.repo != "" {
		parts = append(parts, "# Scope\n\nThis session is limited to the repository "+b.repo+".")
	}
	return strings.Join(parts, "\n\n")
}

// ToolReference renders one section per family with each tool's kind and
// worked example.
func (b *Builder) ToolReference() string {
	var sb strings.Builder
	sb.WriteString("# Tools\n")
	for _, a := range b.reg.Adapters() {
		fmt.Fprintf(&sb, "\n## %s\n\n", a.Family())
		for _, name := range a.KnownNames() {
			kind := "read-only"
			if !a.IsReadOnlyName(name) {
				kind = "state-changing"
				if b.reg.IsProtectedMutation(name) {
					kind = "state-changing, refused on the default branch"
				}
			}
			fmt.Fprintf(&sb, "- %s (%s)\n", name, kind)
			if h := protocol.Hint(name); h != "" {
				fmt.Fprintf(&sb, "  %s\n", h)
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
