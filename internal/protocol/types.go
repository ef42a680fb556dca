// Package protocol implements the text-embedded tool-call protocol: it
// detects, validates, deduplicates, schedules, and (on failure) diagnoses
// JSON tool invocations emitted by a free-text completion model.
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Family identifies the execution backend that owns a group of tools.
type Family string

const (
	FamilyGitHub     Family = "github"
	FamilySandbox    Family = "sandbox"
	FamilyScratchpad Family = "scratchpad"
	FamilyWebSearch  Family = "websearch"
	FamilyAskUser    Family = "askuser"
	FamilyDelegate   Family = "delegate"
)

// Span marks the byte range of a candidate object in the model's output.
type Span struct {
	Start int
	End   int
}

// Invocation is a structured request for a named tool action, decoded from
// model-emitted text. Immutable once detected.
type Invocation struct {
	Family Family
	Name   string
	Args   map[string]any
	Span   Span
}

// CanonicalKey returns the normalized (family, name, args) identity used to
// detect logically duplicate invocations. Two invocations with equal canonical
// keys are the same call regardless of source-key ordering.
func (inv Invocation) CanonicalKey() string {
	return string(inv.Family) + "|" + inv.Name + "|" + canonicalJSON(inv.Args)
}

// canonicalJSON renders a parsed JSON value with object keys sorted at every
// nesting level, so key order in the source text cannot affect identity.
func canonicalJSON(v any) string {
	var sb strings.Builder
	writeCanonical(&sb, v)
	return sb.String()
}

func writeCanonical(sb *strings.Builder, v any) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			b, _ := json.Marshal(k)
			sb.Write(b)
			sb.WriteByte(':')
			writeCanonical(sb, t[k])
		}
		sb.WriteByte('}')
	case []any:
		sb.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCanonical(sb, e)
		}
		sb.WriteByte(']')
	default:
		b, _ := json.Marshal(t)
		sb.Write(b)
	}
}

// Batch is the detection result for one model turn: read-only calls that may
// run concurrently, plus at most one mutating call that runs after them.
type Batch struct {
	ReadOnly []Invocation
	Mutating *Invocation
}

// Empty reports whether the batch contains no invocations at all.
func (b Batch) Empty() bool {
	return len(b.ReadOnly) == 0 && b.Mutating == nil
}

// Len returns the total number of invocations in the batch.
func (b Batch) Len() int {
	n := len(b.ReadOnly)
	if b.Mutating != nil {
		n++
	}
	return n
}

// ValidationError describes why a candidate object failed a family validator.
type ValidationError struct {
	Name   string // tool name being validated
	Field  string // offending field, empty for structural problems
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: field %q: %s", e.Name, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Reason)
}

// Card is structured display content attached to a result (e.g. a question
// for the user, or a diff summary).
type Card struct {
	Kind   string            `json:"kind"`
	Title  string            `json:"title"`
	Fields map[string]string `json:"fields,omitempty"`
}

// SideEffects records state changes a mutating call caused, so the host can
// update its execution context for following turns.
type SideEffects struct {
	BranchSwitched string // new active branch, empty if unchanged
	RepoPromoted   string // repo made active, empty if unchanged
	SandboxID      string // newly created sandbox session, empty if none
}

// ExecutionResult is what a family adapter returns for one invocation.
// Execution failures are carried as StructuredError, never as panics.
type ExecutionResult struct {
	Text            string
	Card            *Card
	StructuredError *ToolError
	SideEffects     *SideEffects
}

// Outcome joins an invocation to its result. Results are always joined back
// positionally, not by completion order.
type Outcome struct {
	Invocation Invocation
	Result     ExecutionResult
}

// ExecContext carries the host state a dispatch needs: the repo the session is
// allowed to touch, the live sandbox (if any), and branch-protection policy.
type ExecContext struct {
	AllowedRepo      string
	SandboxSessionID string
	IsMainProtected  bool
	DefaultBranch    string
	ActiveProvider   string
}

// Adapter is the capability record every tool family exposes.
type Adapter interface {
	// Family returns the family this adapter owns.
	Family() Family
	// KnownNames returns every tool name the family owns.
	KnownNames() []string
	// IsReadOnlyName reports whether the named tool can only observe state.
	IsReadOnlyName(name string) bool
	// Validate checks a candidate's argument shape, producing either a
	// well-formed Invocation or a ValidationError. Pure, no I/O.
	Validate(name string, args map[string]any) (*Invocation, *ValidationError)
	// RecoverBareArgs attempts to infer a tool name from the key shape of an
	// object that has no "tool" field. Returns ok=false when the shape does
	// not unambiguously match one of this family's tools.
	RecoverBareArgs(args map[string]any) (name string, ok bool)
	// Detect returns the first valid invocation for this family in text.
	Detect(text string) *Invocation
	// Execute performs the invocation. Failures are returned as a
	// StructuredError on the result, never as an error or panic.
	Execute(ctx context.Context, inv Invocation, ec ExecContext) ExecutionResult
}
