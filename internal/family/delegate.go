package family

import (
	"context"

	"github.com/patchplaza/patchwork-cli/internal/protocol"
)

// Answerer is the model backend a delegate runs against. Satisfied by
// llm.Provider.
type Answerer interface {
	Answer(ctx context.Context, prompt string) (string, error)
	Name() string
}

const (
	coderPreamble = "You are a focused coding sub-agent. Produce the exact code change the task asks for, " +
		"with file paths and complete snippets. No commentary beyond what the change needs.\n\nTask: "
	reviewerPreamble = "You are a code review sub-agent. Point out correctness problems, risky edge cases, " +
		"and concrete fixes. Be specific and brief.\n\nTask: "
)

// Delegate hands a task to a specialized sub-agent prompt on the configured
// model. Delegation is highest priority in one-call detection: an answer
// that delegates should not also execute other tools.
type Delegate struct {
	backend Answerer
}

func NewDelegate(backend Answerer) *Delegate {
	return &Delegate{backend: backend}
}

func (d *Delegate) Family() protocol.Family { return protocol.FamilyDelegate }

func (d *Delegate) KnownNames() []string {
	return []string{"delegate_coder", "delegate_reviewer"}
}

func (d *Delegate) IsReadOnlyName(string) bool { return true }

func (d *Delegate) Validate(name string, args map[string]any) (*protocol.Invocation, *protocol.ValidationError) {
	switch name {
	case "delegate_coder", "delegate_reviewer":
	default:
		return nil, unknownTool(name)
	}
	task, verr := reqString(name, args, "task")
	if verr != nil {
		return nil, verr
	}
	if len(task) < 10 {
		return nil, &protocol.ValidationError{Name: name, Field: "task", Reason: "too short to act on (min 10 chars)"}
	}
	return &protocol.Invocation{Family: d.Family(), Name: name, Args: map[string]any{"task": task}}, nil
}

// RecoverBareArgs claims {task} as delegate_coder, the default delegate.
func (d *Delegate) RecoverBareArgs(args map[string]any) (string, bool) {
	if has(args, "task") {
		return "delegate_coder", true
	}
	return "", false
}

func (d *Delegate) Detect(text string) *protocol.Invocation {
	return protocol.DetectFirst(text, d.Validate)
}

func (d *Delegate) Execute(ctx context.Context, inv protocol.Invocation, ec protocol.ExecContext) protocol.ExecutionResult {
	task, _ := inv.Args["task"].(string)
	preamble := coderPreamble
	kind := "coder"
	if inv.Name == "delegate_reviewer" {
		preamble = reviewerPreamble
		kind = "reviewer"
	}

	answer, err := d.backend.Answer(ctx, preamble+task)
	if err != nil {
		return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrUnknown, "%s: %v", inv.Name, err)}
	}
	return protocol.ExecutionResult{
		Text: answer,
		Card: &protocol.Card{Kind: "delegate", Title: kind + " sub-agent",
			Fields: map[string]string{"provider": d.backend.Name()}},
	}
}
