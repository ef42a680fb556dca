package family

import (
	"context"
	"strings"

	"github.com/patchplaza/patchwork-cli/internal/protocol"
)

// AskUser surfaces a question card to the person driving the session. The
// call itself executes instantly; the answer arrives as the next user turn.
type AskUser struct{}

func NewAskUser() *AskUser { return &AskUser{} }

func (a *AskUser) Family() protocol.Family { return protocol.FamilyAskUser }

func (a *AskUser) KnownNames() []string { return []string{"ask_user"} }

func (a *AskUser) IsReadOnlyName(string) bool { return true }

func (a *AskUser) Validate(name string, args map[string]any) (*protocol.Invocation, *protocol.ValidationError) {
	if name != "ask_user" {
		return nil, unknownTool(name)
	}
	question, verr := reqString(name, args, "question")
	if verr != nil {
		return nil, verr
	}
	choices, verr := optStringSlice(name, args, "choices")
	if verr != nil {
		return nil, verr
	}
	out := map[string]any{"question": question}
	if len(choices) > 0 {
		cs := make([]any, len(choices))
		for i, c := range choices {
			cs[i] = c
		}
		out["choices"] = cs
	}
	return &protocol.Invocation{Family: a.Family(), Name: name, Args: out}, nil
}

// RecoverBareArgs claims {question}.
func (a *AskUser) RecoverBareArgs(args map[string]any) (string, bool) {
	if has(args, "question") {
		return "ask_user", true
	}
	return "", false
}

func (a *AskUser) Detect(text string) *protocol.Invocation {
	return protocol.DetectFirst(text, a.Validate)
}

func (a *AskUser) Execute(ctx context.Context, inv protocol.Invocation, ec protocol.ExecContext) protocol.ExecutionResult {
	question, _ := inv.Args["question"].(string)
	fields := map[string]string{}
	if raw, ok := inv.Args["choices"].([]any); ok {
		var cs []string
		for _, c := range raw {
			if s, ok := c.(string); ok {
				cs = append(cs, s)
			}
		}
		fields["choices"] = strings.Join(cs, " | ")
	}
	return protocol.ExecutionResult{
		Text: question,
		Card: &protocol.Card{Kind: "question", Title: question, Fields: fields},
	}
}
