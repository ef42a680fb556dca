package family

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/patchplaza/patchwork-cli/internal/github"
	"github.com/patchplaza/patchwork-cli/internal/protocol"
)

// GitHub exposes repository read tools plus issue creation.
type GitHub struct {
	client *github.Client
}

func NewGitHub(client *github.Client) *GitHub {
	return &GitHub{client: client}
}

func (g *GitHub) Family() protocol.Family { return protocol.FamilyGitHub }

func (g *GitHub) KnownNames() []string {
	return []string{"read_file", "list_prs", "list_issues", "search_code", "create_issue"}
}

func (g *GitHub) IsReadOnlyName(name string) bool {
	return name != "create_issue"
}

func (g *GitHub) Validate(name string, args map[string]any) (*protocol.Invocation, *protocol.ValidationError) {
	if !g.owns(name) {
		return nil, unknownTool(name)
	}
	repo, verr := reqString(name, args, "repo")
	if verr != nil {
		return nil, verr
	}
	out := map[string]any{"repo": repo}

	switch name {
	case "read_file":
		path, verr := reqString(name, args, "path")
		if verr != nil {
			return nil, verr
		}
		out["path"] = path
		ref, verr := optString(name, args, "ref", "")
		if verr != nil {
			return nil, verr
		}
		if ref != "" {
			out["ref"] = ref
		}
	case "list_prs", "list_issues":
		state, verr := optString(name, args, "state", "open")
		if verr != nil {
			return nil, verr
		}
		switch state {
		case "open", "closed", "all":
		default:
			return nil, &protocol.ValidationError{Name: name, Field: "state", Reason: fmt.Sprintf("must be open, closed, or all, got %q", state)}
		}
		out["state"] = state
	case "search_code":
		query, verr := reqString(name, args, "query")
		if verr != nil {
			return nil, verr
		}
		out["query"] = query
	case "create_issue":
		title, verr := reqString(name, args, "title")
		if verr != nil {
			return nil, verr
		}
		out["title"] = title
		body, verr := optString(name, args, "body", "")
		if verr != nil {
			return nil, verr
		}
		out["body"] = body
	}
	return &protocol.Invocation{Family: g.Family(), Name: name, Args: out}, nil
}

func (g *GitHub) owns(name string) bool {
	for _, n := range g.KnownNames() {
		if n == name {
			return true
		}
	}
	return false
}

// RecoverBareArgs claims {repo, path} as read_file and {repo, query} as
// search_code. Both need repo, which no other family uses.
func (g *GitHub) RecoverBareArgs(args map[string]any) (string, bool) {
	if has(args, "repo", "path") {
		return "read_file", true
	}
	if has(args, "repo", "query") {
		return "search_code", true
	}
	return "", false
}

func (g *GitHub) Detect(text string) *protocol.Invocation {
	return protocol.DetectFirst(text, g.Validate)
}

func (g *GitHub) Execute(ctx context.Context, inv protocol.Invocation, ec protocol.ExecContext) protocol.ExecutionResult {
	repo, _ := inv.Args["repo"].(string)
	if ec.AllowedRepo != "" && repo != ec.AllowedRepo {
		return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrAuthFailure,
			"repo %s is not in scope; this session is limited to %s", repo, ec.AllowedRepo)}
	}

	switch inv.Name {
	case "read_file":
		path, _ := inv.Args["path"].(string)
		ref, _ := inv.Args["ref"].(string)
		content, err := g.client.GetFile(ctx, repo, path, ref)
		if err != nil {
			return g.fail(inv.Name, err)
		}
		return protocol.ExecutionResult{Text: content}

	case "list_prs":
		state, _ := inv.Args["state"].(string)
		prs, err := g.client.ListPulls(ctx, repo, state)
		if err != nil {
			return g.fail(inv.Name, err)
		}
		var sb strings.Builder
		for _, pr := range prs {
			fmt.Fprintf(&sb, "#%d [%s] %s (%s -> %s) by %s\n", pr.Number, pr.State, pr.Title, pr.Head.Ref, pr.Base.Ref, pr.User.Login)
		}
		if sb.Len() == 0 {
			sb.WriteString("no pull requests")
		}
		return protocol.ExecutionResult{
			Text: strings.TrimRight(sb.String(), "\n"),
			Card: &protocol.Card{Kind: "pr_list", Title: fmt.Sprintf("%d pull requests (%s)", len(prs), state)},
		}

	case "list_issues":
		state, _ := inv.Args["state"].(string)
		issues, err := g.client.ListIssues(ctx, repo, state)
		if err != nil {
			return g.fail(inv.Name, err)
		}
		var sb strings.Builder
		for _, is := range issues {
			fmt.Fprintf(&sb, "#%d [%s] %s by %s\n", is.Number, is.State, is.Title, is.User.Login)
		}
		if sb.Len() == 0 {
			sb.WriteString("no issues")
		}
		return protocol.ExecutionResult{
			Text: strings.TrimRight(sb.String(), "\n"),
			Card: &protocol.Card{Kind: "issue_list", Title: fmt.Sprintf("%d issues (%s)", len(issues), state)},
		}

	case "search_code":
		query, _ := inv.Args["query"].(string)
		matches, err := g.client.SearchCode(ctx, repo, query)
		if err != nil {
			return g.fail(inv.Name, err)
		}
		var sb strings.Builder
		for _, m := range matches {
			sb.WriteString(m.Path + "\n")
		}
		if sb.Len() == 0 {
			sb.WriteString("no matches")
		}
		return protocol.ExecutionResult{Text: strings.TrimRight(sb.String(), "\n")}

	case "create_issue":
		title, _ := inv.Args["title"].(string)
		body, _ := inv.Args["body"].(string)
		issue, err := g.client.CreateIssue(ctx, repo, title, body)
		if err != nil {
			return g.fail(inv.Name, err)
		}
		return protocol.ExecutionResult{
			Text: fmt.Sprintf("created issue #%d: %s", issue.Number, issue.HTMLURL),
			Card: &protocol.Card{Kind: "issue_created", Title: fmt.Sprintf("#%d %s", issue.Number, issue.Title),
				Fields: map[string]string{"url": issue.HTMLURL}},
		}
	}
	return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrUnknown, "unhandled tool %s", inv.Name)}
}

// fail maps client errors onto the structured taxonomy.
func (g *GitHub) fail(tool string, err error) protocol.ExecutionResult {
	var ae *github.APIError
	if errors.As(err, &ae) {
		switch {
		case ae.IsNotFound():
			return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrFileNotFound, "%s: %s", tool, ae.Message)}
		case ae.IsRateLimited():
			return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrRateLimited, "%s: %s", tool, ae.Message)}
		case ae.IsAuth():
			return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrAuthFailure, "%s: %s", tool, ae.Message)}
		}
	}
	return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrUnknown, "%s: %v", tool, err)}
}
