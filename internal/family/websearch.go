package family

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/patchplaza/patchwork-cli/internal/protocol"
	"github.com/patchplaza/patchwork-cli/internal/websearch"
)

const (
	defaultSearchResults = 5
	maxSearchResults     = 10
)

// Searcher is the search backend the adapter executes against.
type Searcher interface {
	Search(ctx context.Context, query string, max int) ([]websearch.Result, error)
}

// WebSearch exposes the single web_search tool.
type WebSearch struct {
	backend Searcher
}

func NewWebSearch(backend Searcher) *WebSearch {
	return &WebSearch{backend: backend}
}

func (w *WebSearch) Family() protocol.Family { return protocol.FamilyWebSearch }

func (w *WebSearch) KnownNames() []string { return []string{"web_search"} }

func (w *WebSearch) IsReadOnlyName(string) bool { return true }

func (w *WebSearch) Validate(name string, args map[string]any) (*protocol.Invocation, *protocol.ValidationError) {
	if name != "web_search" {
		return nil, unknownTool(name)
	}
	query, verr := reqString(name, args, "query")
	if verr != nil {
		return nil, verr
	}
	max, verr := optInt(name, args, "max_results", defaultSearchResults)
	if verr != nil {
		return nil, verr
	}
	if max < 1 || max > maxSearchResults {
		return nil, &protocol.ValidationError{Name: name, Field: "max_results",
			Reason: fmt.Sprintf("must be between 1 and %d", maxSearchResults)}
	}
	return &protocol.Invocation{Family: w.Family(), Name: name,
		Args: map[string]any{"query": query, "max_results": float64(max)}}, nil
}

// RecoverBareArgs claims {query} without a repo key; repo+query belongs to
// github code search.
func (w *WebSearch) RecoverBareArgs(args map[string]any) (string, bool) {
	if has(args, "query") && !has(args, "repo") {
		return "web_search", true
	}
	return "", false
}

func (w *WebSearch) Detect(text string) *protocol.Invocation {
	return protocol.DetectFirst(text, w.Validate)
}

func (w *WebSearch) Execute(ctx context.Context, inv protocol.Invocation, ec protocol.ExecContext) protocol.ExecutionResult {
	if w.backend == nil {
		return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrUnknown, "web_search: no search backend configured")}
	}
	query, _ := inv.Args["query"].(string)
	max := defaultSearchResults
	if f, ok := inv.Args["max_results"].(float64); ok {
		max = int(f)
	}

	results, err := w.backend.Search(ctx, query, max)
	if err != nil {
		var rle *websearch.RateLimitError
		if errors.As(err, &rle) {
			return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrRateLimited, "web_search: %v", err)}
		}
		return protocol.ExecutionResult{StructuredError: protocol.Errf(protocol.ErrUnknown, "web_search: %v", err)}
	}
	if len(results) == 0 {
		return protocol.ExecutionResult{Text: "no results for: " + query}
	}

	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, r.Description)
	}
	return protocol.ExecutionResult{Text: strings.TrimRight(sb.String(), "\n")}
}
