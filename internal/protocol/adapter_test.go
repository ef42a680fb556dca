package protocol

import (
	"context"
	"sort"
)

// fakeAdapter is the configurable adapter the protocol tests register.
// readOnly holds every known name mapped to its classification; required
// lists the string fields each name's validator demands.
type fakeAdapter struct {
	family   Family
	readOnly map[string]bool
	required map[string][]string
	bare     func(args map[string]any) (string, bool)
	exec     func(ctx context.Context, inv Invocation, ec ExecContext) ExecutionResult
}

func (f *fakeAdapter) Family() Family { return f.family }

func (f *fakeAdapter) KnownNames() []string {
	names := make([]string, 0, len(f.readOnly))
	for n := range f.readOnly {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (f *fakeAdapter) IsReadOnlyName(name string) bool { return f.readOnly[name] }

func (f *fakeAdapter) Validate(name string, args map[string]any) (*Invocation, *ValidationError) {
	if _, known := f.readOnly[name]; !known {
		return nil, &ValidationError{Name: name, Reason: "unknown tool"}
	}
	canonical := make(map[string]any)
	for _, field := range f.required[name] {
		s, ok := args[field].(string)
		if !ok || s == "" {
			return nil, &ValidationError{Name: name, Field: field, Reason: "required"}
		}
		canonical[field] = s
	}
	return &Invocation{Family: f.family, Name: name, Args: canonical}, nil
}

func (f *fakeAdapter) RecoverBareArgs(args map[string]any) (string, bool) {
	if f.bare == nil {
		return "", false
	}
	return f.bare(args)
}

func (f *fakeAdapter) Detect(text string) *Invocation {
	return DetectFirst(text, f.Validate)
}

func (f *fakeAdapter) Execute(ctx context.Context, inv Invocation, ec ExecContext) ExecutionResult {
	if f.exec != nil {
		return f.exec(ctx, inv, ec)
	}
	return ExecutionResult{Text: "ok:" + inv.Name}
}

// probeRegistry builds a registry with one fake family: two read-only tools
// and one mutating tool, the mutation protected.
func probeRegistry(maxParallel int) (*Registry, *fakeAdapter) {
	fa := &fakeAdapter{
		family: Family("probe"),
		readOnly: map[string]bool{
			"probe_read":  true,
			"probe_list":  true,
			"probe_write": false,
		},
		required: map[string][]string{
			"probe_read":  {"path"},
			"probe_write": {"path", "content"},
		},
	}
	reg := NewRegistry(maxParallel)
	reg.Add(fa)
	reg.Protect("probe_write")
	return reg, fa
}
