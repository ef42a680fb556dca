// Package family implements the tool families the agent exposes: each
// adapter owns its tool names, validates argument shapes, and executes
// calls against its backing client.
package family

import (
	"fmt"
	"strconv"

	"github.com/patchplaza/patchwork-cli/internal/protocol"
)

// reqString pulls a required non-empty string argument.
func reqString(name string, args map[string]any, field string) (string, *protocol.ValidationError) {
	v, ok := args[field]
	if !ok {
		return "", &protocol.ValidationError{Name: name, Field: field, Reason: "required"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &protocol.ValidationError{Name: name, Field: field, Reason: fmt.Sprintf("must be a string, got %T", v)}
	}
	if s == "" {
		return "", &protocol.ValidationError{Name: name, Field: field, Reason: "must not be empty"}
	}
	return s, nil
}

// optString pulls an optional string argument, returning def if absent.
func optString(name string, args map[string]any, field, def string) (string, *protocol.ValidationError) {
	v, ok := args[field]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &protocol.ValidationError{Name: name, Field: field, Reason: fmt.Sprintf("must be a string, got %T", v)}
	}
	return s, nil
}

// optInt pulls an optional integer argument. Numeric-looking strings are
// coerced; anything else is rejected.
func optInt(name string, args map[string]any, field string, def int) (int, *protocol.ValidationError) {
	v, ok := args[field]
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, &protocol.ValidationError{Name: name, Field: field, Reason: fmt.Sprintf("must be a number, got %q", t)}
		}
		return n, nil
	default:
		return 0, &protocol.ValidationError{Name: name, Field: field, Reason: fmt.Sprintf("must be a number, got %T", v)}
	}
}

// optStringSlice pulls an optional array-of-strings argument.
func optStringSlice(name string, args map[string]any, field string) ([]string, *protocol.ValidationError) {
	v, ok := args[field]
	if !ok || v == nil {
		return nil, nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, &protocol.ValidationError{Name: name, Field: field, Reason: fmt.Sprintf("must be an array of strings, got %T", v)}
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		s, ok := e.(string)
		if !ok {
			return nil, &protocol.ValidationError{Name: name, Field: field, Reason: fmt.Sprintf("must contain only strings, got %T", e)}
		}
		out = append(out, s)
	}
	return out, nil
}

// unknownTool is the shared rejection for names a family does not own.
func unknownTool(name string) *protocol.ValidationError {
	return &protocol.ValidationError{Name: name, Reason: "unknown tool"}
}

// has reports whether every listed key is present in args.
func has(args map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := args[k]; !ok {
			return false
		}
	}
	return true
}
