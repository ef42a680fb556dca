package protocol

import (
	"encoding/json"
	"regexp"
	"strings"
)

// The extraction grammar locates every syntactically plausible JSON object in
// free text: fenced code blocks first, then brace-counted bare objects in the
// remaining prose. Parse failures are dropped silently at this layer;
// explaining *why* nothing parsed is the Diagnoser's job.

// fencedRe matches a triple-backtick block with an optional language hint.
var fencedRe = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\r?\n?(.*?)```")

// inlineCodeRe matches a single-backtick inline span on one line.
var inlineCodeRe = regexp.MustCompile("`[^`\n]+`")

// candidate is one potential JSON object found in the text, with its source
// position. Obj is nil when the raw span did not parse as a JSON object.
type candidate struct {
	Raw    string
	Span   Span
	Obj    map[string]any
	Fenced bool
}

// scanCandidates returns every parseable JSON object in text, in source order.
func scanCandidates(text string) []candidate {
	fenced, spans := scanFenced(text)
	bare := scanBareObjects(text, spans)

	out := append(fenced, bare...)
	// Merge keeps source order; fenced and bare regions never overlap.
	sortBySpan(out)
	return out
}

// scanFenced extracts fenced-block bodies and parses the objects inside them.
// Returns the parsed candidates and the full spans of all fenced regions so
// the bare-object scan can skip them.
func scanFenced(text string) ([]candidate, []Span) {
	var cands []candidate
	var regions []Span

	for _, m := range fencedRe.FindAllStringSubmatchIndex(text, -1) {
		regions = append(regions, Span{Start: m[0], End: m[1]})
		body := text[m[2]:m[3]]
		trimmed := strings.TrimSpace(body)
		if trimmed == "" {
			continue
		}

		// Common case: the whole block is one object.
		if obj := parseObject(trimmed); obj != nil {
			cands = append(cands, candidate{Raw: trimmed, Span: Span{Start: m[2], End: m[3]}, Obj: obj, Fenced: true})
			continue
		}

		// Otherwise the block may hold several objects, or an object wrapped
		// in prose. Brace-scan the body itself.
		for _, c := range scanBareObjects(body, nil) {
			c.Span.Start += m[2]
			c.Span.End += m[2]
			c.Fenced = true
			cands = append(cands, c)
		}
	}
	return cands, regions
}

// scanBareObjects finds brace-balanced objects in text outside the skip
// regions. The scan is string- and escape-aware: braces inside quoted strings
// do not count, and backslash escaping is honored. An unmatched opening brace
// does not abort the scan: it is skipped and scanning resumes past it, so
// prose containing a stray '{' cannot hide a later valid object.
func scanBareObjects(text string, skip []Span) []candidate {
	var cands []candidate
	i := 0
	for i < len(text) {
		if inSpans(i, skip) || text[i] != '{' {
			i++
			continue
		}
		end, st := matchObject(text, i)
		if st != scanBalanced {
			i++ // unmatched opener: skip it and keep looking
			continue
		}
		raw := text[i:end]
		if obj := parseObject(raw); obj != nil {
			cands = append(cands, candidate{Raw: raw, Span: Span{Start: i, End: end}, Obj: obj})
		}
		i = end
	}
	return cands
}

// scanState is the terminal state of a brace scan.
type scanState int

const (
	scanBalanced scanState = iota // object closed cleanly
	scanOpenBrace                 // hit end of text with depth > 0
	scanOpenString                // hit end of text inside a string
)

// matchObject runs the brace state machine from the '{' at start. It returns
// the index just past the matching close brace and scanBalanced, or the text
// length and the reason the object never closed.
func matchObject(text string, start int) (end int, st scanState) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, scanBalanced
			}
		}
	}
	if inString {
		return len(text), scanOpenString
	}
	return len(text), scanOpenBrace
}

// parseObject parses raw as a JSON object, returning nil on any failure.
func parseObject(raw string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil
	}
	return obj
}

// maskInlineCode blanks single-backtick inline spans, preserving offsets.
// Inline code is illustrative ("use `sandbox_exec` for commands"), not an
// attempted call, and must not be mistaken for malformed JSON.
func maskInlineCode(text string) string {
	return inlineCodeRe.ReplaceAllStringFunc(text, func(m string) string {
		return strings.Repeat(" ", len(m))
	})
}

func inSpans(i int, spans []Span) bool {
	for _, s := range spans {
		if i >= s.Start && i < s.End {
			return true
		}
	}
	return false
}

func sortBySpan(cands []candidate) {
	// Insertion sort: candidate lists are tiny and mostly ordered already.
	for i := 1; i < len(cands); i++ {
		for j := i; j > 0 && cands[j].Span.Start < cands[j-1].Span.Start; j-- {
			cands[j], cands[j-1] = cands[j-1], cands[j]
		}
	}
}
