package protocol

import (
	"fmt"
	"regexp"
	"strings"
)

// DiagnosisReason classifies why a response that contained no usable tool
// call looked like it was trying to make one.
type DiagnosisReason string

const (
	ReasonTruncated             DiagnosisReason = "truncated"
	ReasonValidationFailed      DiagnosisReason = "validation_failed"
	ReasonMalformedJSON         DiagnosisReason = "malformed_json"
	ReasonNaturalLanguageIntent DiagnosisReason = "natural_language_intent"
)

// Diagnosis describes a failed tool-call attempt. Message is the corrective
// text fed back to the model on the follow-up turn. TelemetryOnly diagnoses
// are recorded but never injected into the conversation.
type Diagnosis struct {
	Reason        DiagnosisReason
	ToolName      string
	Message       string
	TelemetryOnly bool
}

// Diagnoser inspects responses the detector found nothing in. It is only
// consulted after detection returns an empty batch.
type Diagnoser struct {
	reg *Registry
}

func NewDiagnoser(reg *Registry) *Diagnoser {
	return &Diagnoser{reg: reg}
}

var (
	toolMentionRe = regexp.MustCompile(`\{\s*"tool"\s*:\s*"([A-Za-z0-9_-]+)"`)
	starterRe     = regexp.MustCompile(`(?i)\b(i'?ll|i will|let me|i'?m going to|going to|allow me to)\b`)
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// Diagnose runs the checks in fixed order and returns the first hit, or nil
// when the response reads as a plain answer.
func (g *Diagnoser) Diagnose(text string) *Diagnosis {
	if d := g.truncated(text); d != nil {
		return d
	}
	if d := g.failedValidation(text); d != nil {
		return d
	}
	if d := g.malformed(text); d != nil {
		return d
	}
	if d := g.bareArgs(text); d != nil {
		return d
	}
	return g.naturalLanguage(text)
}

// truncated reports a known-tool object that the text ends in the middle of:
// an open string or an open brace still pending at end-of-text.
func (g *Diagnoser) truncated(text string) *Diagnosis {
	ms := toolMentionRe.FindAllStringSubmatchIndex(text, -1)
	if len(ms) == 0 {
		return nil
	}
	last := ms[len(ms)-1]
	name := text[last[2]:last[3]]
	if !g.reg.Knows(name) {
		return nil
	}
	_, st := matchObject(text, last[0])
	if st == scanBalanced {
		return nil
	}
	what := "an unclosed brace"
	if st == scanOpenString {
		what = "an unterminated string"
	}
	return &Diagnosis{
		Reason:   ReasonTruncated,
		ToolName: name,
		Message: fmt.Sprintf("Your %s call was cut off mid-JSON (%s at the end of the response). Resend the complete call, for example:\n%s",
			name, what, Hint(name)),
	}
}

// failedValidation reports objects that parse (directly or after light
// repair) with a known tool name but do not pass that tool's validator.
func (g *Diagnoser) failedValidation(text string) *Diagnosis {
	for _, c := range scanCandidates(text) {
		name, args, ok := splitCall(c.Obj)
		if !ok {
			continue
		}
		a := g.reg.Resolve(name)
		if a == nil {
			continue
		}
		if _, verr := a.Validate(name, args); verr != nil {
			return &Diagnosis{
				Reason:   ReasonValidationFailed,
				ToolName: name,
				Message: fmt.Sprintf("Your %s call was rejected: %s. A valid call looks like:\n%s",
					name, verr.Reason, Hint(name)),
			}
		}
	}
	// Retry on repaired text: trailing commas stripped, braces closed.
	repaired := repairJSON(text)
	if repaired == text {
		return nil
	}
	for _, c := range scanCandidates(repaired) {
		name, args, ok := splitCall(c.Obj)
		if !ok {
			continue
		}
		a := g.reg.Resolve(name)
		if a == nil {
			continue
		}
		if _, verr := a.Validate(name, args); verr != nil {
			return &Diagnosis{
				Reason:   ReasonValidationFailed,
				ToolName: name,
				Message: fmt.Sprintf("Your %s call was rejected: %s. A valid call looks like:\n%s",
					name, verr.Reason, Hint(name)),
			}
		}
	}
	return nil
}

// malformed reports a known-tool region that is structurally broken JSON:
// it neither parses as-is nor after repair.
func (g *Diagnoser) malformed(text string) *Diagnosis {
	masked := maskInlineCode(text)
	for _, m := range toolMentionRe.FindAllStringSubmatchIndex(masked, -1) {
		name := masked[m[2]:m[3]]
		if !g.reg.Knows(name) {
			continue
		}
		end, st := matchObject(masked, m[0])
		region := masked[m[0]:end]
		if parseObject(region) != nil || parseObject(repairJSON(region)) != nil {
			continue
		}
		defect := "invalid JSON syntax"
		switch {
		case st == scanOpenString:
			defect = "an unterminated string"
		case st != scanBalanced:
			defect = "unbalanced braces"
		case trailingComma.MatchString(region):
			defect = "a trailing comma"
		}
		if len(region) > 200 {
			region = region[:200] + "..."
		}
		return &Diagnosis{
			Reason:   ReasonMalformedJSON,
			ToolName: name,
			Message: fmt.Sprintf("Your %s call contained %s and could not be parsed:\n%s\nResend it as valid JSON, for example:\n%s",
				name, defect, region, Hint(name)),
		}
	}
	return nil
}

// bareArgs reports an object with no "tool" key whose argument shape matches
// exactly one tool. Recorded for telemetry only; when the shape also
// validates the detector has already recovered it upstream.
func (g *Diagnoser) bareArgs(text string) *Diagnosis {
	for _, c := range scanCandidates(text) {
		if _, has := c.Obj["tool"]; has {
			continue
		}
		var claimed string
		for _, a := range g.reg.Adapters() {
			if name, ok := a.RecoverBareArgs(c.Obj); ok {
				if claimed != "" {
					claimed = ""
					break
				}
				claimed = name
			}
		}
		if claimed == "" {
			continue
		}
		return &Diagnosis{
			Reason:        ReasonValidationFailed,
			ToolName:      claimed,
			TelemetryOnly: true,
			Message: fmt.Sprintf("Tool call emitted without a \"tool\" key; arguments matched %s. The full form is:\n%s",
				claimed, Hint(claimed)),
		}
	}
	return nil
}

// nlKeywords maps phrase fragments to the tool they announce. All fragments
// in a row must appear for the row to match.
var nlKeywords = []struct {
	frags []string
	tool  string
}{
	{[]string{"delegate", "review"}, "delegate_reviewer"},
	{[]string{"delegate", "cod"}, "delegate_coder"},
	{[]string{"hand", "off", "coder"}, "delegate_coder"},
	{[]string{"search the web"}, "web_search"},
	{[]string{"web search"}, "web_search"},
	{[]string{"look", "up online"}, "web_search"},
	{[]string{"ask the user"}, "ask_user"},
	{[]string{"run", "command"}, "sandbox_exec"},
	{[]string{"execute", "sandbox"}, "sandbox_exec"},
}

// naturalLanguage reports prose that announces a tool call instead of making
// one. Short responses and responses that already carry JSON near a tool
// token are left alone.
func (g *Diagnoser) naturalLanguage(text string) *Diagnosis {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 15 {
		return nil
	}
	if !starterRe.MatchString(trimmed) {
		return nil
	}
	masked := maskInlineCode(trimmed)
	lower := strings.ToLower(masked)

	tool := ""
	for _, name := range g.reg.KnownNames() {
		if i := strings.Index(lower, name); i >= 0 {
			if strings.Contains(windowAround(lower, i, 40), "{") {
				return nil
			}
			tool = name
			break
		}
	}
	if tool == "" {
		for _, kw := range nlKeywords {
			all := true
			for _, f := range kw.frags {
				if !strings.Contains(lower, f) {
					all = false
					break
				}
			}
			if all && g.reg.Knows(kw.tool) {
				tool = kw.tool
				break
			}
		}
	}
	if tool == "" {
		return nil
	}
	return &Diagnosis{
		Reason:   ReasonNaturalLanguageIntent,
		ToolName: tool,
		Message: fmt.Sprintf("You described calling %s instead of calling it. Emit the JSON call directly:\n%s",
			tool, Hint(tool)),
	}
}

// repairJSON applies the two cheap fixes the retry pass is allowed: strip
// trailing commas and close dangling braces at end-of-text.
func repairJSON(text string) string {
	out := trailingComma.ReplaceAllString(text, "$1")
	open := 0
	inStr, esc := false, false
	for i := 0; i < len(out); i++ {
		ch := out[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case ch == '\\':
				esc = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '{':
			open++
		case '}':
			if open > 0 {
				open--
			}
		}
	}
	if inStr {
		out += `"`
	}
	out += strings.Repeat("}", open)
	return out
}

func windowAround(s string, i, radius int) string {
	lo := i - radius
	if lo < 0 {
		lo = 0
	}
	hi := i + radius
	if hi > len(s) {
		hi = len(s)
	}
	return s[lo:hi]
}
