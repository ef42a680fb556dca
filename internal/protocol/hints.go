package protocol

// workedExamples is the static per-tool hint table: one canonical, complete
// invocation per tool, used verbatim in corrective messages and in the system
// prompt's tool reference. Kept in sync with each family's validator.
var workedExamples = map[string]string{
	// github
	"read_file":    `{"tool": "read_file", "args": {"repo": "acme/app", "path": "src/main.ts"}}`,
	"list_prs":     `{"tool": "list_prs", "args": {"repo": "acme/app", "state": "open"}}`,
	"list_issues":  `{"tool": "list_issues", "args": {"repo": "acme/app", "state": "open"}}`,
	"search_code":  `{"tool": "search_code", "args": {"repo": "acme/app", "query": "handleLogin"}}`,
	"create_issue": `{"tool": "create_issue", "args": {"repo": "acme/app", "title": "Bug: login fails", "body": "Steps to reproduce..."}}`,

	// sandbox
	"sandbox_create":         `{"tool": "sandbox_create", "args": {"repo": "acme/app", "branch": "main"}}`,
	"sandbox_exec":           `{"tool": "sandbox_exec", "args": {"command": "npm test"}}`,
	"sandbox_read_file":      `{"tool": "sandbox_read_file", "args": {"path": "src/main.ts"}}`,
	"sandbox_write_file":     `{"tool": "sandbox_write_file", "args": {"path": "src/main.ts", "content": "export const x = 1\n"}}`,
	"sandbox_diff":           `{"tool": "sandbox_diff", "args": {}}`,
	"sandbox_prepare_commit": `{"tool": "sandbox_prepare_commit", "args": {"message": "fix: handle empty login"}}`,
	"sandbox_push":           `{"tool": "sandbox_push", "args": {}}`,
	"sandbox_cleanup":        `{"tool": "sandbox_cleanup", "args": {}}`,

	// scratchpad
	"scratchpad_write": `{"tool": "scratchpad_write", "args": {"key": "plan", "content": "1. read file 2. fix bug"}}`,
	"scratchpad_read":  `{"tool": "scratchpad_read", "args": {"key": "plan"}}`,
	"scratchpad_list":  `{"tool": "scratchpad_list", "args": {}}`,

	// websearch
	"web_search": `{"tool": "web_search", "args": {"query": "typescript promise cancellation", "max_results": 5}}`,

	// askuser
	"ask_user": `{"tool": "ask_user", "args": {"question": "Which branch should I target?", "choices": ["main", "develop"]}}`,

	// delegate
	"delegate_coder":    `{"tool": "delegate_coder", "args": {"task": "Fix the null check in src/auth.ts"}}`,
	"delegate_reviewer": `{"tool": "delegate_reviewer", "args": {"task": "Review the diff for the login fix"}}`,
}

// Hint returns the canonical worked example for a tool, or "" if unknown.
func Hint(name string) string {
	return workedExamples[name]
}

// HintedNames returns every tool name with a worked example.
func HintedNames() []string {
	names := make([]string, 0, len(workedExamples))
	for n := range workedExamples {
		names = append(names, n)
	}
	return names
}
