package protocol

import "fmt"

// ToolErrorType classifies execution failures so the host loop can decide
// whether to retry, surface, or abort.
type ToolErrorType string

const (
	ErrFileNotFound        ToolErrorType = "FILE_NOT_FOUND"
	ErrExecTimeout         ToolErrorType = "EXEC_TIMEOUT"
	ErrExecNonZeroExit     ToolErrorType = "EXEC_NON_ZERO_EXIT"
	ErrSandboxUnreachable  ToolErrorType = "SANDBOX_UNREACHABLE"
	ErrEditHashMismatch    ToolErrorType = "EDIT_HASH_MISMATCH"
	ErrEditContentNotFound ToolErrorType = "EDIT_CONTENT_NOT_FOUND"
	ErrAuthFailure         ToolErrorType = "AUTH_FAILURE"
	ErrRateLimited         ToolErrorType = "RATE_LIMITED"
	ErrStaleFile           ToolErrorType = "STALE_FILE"
	ErrEditGuardBlocked    ToolErrorType = "EDIT_GUARD_BLOCKED"
	ErrWriteFailed         ToolErrorType = "WRITE_FAILED"
	ErrUnknown             ToolErrorType = "UNKNOWN"
)

// Retryable reports whether a failure of this type can be resolved by simply
// trying again (possibly after a wait).
func (t ToolErrorType) Retryable() bool {
	switch t {
	case ErrExecTimeout, ErrSandboxUnreachable, ErrRateLimited, ErrStaleFile:
		return true
	}
	return false
}

// ToolError is the structured form every execution failure is converted to at
// the dispatch boundary. The host loop never sees a language-level panic or
// error for a failed tool call.
type ToolError struct {
	Type    ToolErrorType `json:"type"`
	Message string        `json:"message"`
	Detail  string        `json:"detail,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Retryable reports whether the error's type is retryable.
func (e *ToolError) Retryable() bool { return e.Type.Retryable() }

// Errf builds a ToolError with a formatted message.
func Errf(t ToolErrorType, format string, args ...any) *ToolError {
	return &ToolError{Type: t, Message: fmt.Sprintf(format, args...)}
}
