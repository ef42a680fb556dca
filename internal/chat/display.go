package chat

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/patchplaza/patchwork-cli/internal/protocol"
)

// SetupLogger configures the global slog logger.
func SetupLogger(level string) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}

func ts() string { return time.Now().Format("15:04:05") }

// DisplayCall prints a tool call as it starts.
func DisplayCall(inv protocol.Invocation) {
	fmt.Printf("[%s] -> %s\n", ts(), inv.Name)
}

// DisplayOutcome prints a tool result, compressed to one or two lines.
func DisplayOutcome(o protocol.Outcome) {
	if se := o.Result.StructuredError; se != nil {
		retry := ""
		if se.Retryable() {
			retry = ", retryable"
		}
		fmt.Printf("[%s] <- %s failed: %s (%s%s)\n", ts(), o.Invocation.Name, se.Message, se.Type, retry)
		return
	}
	line := firstLine(o.Result.Text)
	fmt.Printf("[%s] <- %s: %s\n", ts(), o.Invocation.Name, line)
	if c := o.Result.Card; c != nil && c.Title != "" {
		fmt.Printf("[%s]    [%s] %s\n", ts(), c.Kind, c.Title)
	}
}

// DisplayDiagnosis prints a corrective diagnosis.
func DisplayDiagnosis(d *protocol.Diagnosis) {
	fmt.Printf("[%s] !! %s (%s)\n", ts(), firstLine(d.Message), d.Reason)
}

// DisplayError prints an error message.
func DisplayError(msg string) {
	fmt.Printf("[%s] Error: %s\n", ts(), msg)
}

// DisplayStats prints cumulative session statistics.
func DisplayStats(state *State) {
	fmt.Printf("\n--- Session Stats ---\n")
	fmt.Printf("Turns:        %d\n", state.Turns)
	fmt.Printf("Tool calls:   %d\n", state.ToolCalls)
	fmt.Printf("Tool errors:  %d\n", state.ToolErrors)
	fmt.Printf("Corrections:  %d\n", state.Corrections)
	fmt.Printf("Guard blocks: %d\n", state.GuardBlocks)
	fmt.Println()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 100 {
		s = s[:97] + "..."
	}
	return s
}
