package chat

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/patchplaza/patchwork-cli/internal/llm"
	"github.com/patchplaza/patchwork-cli/internal/protocol"
)

const (
	maxLLMRetries  = 3
	llmRetryDelay  = 2 * time.Second
	maxToolRounds  = 12 // tool round-trips per user turn
	maxCorrections = 2  // protocol corrections per user turn
)

// Session drives the conversation: it sends transcripts to the model,
// detects tool batches in replies, dispatches them, and feeds results back
// until the model answers in prose.
type Session struct {
	LLM      llm.Provider
	Registry *protocol.Registry
	State    *State
	Exec     protocol.ExecContext

	// OnEvent broadcasts session events to the web console.
	// Nil means no web console attached (terminal-only mode).
	OnEvent func(eventType, message string, data any)

	detector   *protocol.Detector
	diagnoser  *protocol.Diagnoser
	dispatcher *protocol.Dispatcher
}

// New creates a session. branches may be nil when no sandbox is configured;
// the guard then blocks protected mutations outright.
func New(provider llm.Provider, reg *protocol.Registry, branches protocol.BranchReader, ec protocol.ExecContext, state *State) *Session {
	return &Session{
		LLM:        provider,
		Registry:   reg,
		State:      state,
		Exec:       ec,
		detector:   protocol.NewDetector(reg),
		diagnoser:  protocol.NewDiagnoser(reg),
		dispatcher: protocol.NewDispatcher(reg, branches),
	}
}

func (s *Session) emit(eventType, message string, data any) {
	if s.OnEvent != nil {
		s.OnEvent(eventType, message, data)
	}
}

// Run starts the interactive loop, blocking until ctx is cancelled or the
// user quits.
func (s *Session) Run(ctx context.Context) error {
	release, err := AcquireLock()
	if err != nil {
		return err
	}
	defer release()

	slog.Info("session started",
		"session", s.State.SessionID, "repo", s.Exec.AllowedRepo, "llm", s.LLM.Name())
	fmt.Printf("patchwork session on %s (%s). Type your request, or 'exit'.\n\n",
		s.Exec.AllowedRepo, s.LLM.Name())

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		select {
		case <-ctx.Done():
			DisplayStats(s.State)
			return nil
		default:
		}

		fmt.Print("you> ")
		if !scanner.Scan() {
			DisplayStats(s.State)
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			DisplayStats(s.State)
			return nil
		}

		reply, err := s.Turn(ctx, input)
		if err != nil {
			if ctx.Err() != nil {
				DisplayStats(s.State)
				return nil
			}
			DisplayError(err.Error())
			continue
		}
		fmt.Printf("\n%s\n\n", reply)
	}
}

// Turn processes one user message to completion: the model may execute any
// number of tool rounds before it produces the prose reply returned here.
func (s *Session) Turn(ctx context.Context, input string) (string, error) {
	s.State.Append("user", input)
	s.State.Turns++
	s.emit("turn", input, nil)

	corrections := 0
	for round := 0; round < maxToolRounds; round++ {
		reply, err := s.ask(ctx)
		if err != nil {
			return "", err
		}

		batch := s.detector.DetectAll(reply)
		if batch.Empty() {
			d := s.diagnoser.Diagnose(reply)
			protocol.RecordDiagnosis(d)
			if d != nil {
				s.emit("diagnosis", string(d.Reason), d)
			}
			if d == nil || d.TelemetryOnly {
				// A plain answer (or a signal we only record) ends the turn.
				s.State.Append("assistant", reply)
				_ = s.State.Save()
				s.emit("reply", reply, nil)
				return reply, nil
			}
			if corrections >= maxCorrections {
				slog.Warn("correction budget exhausted", "reason", d.Reason)
				s.State.Append("assistant", reply)
				_ = s.State.Save()
				return reply, nil
			}
			corrections++
			s.State.Corrections++
			DisplayDiagnosis(d)
			s.State.Append("assistant", reply)
			s.State.Append("user", "[protocol] "+d.Message)
			continue
		}

		for _, inv := range batch.ReadOnly {
			DisplayCall(inv)
			s.emit("call", inv.Name, inv.Args)
		}
		if batch.Mutating != nil {
			DisplayCall(*batch.Mutating)
			s.emit("call", batch.Mutating.Name, batch.Mutating.Args)
		}

		outcomes := s.dispatcher.Run(ctx, batch, s.Exec)
		s.State.ToolCalls += len(outcomes)
		for _, o := range outcomes {
			DisplayOutcome(o)
			s.emit("result", o.Invocation.Name, o.Result)
			if se := o.Result.StructuredError; se != nil {
				s.State.ToolErrors++
				if se.Type == protocol.ErrEditGuardBlocked {
					s.State.GuardBlocks++
				}
			}
			s.applySideEffects(o)
		}

		s.State.Append("assistant", reply)
		s.State.Append("user", renderResults(outcomes))
		_ = s.State.Save()
	}
	return "", fmt.Errorf("turn exceeded %d tool rounds", maxToolRounds)
}

// ask calls the model with retry; transient provider failures should not
// lose the turn.
func (s *Session) ask(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxLLMRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("LLM retry", "attempt", attempt+1)
			if !sleep(ctx, llmRetryDelay) {
				return "", ctx.Err()
			}
		}

		start := time.Now()
		reply, err := s.LLM.Chat(ctx, s.State.Messages)
		if err != nil {
			lastErr = err
			slog.Warn("LLM call failed", "attempt", attempt+1, "error", err)
			continue
		}
		if reply == "" {
			lastErr = fmt.Errorf("LLM returned empty reply")
			continue
		}
		slog.Debug("LLM reply", "len", len(reply), "elapsed", time.Since(start))
		return reply, nil
	}
	return "", fmt.Errorf("LLM failed after %d attempts: %w", maxLLMRetries, lastErr)
}

// applySideEffects folds a mutation's reported state changes into the
// execution context for following rounds.
func (s *Session) applySideEffects(o protocol.Outcome) {
	se := o.Result.SideEffects
	if se == nil {
		return
	}
	if o.Invocation.Name == "sandbox_cleanup" {
		s.Exec.SandboxSessionID = ""
		return
	}
	if se.SandboxID != "" {
		s.Exec.SandboxSessionID = se.SandboxID
	}
}

// renderResults formats dispatched outcomes as the next model-visible turn.
func renderResults(outcomes []protocol.Outcome) string {
	var sb strings.Builder
	sb.WriteString("[tool results]\n")
	for _, o := range outcomes {
		fmt.Fprintf(&sb, "\n### %s\n", o.Invocation.Name)
		if se := o.Result.StructuredError; se != nil {
			fmt.Fprintf(&sb, "error %s (retryable=%t): %s\n", se.Type, se.Retryable(), se.Message)
			if o.Result.Text != "" {
				sb.WriteString(o.Result.Text + "\n")
			}
			continue
		}
		sb.WriteString(o.Result.Text + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
