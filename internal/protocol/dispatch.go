package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// BranchReader reports the branch currently checked out in the active
// workspace. The dispatcher consults it before protected mutations.
type BranchReader interface {
	CurrentBranch(ctx context.Context) (string, error)
}

// Dispatcher executes a detected batch: read-only calls concurrently, then
// the single mutating call, with the branch guard in front of protected
// mutations. Results keep the batch's order regardless of completion order.
type Dispatcher struct {
	reg      *Registry
	branches BranchReader
}

func NewDispatcher(reg *Registry, branches BranchReader) *Dispatcher {
	return &Dispatcher{reg: reg, branches: branches}
}

// Run executes the batch and returns one Outcome per invocation, reads
// first in batch order, the mutation (if any) last.
func (d *Dispatcher) Run(ctx context.Context, batch Batch, ec ExecContext) []Outcome {
	outcomes := make([]Outcome, 0, batch.Len())

	if len(batch.ReadOnly) > 0 {
		results := make([]ExecutionResult, len(batch.ReadOnly))
		g, gctx := errgroup.WithContext(ctx)
		for i := range batch.ReadOnly {
			i := i
			inv := batch.ReadOnly[i]
			g.Go(func() error {
				results[i] = d.runOne(gctx, inv, ec)
				return nil
			})
		}
		g.Wait()
		for i, inv := range batch.ReadOnly {
			outcomes = append(outcomes, Outcome{Invocation: inv, Result: results[i]})
		}
	}

	if batch.Mutating != nil {
		inv := *batch.Mutating
		var res ExecutionResult
		if blocked, reason := d.guard(ctx, inv, ec); blocked {
			guardBlocksTotal.Inc()
			slog.Warn("branch guard blocked mutation", "tool", inv.Name, "reason", reason)
			res = ExecutionResult{
				Text: reason,
				StructuredError: &ToolError{
					Type:    ErrEditGuardBlocked,
					Message: reason,
				},
			}
		} else {
			res = d.runOne(ctx, inv, ec)
		}
		outcomes = append(outcomes, Outcome{Invocation: inv, Result: res})
	}
	return outcomes
}

// guard decides whether a protected mutation may proceed. Any failure to
// learn the current branch blocks the call: the guard fails safe.
func (d *Dispatcher) guard(ctx context.Context, inv Invocation, ec ExecContext) (blocked bool, reason string) {
	if !d.reg.IsProtectedMutation(inv.Name) || !ec.IsMainProtected {
		return false, ""
	}
	if d.branches == nil {
		return true, fmt.Sprintf("%s blocked: no workspace is active, so the current branch cannot be verified", inv.Name)
	}
	branch, err := d.branches.CurrentBranch(ctx)
	if err != nil {
		return true, fmt.Sprintf("%s blocked: could not verify the current branch (%v); switch to a work branch first", inv.Name, err)
	}
	if branch == "main" || branch == "master" || (ec.DefaultBranch != "" && branch == ec.DefaultBranch) {
		return true, fmt.Sprintf("%s blocked: refusing to commit on protected branch %q; create a work branch first", inv.Name, branch)
	}
	return false, ""
}

// runOne executes a single invocation with panic containment. A panicking
// adapter yields a structured UNKNOWN error instead of taking down the turn.
func (d *Dispatcher) runOne(ctx context.Context, inv Invocation, ec ExecContext) (res ExecutionResult) {
	a := d.reg.Resolve(inv.Name)
	if a == nil {
		return ExecutionResult{StructuredError: Errf(ErrUnknown, "no adapter registered for %s", inv.Name)}
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tool panicked", "tool", inv.Name, "panic", r)
			res = ExecutionResult{StructuredError: Errf(ErrUnknown, "%s crashed: %v", inv.Name, r)}
		}
		if res.StructuredError != nil {
			dispatchErrors.WithLabelValues(inv.Name, string(res.StructuredError.Type)).Inc()
		}
	}()

	start := time.Now()
	res = a.Execute(ctx, inv, ec)
	dispatchDuration.WithLabelValues(inv.Name).Observe(time.Since(start).Seconds())
	return res
}
