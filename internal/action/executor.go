// Package action executes resolved action plans against the DAW interface.
package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rhea-voice/rhea/internal/daw"
	"github.com/rhea-voice/rhea/internal/sched"
	"github.com/rhea-voice/rhea/internal/vocab"
)

// Result is the outcome of one action within a plan.
type Result struct {
	Spec    vocab.ActionSpec
	Success bool
	Error   string
}

// PlanResult is the aggregate outcome of one executed plan. Success is the
// AND of every action result.
type PlanResult struct {
	Success      bool
	Confirmation string
	Results      []Result
	Elapsed      time.Duration
}

// Executor runs plans sequentially: later actions may depend on earlier
// ones having completed, so there is no parallelism here.
type Executor struct {
	actions daw.Actions
	clock   sched.Clock
	logger  *slog.Logger
}

// NewExecutor constructs an executor. actions may be nil when no DAW is
// connected; every action then fails with an explanatory message instead
// of an exception.
func NewExecutor(actions daw.Actions, clock sched.Clock, logger *slog.Logger) *Executor {
	if clock == nil {
		clock = sched.Real()
	}
	return &Executor{actions: actions, clock: clock, logger: logger}
}

// Execute runs every action in the plan in order. A single failure is
// recorded in that action's result and logged as a warning; it never halts
// the rest of the plan.
func (e *Executor) Execute(ctx context.Context, plan *vocab.ActionPlan) PlanResult {
	started := e.clock.Now()
	out := PlanResult{Success: true, Confirmation: plan.Confirmation}

	for _, planned := range plan.Actions {
		result := e.executeOne(ctx, planned)
		if !result.Success {
			out.Success = false
			e.logger.Warn("plan action failed",
				"phrase", plan.Item.Phrase,
				"action_type", string(planned.Spec.Type),
				"error", result.Error,
			)
		}
		out.Results = append(out.Results, result)
	}

	out.Elapsed = e.clock.Now().Sub(started)
	return out
}

// executeOne dispatches one planned action by type, with a distinct
// failure message per failure mode.
func (e *Executor) executeOne(ctx context.Context, planned vocab.PlannedAction) Result {
	result := Result{Spec: planned.Spec}

	switch planned.Spec.Type {
	case vocab.ActionReaperAction, vocab.ActionReaperScript, vocab.ActionFXChain:
		if e.actions == nil {
			result.Error = "DAW action API not available"
			return result
		}
		id := planned.Spec.Payload.ActionID
		if planned.Spec.Type == vocab.ActionReaperScript {
			id = planned.Spec.Payload.Script
		}
		if planned.Spec.Type == vocab.ActionFXChain {
			id = planned.Spec.Payload.Chain
		}
		if err := e.actions.ExecuteAction(ctx, id); err != nil {
			if errors.Is(err, daw.ErrUnavailable) {
				result.Error = "DAW action API not available"
			} else {
				result.Error = err.Error()
			}
			return result
		}
	case vocab.ActionParameterDelta:
		if planned.Spec.Payload.Amount == nil {
			result.Error = fmt.Sprintf("missing %s amount", planned.Spec.Payload.Param)
			return result
		}
		if e.actions == nil {
			result.Error = connectionError(planned.Spec.Payload.Param)
			return result
		}
		err := e.actions.ExecuteTrackCommand(ctx, planned.Spec.Payload.Param, planned.ResolvedTrack, *planned.Spec.Payload.Amount)
		if err != nil {
			if errors.Is(err, daw.ErrUnavailable) {
				result.Error = connectionError(planned.Spec.Payload.Param)
			} else {
				result.Error = err.Error()
			}
			return result
		}
	default:
		result.Error = fmt.Sprintf("unknown action type %q", planned.Spec.Type)
		return result
	}

	result.Success = true
	return result
}

// connectionError distinguishes a missing integration from a transient
// failure so the spoken message can point at the actual fix.
func connectionError(param string) string {
	return fmt.Sprintf("could not adjust %s - is REAPER connected?", param)
}
