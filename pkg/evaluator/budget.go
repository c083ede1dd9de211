package evaluator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thomasrohde/itmoscript/pkg/diagnostics"
)

// Budget holds the resource limits for a program execution.
// A zero field means unlimited.
type Budget struct {
	MaxIterations int64 `yaml:"maxIterations" json:"maxIterations,omitempty"`
	MaxCallDepth  int   `yaml:"maxCallDepth" json:"maxCallDepth,omitempty"`
	TimeMs        int64 `yaml:"timeMs" json:"timeMs,omitempty"`
}

// IsZero reports whether no limit is set.
func (b Budget) IsZero() bool {
	return b.MaxIterations == 0 && b.MaxCallDepth == 0 && b.TimeMs == 0
}

// MaxCallDepthLimit caps recursion when the budget leaves call depth
// unlimited.
const MaxCallDepthLimit = 10000

// BudgetTracker tracks resource consumption during execution.
type BudgetTracker struct {
	Iterations int64
	CallDepth  int
	Start      time.Time
}

func (ev *evaluator) budgetError(msg string) error {
	ev.emit(TraceBudgetExceeded, nil, map[string]string{"reason": msg})
	return &RuntimeError{Code: diagnostics.EBudget, Message: msg}
}

// checkContext reports cancellation and the time budget. The deadline is
// installed on the context by Run.
func (ev *evaluator) checkContext() error {
	err := ev.ctx.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ev.budget.TimeMs > 0 {
		return ev.budgetError(fmt.Sprintf("time budget exceeded (%dms)", ev.budget.TimeMs))
	}
	return ev.budgetError(fmt.Sprintf("execution stopped: %v", err))
}

// tickIteration counts one loop iteration against the budget.
func (ev *evaluator) tickIteration() error {
	if err := ev.checkContext(); err != nil {
		return err
	}
	if ev.budget.MaxIterations > 0 && ev.tracker.Iterations >= ev.budget.MaxIterations {
		return ev.budgetError(fmt.Sprintf("iteration budget exceeded (max %d)", ev.budget.MaxIterations))
	}
	ev.tracker.Iterations++
	return nil
}

// enterCall counts one level of call depth; the caller must call leaveCall.
func (ev *evaluator) enterCall() error {
	if err := ev.checkContext(); err != nil {
		return err
	}
	if ev.budget.MaxCallDepth > 0 && ev.tracker.CallDepth >= ev.budget.MaxCallDepth {
		return ev.budgetError(fmt.Sprintf("call depth budget exceeded (max %d)", ev.budget.MaxCallDepth))
	}
	if ev.tracker.CallDepth >= MaxCallDepthLimit {
		return ev.budgetError(fmt.Sprintf("call depth limit exceeded (max %d)", MaxCallDepthLimit))
	}
	ev.tracker.CallDepth++
	return nil
}

func (ev *evaluator) leaveCall() {
	ev.tracker.CallDepth--
}
