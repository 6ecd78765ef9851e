// Package staged tracks side effects of a multi-resource write so they can be
// unwound when a later step fails.
package staged

import (
	"context"
	"errors"
)

// UndoFunc reverts one completed side effect.
type UndoFunc func(ctx context.Context) error

type step struct {
	name string
	undo UndoFunc
}

// Write records completed steps in order. The zero value is ready to use; a
// Write is not safe for concurrent use.
type Write struct {
	steps     []step
	committed bool
}

// Record registers the undo action of a step that has just succeeded.
func (w *Write) Record(name string, undo UndoFunc) {
	if undo == nil {
		return
	}
	w.steps = append(w.steps, step{name: name, undo: undo})
}

// Len returns the number of recorded steps.
func (w *Write) Len() int {
	return len(w.steps)
}

// Commit marks the write as complete; Rollback becomes a no-op.
func (w *Write) Commit() {
	w.committed = true
	w.steps = nil
}

// Rollback runs every recorded undo action in reverse order. All actions are
// attempted; failures are joined into the returned error, each wrapped in a
// *StepError naming the step.
func (w *Write) Rollback(ctx context.Context) error {
	if w.committed {
		return nil
	}
	var errs []error
	for i := len(w.steps) - 1; i >= 0; i-- {
		current := w.steps[i]
		if err := current.undo(ctx); err != nil {
			errs = append(errs, &StepError{Step: current.name, Err: err})
		}
	}
	w.steps = nil
	return errors.Join(errs...)
}

// StepError reports an undo action that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return "undo " + e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}
