// Package txn implements the transactional executor: an ordered list
// of steps applied forward, rolled back in reverse on failure, with a
// deterministic partial-state report when rollback itself fails.
package txn

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Step is one unit of a Transaction. Apply performs the mutation;
// Rollback undoes it and must be safe to call even if Apply never
// completed (e.g. it detects its own no-op case). RecoveryCommands are
// human-readable commands surfaced only when Rollback itself fails.
type Step struct {
	Name             string
	Apply            func() error
	Rollback         func() error
	RecoveryCommands []string
}

// Transaction is an ordered, named list of Steps sharing one ID.
type Transaction struct {
	ID    string
	steps []Step
}

// New creates an empty transaction with a fresh ID.
func New() *Transaction {
	return &Transaction{ID: uuid.New().String()}
}

// AddStep appends a single step.
func (t *Transaction) AddStep(step Step) {
	t.steps = append(t.steps, step)
}

// AddSteps appends multiple steps in order.
func (t *Transaction) AddSteps(steps ...Step) {
	t.steps = append(t.steps, steps...)
}

// Run applies steps in order. On the first failure it rolls back every
// previously completed step in reverse order and returns either an
// *ExecutionError (all rollbacks succeeded) or a *RollbackError (at
// least one rollback itself failed). Run never retries and never
// swallows an error.
func (t *Transaction) Run() error {
	var completed []Step

	for _, step := range t.steps {
		if err := step.Apply(); err != nil {
			return t.rollback(step.Name, err, completed)
		}
		completed = append(completed, step)
	}
	return nil
}

func (t *Transaction) rollback(failedStep string, cause error, completed []Step) error {
	var rolledBack []string
	var failures []RollbackFailure

	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if err := step.Rollback(); err != nil {
			failures = append(failures, RollbackFailure{
				StepName:         step.Name,
				Error:            err,
				RecoveryCommands: step.RecoveryCommands,
			})
			continue
		}
		rolledBack = append(rolledBack, step.Name)
	}

	if len(failures) > 0 {
		return &RollbackError{
			TxnID:           t.ID,
			FailedStepName:  failedStep,
			Cause:           cause,
			RolledBackSteps: rolledBack,
			Failures:        failures,
		}
	}
	return &ExecutionError{
		TxnID:           t.ID,
		FailedStepName:  failedStep,
		Cause:           cause,
		RolledBackSteps: rolledBack,
	}
}

// Run is a convenience wrapper that builds a Transaction from steps and
// runs it, mirroring original_source's run_transaction helper.
func Run(steps ...Step) error {
	t := New()
	t.AddSteps(steps...)
	return t.Run()
}

// ExecutionError reports that apply failed but every completed step
// rolled back successfully.
type ExecutionError struct {
	TxnID           string
	FailedStepName  string
	Cause           error
	RolledBackSteps []string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("transaction %s: step %q failed: %v (rolled back: %s)",
		e.TxnID, e.FailedStepName, e.Cause, strings.Join(e.RolledBackSteps, ", "))
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// RollbackFailure is one step whose Rollback itself raised an error.
type RollbackFailure struct {
	StepName         string
	Error            error
	RecoveryCommands []string
}

// RollbackError reports that apply failed and at least one rollback
// also failed, leaving the repository and/or metadata in a partially
// mutated state that needs manual recovery.
type RollbackError struct {
	TxnID           string
	FailedStepName  string
	Cause           error
	RolledBackSteps []string
	Failures        []RollbackFailure
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("transaction %s: step %q failed and rollback was incomplete: %v",
		e.TxnID, e.FailedStepName, e.Cause)
}

func (e *RollbackError) Unwrap() error { return e.Cause }

// RecoveryCommands returns the ordered, deduplicated union of every
// failed step's RecoveryCommands, preserving first-seen order.
func (e *RollbackError) RecoveryCommands() []string {
	seen := map[string]bool{}
	var result []string
	for _, f := range e.Failures {
		for _, cmd := range f.RecoveryCommands {
			if !seen[cmd] {
				seen[cmd] = true
				result = append(result, cmd)
			}
		}
	}
	return result
}

// FormatPartialState renders a human-readable block describing the
// transaction's failure and what a user must do to recover, suitable
// for emission to stderr.
func (e *RollbackError) FormatPartialState() string {
	var b strings.Builder
	fmt.Fprintf(&b, "transaction id: %s\n", e.TxnID)
	fmt.Fprintf(&b, "failed step: %s\n", e.FailedStepName)
	fmt.Fprintf(&b, "operation error: %v\n", e.Cause)

	if len(e.RolledBackSteps) > 0 {
		fmt.Fprintf(&b, "rolled back steps: %s\n", strings.Join(e.RolledBackSteps, ", "))
	} else {
		b.WriteString("rolled back steps: (none)\n")
	}

	b.WriteString("rollback failures:\n")
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "- %s: %v\n", f.StepName, f.Error)
	}

	recovery := e.RecoveryCommands()
	if len(recovery) > 0 {
		b.WriteString("deterministic recovery commands:\n")
		for _, cmd := range recovery {
			fmt.Fprintf(&b, "- %s\n", cmd)
		}
	} else {
		b.WriteString("deterministic recovery commands: (none provided)\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
