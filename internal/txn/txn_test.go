package txn

import (
	"errors"
	"strings"
	"testing"
)

func TestRunAppliesAllStepsOnSuccess(t *testing.T) {
	var order []string
	tr := New()
	for _, name := range []string{"a", "b", "c"} {
		n := name
		tr.AddStep(Step{
			Name:     n,
			Apply:    func() error { order = append(order, "apply:"+n); return nil },
			Rollback: func() error { order = append(order, "rollback:"+n); return nil },
		})
	}

	if err := tr.Run(); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	want := []string{"apply:a", "apply:b", "apply:c"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestRunRollsBackInReverseOrder(t *testing.T) {
	var rolledBack []string
	tr := New()
	tr.AddStep(Step{
		Name:     "a",
		Apply:    func() error { return nil },
		Rollback: func() error { rolledBack = append(rolledBack, "a"); return nil },
	})
	tr.AddStep(Step{
		Name:     "b",
		Apply:    func() error { return nil },
		Rollback: func() error { rolledBack = append(rolledBack, "b"); return nil },
	})
	tr.AddStep(Step{
		Name:     "c",
		Apply:    func() error { return errors.New("boom") },
		Rollback: func() error { t.Fatal("rollback should not be called for the failing step"); return nil },
	})

	err := tr.Run()
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("Run() error = %v, want *ExecutionError", err)
	}
	if execErr.FailedStepName != "c" {
		t.Errorf("FailedStepName = %q, want %q", execErr.FailedStepName, "c")
	}
	wantOrder := []string{"b", "a"}
	if strings.Join(rolledBack, ",") != strings.Join(wantOrder, ",") {
		t.Errorf("rollback order = %v, want %v", rolledBack, wantOrder)
	}
	if strings.Join(execErr.RolledBackSteps, ",") != strings.Join(wantOrder, ",") {
		t.Errorf("ExecutionError.RolledBackSteps = %v, want %v", execErr.RolledBackSteps, wantOrder)
	}
}

func TestRunProducesRollbackErrorWhenRollbackFails(t *testing.T) {
	tr := New()
	tr.AddStep(Step{
		Name:             "a",
		Apply:            func() error { return nil },
		Rollback:         func() error { return errors.New("rollback a failed") },
		RecoveryCommands: []string{"git update-ref refs/heads/a <oid>"},
	})
	tr.AddStep(Step{
		Name:     "b",
		Apply:    func() error { return errors.New("apply b failed") },
		Rollback: func() error { return nil },
	})

	err := tr.Run()
	var rbErr *RollbackError
	if !errors.As(err, &rbErr) {
		t.Fatalf("Run() error = %v, want *RollbackError", err)
	}
	if len(rbErr.Failures) != 1 || rbErr.Failures[0].StepName != "a" {
		t.Errorf("Failures = %+v, want one failure for step a", rbErr.Failures)
	}

	recovery := rbErr.RecoveryCommands()
	if len(recovery) != 1 || recovery[0] != "git update-ref refs/heads/a <oid>" {
		t.Errorf("RecoveryCommands() = %v, want the single recovery command", recovery)
	}

	report := rbErr.FormatPartialState()
	for _, want := range []string{
		"transaction id: " + rbErr.TxnID,
		"failed step: b",
		"rollback failures:",
		"- a: rollback a failed",
		"deterministic recovery commands:",
		"- git update-ref refs/heads/a <oid>",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("FormatPartialState() missing %q, got:\n%s", want, report)
		}
	}
}

func TestRecoveryCommandsDeduplicatesPreservingOrder(t *testing.T) {
	rbErr := &RollbackError{
		Failures: []RollbackFailure{
			{StepName: "a", RecoveryCommands: []string{"cmd1", "cmd2"}},
			{StepName: "b", RecoveryCommands: []string{"cmd2", "cmd3"}},
		},
	}
	got := rbErr.RecoveryCommands()
	want := []string{"cmd1", "cmd2", "cmd3"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("RecoveryCommands() = %v, want %v", got, want)
	}
}

func TestFormatPartialStateNoRecoveryCommands(t *testing.T) {
	rbErr := &RollbackError{
		TxnID:          "abc123",
		FailedStepName: "b",
		Cause:          errors.New("boom"),
		Failures:       []RollbackFailure{{StepName: "a", Error: errors.New("fail")}},
	}
	report := rbErr.FormatPartialState()
	if !strings.Contains(report, "deterministic recovery commands: (none provided)") {
		t.Errorf("FormatPartialState() = %q, want \"(none provided)\" line", report)
	}
}
