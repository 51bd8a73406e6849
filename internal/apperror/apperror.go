// Package apperror defines the stable, machine-readable error taxonomy
// surfaced to users of gitcuttle. Every failure a command reports to a
// user either originates here directly, or is classified into one of
// these codes at the boundary between a lower-level package (gitdriver,
// metadata, txn) and the workspace lifecycle that calls it.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

// Code is a stable machine-readable error identifier. Codes are part of
// the tool's external contract: scripts may match on them, so existing
// strings are never renamed.
type Code string

// The taxonomy from the specification's error handling design. Not
// exhaustive of every internal sentinel error, but stable once a
// command can produce one.
const (
	CodeNotInGitRepo                 Code = "not-in-git-repo"
	CodeGitOperationInProgress       Code = "git-operation-in-progress"
	CodeRepoNotTracked               Code = "repo-not-tracked"
	CodeWorkspaceNotTracked          Code = "workspace-not-tracked"
	CodeBranchMissing                Code = "branch-missing"
	CodeBranchAlreadyExists          Code = "branch-already-exists"
	CodeDetachedHead                 Code = "detached-head"
	CodeInvalidBaseRef               Code = "invalid-base-ref"
	CodeInvalidOctopusParents        Code = "invalid-octopus-parents"
	CodeOctopusMergeFailed           Code = "octopus-merge-failed"
	CodeOctopusParentMissing         Code = "octopus-parent-missing"
	CodeOctopusUpdateNotSupported    Code = "octopus-update-not-supported"
	CodeOctopusUpdateAnalysisFailed  Code = "octopus-update-analysis-failed"
	CodeNoUpstream                   Code = "no-upstream"
	CodeUpdateFetchFailed            Code = "update-fetch-failed"
	CodeUpdateRebaseFailed           Code = "update-rebase-failed"
	CodeInvalidAbsorbTarget          Code = "invalid-absorb-target"
	CodeAbsorbTargetUncertain        Code = "absorb-target-uncertain"
	CodeAbsorbCherryPickFailed       Code = "absorb-cherry-pick-failed"
	CodeAbsorbResetFailed            Code = "absorb-reset-failed"
	CodeAbsorbAnalysisFailed         Code = "absorb-analysis-failed"
	CodeDeleteBlocked                Code = "delete-blocked"
	CodeWorkspaceDirty               Code = "workspace-dirty"
	CodeWorktreeDeleteFailed         Code = "worktree-delete-failed"
	CodeBranchDeleteFailed           Code = "branch-delete-failed"
	CodeWorktreeCreateFailed         Code = "worktree-create-failed"
	CodeBranchCreateFailed           Code = "branch-create-failed"
	CodeBranchCheckoutFailed         Code = "branch-checkout-failed"
	CodeGitCommandFailed             Code = "git-command-failed"
	CodeInteractiveSelectionUnavail  Code = "interactive-selection-unavailable"
	CodeInvalidWorkspaceKind         Code = "invalid-workspace-kind"
	CodeUnsupportedSchema            Code = "unsupported-schema"
	CodeInvalidMetadata              Code = "invalid-metadata"
)

// AppError is the user-visible error type. Code is stable, Message is
// the one-line human summary, Details adds an optional second line,
// Guidance is zero or more "hint:" lines rendered after it.
type AppError struct {
	Code     Code
	Message  string
	Details  string
	Guidance []string
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds an AppError with no details or guidance.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf builds an AppError with a formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails returns a copy of e with Details set.
func (e *AppError) WithDetails(details string) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// WithGuidance returns a copy of e with the given guidance lines appended.
func (e *AppError) WithGuidance(lines ...string) *AppError {
	clone := *e
	clone.Guidance = append(append([]string{}, e.Guidance...), lines...)
	return &clone
}

// Render formats e in the documented human error format:
//
//	error[<code>]: <message>
//	details: <details>         (optional)
//	hint: <guidance line>      (0 or more)
func Render(e *AppError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "error[%s]: %s\n", e.Code, e.Message)
	if e.Details != "" {
		fmt.Fprintf(&b, "details: %s\n", e.Details)
	}
	for _, g := range e.Guidance {
		fmt.Fprintf(&b, "hint: %s\n", g)
	}
	return strings.TrimRight(b.String(), "\n")
}

// As reports whether err is (or wraps) an *AppError, matching the
// standard errors.As convention used throughout the codebase.
func As(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}
