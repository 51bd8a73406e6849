package main

import (
	"fmt"

	"github.com/krscott/gitcuttle/internal/apperror"
	"github.com/krscott/gitcuttle/internal/dryrun"
	"github.com/krscott/gitcuttle/internal/gitdriver"
	"github.com/krscott/gitcuttle/internal/metadata"
	"github.com/krscott/gitcuttle/internal/workspace"
)

// resolveTargetBranch returns args[0] if given, else the current
// branch of the worktree at rc.cwd, failing with a bad-args error if
// HEAD is detached and no branch was named explicitly.
func resolveTargetBranch(rc *runtimeContext, d *gitdriver.Driver, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	current, err := d.CurrentBranch(rc.ctx)
	if err != nil {
		return "", fmt.Errorf("resolve current branch: %w", err)
	}
	if current == "" {
		return "", badArgsf("no branch given and HEAD is detached; pass a branch name")
	}
	return current, nil
}

// writePlan renders plan as JSON or the human format depending on
// asJSON and returns the rendered text.
func writePlan(plan dryrun.Plan, asJSON bool) (string, error) {
	if asJSON {
		return dryrun.RenderJSON(plan)
	}
	return dryrun.RenderHuman(plan), nil
}

// resumeInProgressOperation implements the `--continue` resume path
// decided in SPEC_FULL.md §4.3: git's own repository state, not a
// gitcuttle-owned file, is the source of truth for resumability. It
// checks the workspace's own worktree git dir (not the invocation
// directory's) for a mid-flight rebase, merge, or cherry-pick and, if
// continueFlag is set, runs the matching `git ... --continue` there
// instead of restarting op from scratch. Returns true if it resumed
// (the caller should not also run the full lifecycle operation).
func resumeInProgressOperation(rc *runtimeContext, ws metadata.Workspace, continueFlag bool, op string) (bool, error) {
	worktreeGitDir, err := gitdriver.ResolveWorktreeGitDir(ws.WorktreePath)
	if err != nil {
		if continueFlag {
			return false, apperror.New(apperror.CodeGitCommandFailed, "cannot locate the workspace's worktree").
				WithDetails(ws.WorktreePath)
		}
		return false, nil
	}

	marker := gitdriver.InProgressOperation(worktreeGitDir)
	if marker == "" {
		if continueFlag {
			return false, apperror.New(apperror.CodeGitCommandFailed, "nothing to continue: no rebase, merge, or cherry-pick is in progress").
				WithDetails(ws.Branch)
		}
		return false, nil
	}

	if !continueFlag {
		return false, apperror.New(apperror.CodeGitCommandFailed, "a conflicted git operation is already in progress for this workspace").
			WithDetails(marker).
			WithGuidance(fmt.Sprintf("resolve the conflicts and stage them, then rerun `gitcuttle %s --continue`", op))
	}

	d := gitdriver.New(ws.WorktreePath)
	switch marker {
	case "REBASE_HEAD", "rebase-apply/", "rebase-merge/":
		err = d.RebaseContinue(rc.ctx)
	case "MERGE_HEAD":
		err = d.MergeContinue(rc.ctx)
	case "CHERRY_PICK_HEAD":
		err = d.CherryPickContinue(rc.ctx)
	default:
		err = apperror.New(apperror.CodeGitCommandFailed, "unrecognized in-progress operation").WithDetails(marker)
	}
	if err != nil {
		return false, fmt.Errorf("continue %s: %w", marker, err)
	}
	return true, nil
}

// blockedError turns a non-forced block reason into the domain error
// a non-dry-run delete or prune refuses to proceed past.
func blockedError(reason workspace.BlockReason) error {
	switch reason {
	case workspace.BlockWorkspaceDirty:
		return apperror.New(apperror.CodeWorkspaceDirty, "workspace has uncommitted changes").
			WithGuidance("commit or stash the changes, or rerun with --force")
	default:
		return apperror.New(apperror.CodeDeleteBlocked, "refusing to delete the current workspace").
			WithDetails(string(reason)).
			WithGuidance("switch to a different workspace first, or rerun with --force")
	}
}
