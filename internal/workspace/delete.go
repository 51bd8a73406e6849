package workspace

import (
	"context"
	"fmt"
	"os"

	"github.com/krscott/gitcuttle/internal/apperror"
	"github.com/krscott/gitcuttle/internal/dryrun"
	"github.com/krscott/gitcuttle/internal/gitdriver"
	"github.com/krscott/gitcuttle/internal/metadata"
	"github.com/krscott/gitcuttle/internal/txn"
)

// DeleteScope selects which of a workspace's three facets (worktree,
// branch + metadata) a delete call tears down. The CLI's
// --workspace-only/--worktree-only flags are mutually exclusive, so
// exactly one of these is active per invocation.
type DeleteScope int

const (
	// ScopeAll removes the worktree, deletes the branch, and untracks
	// the workspace from metadata — the default.
	ScopeAll DeleteScope = iota
	// ScopeWorktreeOnly removes only the working directory, leaving the
	// branch and the metadata entry intact so the worktree can be
	// recreated later against the same tracked branch.
	ScopeWorktreeOnly
	// ScopeWorkspaceOnly deletes the branch and untracks the metadata
	// entry but leaves the worktree directory on disk, now outside
	// git's worktree list.
	ScopeWorkspaceOnly
)

// DeleteOptions configures a delete call.
type DeleteOptions struct {
	Scope  DeleteScope
	Force  bool
	DryRun bool
}

// DeleteBlockReason implements spec §4.6 delete's preflight: refuse a
// non-forced delete of the current workspace or a dirty worktree.
func DeleteBlockReason(ctx context.Context, current, target, worktreePath string, force bool) (BlockReason, error) {
	if force {
		return "", nil
	}
	if current == target {
		return BlockCurrentWorkspace, nil
	}
	if _, err := os.Stat(worktreePath); err == nil {
		d := gitdriver.New(worktreePath)
		dirty, err := d.HasUncommittedChanges(ctx)
		if err != nil {
			return "", fmt.Errorf("check worktree for uncommitted changes: %w", err)
		}
		if dirty {
			return BlockWorkspaceDirty, nil
		}
	}
	return "", nil
}

// PlanDelete builds the dry-run plan a Delete call would execute,
// without performing any mutation.
func PlanDelete(blockReason BlockReason, ws metadata.Workspace, opts DeleteOptions) dryrun.Plan {
	plan := dryrun.Plan{Command: "delete"}
	if blockReason != "" {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("skipping %s: blocked by %s; rerun with --force", ws.Branch, blockReason))
		return plan
	}

	if opts.Scope != ScopeWorkspaceOnly {
		details := "forced"
		if !opts.Force {
			details = ""
		}
		plan.Actions = append(plan.Actions, dryrun.Action{Op: "delete-worktree", Target: ws.WorktreePath, Details: details})
	}
	if opts.Scope != ScopeWorktreeOnly {
		plan.Actions = append(plan.Actions, dryrun.Action{Op: "delete-branch", Target: ws.Branch})
		plan.Actions = append(plan.Actions, dryrun.Action{Op: "untrack-workspace", Target: ws.Branch})
	}
	return plan
}

// Delete implements spec §4.6 delete: remove the worktree, delete the
// branch, and untrack the workspace from metadata, in that order,
// inside a single transaction so a partial failure rolls back the
// branch deletion.
func Delete(ctx context.Context, store *metadata.Store, gitDir, repoRoot string, ws metadata.Workspace, opts DeleteOptions) error {
	d := gitdriver.New(repoRoot)
	t := txn.New()

	if opts.Scope != ScopeWorkspaceOnly {
		path := ws.WorktreePath
		t.AddStep(txn.Step{
			Name: "remove-worktree",
			Apply: func() error {
				if _, err := os.Stat(path); os.IsNotExist(err) {
					return nil
				}
				if err := d.WorktreeRemove(ctx, path, opts.Force); err != nil {
					return apperror.New(apperror.CodeWorktreeDeleteFailed, "failed to delete workspace worktree").
						WithDetails(err.Error())
				}
				return nil
			},
			Rollback: func() error { return nil },
			RecoveryCommands: []string{
				fmt.Sprintf("git -C %s worktree add %s %s", repoRoot, path, ws.Branch),
			},
		})
	}

	var branchBackupOID string
	if opts.Scope != ScopeWorktreeOnly {
		t.AddStep(txn.Step{
			Name: "delete-branch",
			Apply: func() error {
				oid, err := snapshotBranch(ctx, d, t.ID, ws.Branch)
				if err != nil {
					return err
				}
				branchBackupOID = oid
				if err := d.DeleteBranch(ctx, ws.Branch, opts.Force); err != nil {
					return apperror.New(apperror.CodeBranchDeleteFailed, "failed to delete workspace branch").
						WithDetails(err.Error())
				}
				return nil
			},
			Rollback: func() error {
				return restoreBranch(ctx, d, ws.Branch, branchBackupOID)
			},
			RecoveryCommands: []string{
				fmt.Sprintf("git -C %s branch %s %s", repoRoot, ws.Branch, backupRefName(t.ID, ws.Branch)),
			},
		})

		t.AddStep(txn.Step{
			Name: "untrack-workspace",
			Apply: func() error {
				m, err := store.Read()
				if err != nil {
					return err
				}
				repo, ok := m.Repos[gitDir]
				if !ok {
					return nil
				}
				updated := make(map[string]metadata.Workspace, len(repo.Workspaces))
				for k, v := range repo.Workspaces {
					if k != ws.Branch {
						updated[k] = v
					}
				}
				repo.Workspaces = updated
				m.Repos[gitDir] = repo
				return store.Write(m)
			},
			Rollback: func() error {
				m, err := store.Read()
				if err != nil {
					return err
				}
				repo, ok := m.Repos[gitDir]
				if !ok {
					return nil
				}
				updated := make(map[string]metadata.Workspace, len(repo.Workspaces)+1)
				for k, v := range repo.Workspaces {
					updated[k] = v
				}
				updated[ws.Branch] = ws
				repo.Workspaces = updated
				m.Repos[gitDir] = repo
				return store.Write(m)
			},
		})
	}

	if err := t.Run(); err != nil {
		return err
	}
	return purgeBackups(ctx, d, t.ID)
}
