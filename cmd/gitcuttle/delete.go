package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krscott/gitcuttle/internal/gitdriver"
	"github.com/krscott/gitcuttle/internal/orchestrator"
	"github.com/krscott/gitcuttle/internal/workspace"
)

var (
	deleteWorkspaceOnly bool
	deleteWorktreeOnly  bool
	deleteForce         bool
	deleteDryRun        bool
	deleteJSON          bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete [<branch>]",
	Short: "Remove a workspace's worktree, branch, and metadata entry",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDelete,
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteWorkspaceOnly, "workspace-only", false, "untrack the workspace and delete its branch, but leave the worktree directory on disk")
	deleteCmd.Flags().BoolVar(&deleteWorktreeOnly, "worktree-only", false, "remove only the worktree directory, keeping the branch and metadata entry")
	deleteCmd.MarkFlagsMutuallyExclusive("workspace-only", "worktree-only")
	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "delete even the current workspace or one with uncommitted changes")
	deleteCmd.Flags().BoolVar(&deleteDryRun, "dry-run", false, "print the plan without deleting anything")
	deleteCmd.Flags().BoolVar(&deleteJSON, "json", false, "render --dry-run output as JSON")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	rc, err := newRuntimeContext()
	if err != nil {
		return err
	}

	repo, gitDir, err := rc.preflight("delete")
	if err != nil {
		return err
	}

	d := gitdriver.New(rc.cwd)
	branch, err := resolveTargetBranch(rc, d, args)
	if err != nil {
		return err
	}
	ws, err := orchestrator.ResolveWorkspace(repo, branch)
	if err != nil {
		return err
	}

	current, err := d.CurrentBranch(rc.ctx)
	if err != nil {
		return fmt.Errorf("resolve current branch: %w", err)
	}

	blockReason, err := workspace.DeleteBlockReason(rc.ctx, current, ws.Branch, ws.WorktreePath, deleteForce)
	if err != nil {
		return err
	}

	scope := workspace.ScopeAll
	switch {
	case deleteWorkspaceOnly:
		scope = workspace.ScopeWorkspaceOnly
	case deleteWorktreeOnly:
		scope = workspace.ScopeWorktreeOnly
	}
	opts := workspace.DeleteOptions{Scope: scope, Force: deleteForce, DryRun: deleteDryRun}

	if deleteDryRun {
		plan := workspace.PlanDelete(blockReason, ws, opts)
		out, err := writePlan(plan, deleteJSON)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	}

	if blockReason != "" {
		return blockedError(blockReason)
	}

	if err := workspace.Delete(rc.ctx, rc.store, gitDir, repo.RepoRoot, ws, opts); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted workspace %s\n", ws.Branch)
	return nil
}
