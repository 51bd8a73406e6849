package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krscott/gitcuttle/internal/gitdriver"
	"github.com/krscott/gitcuttle/internal/remotestatus"
	"github.com/krscott/gitcuttle/internal/workspace"
)

var (
	pruneForce  bool
	pruneDryRun bool
	pruneJSON   bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove workspaces whose local branch is gone or whose pull request merged",
	Args:  cobra.NoArgs,
	RunE:  runPrune,
}

func init() {
	pruneCmd.Flags().BoolVar(&pruneForce, "force", false, "prune even the current workspace or one with uncommitted changes")
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "print the plan without deleting anything")
	pruneCmd.Flags().BoolVar(&pruneJSON, "json", false, "render --dry-run output as JSON")
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	rc, err := newRuntimeContext()
	if err != nil {
		return err
	}

	repo, gitDir, err := rc.preflight("prune")
	if err != nil {
		return err
	}

	d := gitdriver.New(rc.cwd)
	current, err := d.CurrentBranch(rc.ctx)
	if err != nil {
		return fmt.Errorf("resolve current branch: %w", err)
	}

	prStatusByBranch := map[string]remotestatus.PRState{}
	if rc.cfg.PRProbeEnabled {
		rootDriver := gitdriver.New(repo.RepoRoot)
		for branch, ws := range repo.Workspaces {
			pr := remotestatus.PullRequestStatusForWorkspace(rc.ctx, rootDriver, repo.RepoRoot, ws, repo.DefaultRemote)
			if pr.Known() {
				prStatusByBranch[branch] = pr.State
			}
		}
	}

	decisions, err := workspace.BuildPruneDecisions(rc.ctx, repo.RepoRoot, repo, prStatusByBranch, current, pruneForce)
	if err != nil {
		return err
	}

	if pruneDryRun {
		plan := workspace.PlanPrune(decisions, pruneForce)
		out, err := writePlan(plan, pruneJSON)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	}

	if len(decisions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing to prune")
		return nil
	}

	if err := workspace.Prune(rc.ctx, rc.store, gitDir, repo.RepoRoot, decisions, pruneForce); err != nil {
		return err
	}

	pruned := 0
	for _, dec := range decisions {
		if dec.BlockReason == "" {
			pruned++
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %s (%s)\n", dec.Branch, dec.Reason)
		}
	}
	if pruned == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing to prune: all candidates are blocked; rerun with --force")
	}
	return nil
}
