package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krscott/gitcuttle/internal/gitdriver"
	"github.com/krscott/gitcuttle/internal/metadata"
	"github.com/krscott/gitcuttle/internal/orchestrator"
	"github.com/krscott/gitcuttle/internal/workspace"
)

var updateContinue bool

var updateCmd = &cobra.Command{
	Use:   "update [<branch>]",
	Short: "Rebuild a workspace against its upstream or octopus parents",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&updateContinue, "continue", false, "resume after resolving a stopped rebase, merge, or cherry-pick")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	rc, err := newRuntimeContext()
	if err != nil {
		return err
	}

	repo, _, err := rc.preflight("update")
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

	resumed, err := resumeInProgressOperation(rc, ws, updateContinue, "update")
	if err != nil {
		return err
	}
	if resumed {
		fmt.Fprintf(cmd.OutOrStdout(), "resumed %s\n", ws.Branch)
		return nil
	}

	var result workspace.UpdateResult
	if ws.Kind == metadata.KindOctopus {
		result, err = workspace.UpdateOctopus(rc.ctx, repo.RepoRoot, ws, repo.DefaultRemote)
	} else {
		result, err = workspace.UpdateStandard(rc.ctx, repo.RepoRoot, ws, repo.DefaultRemote)
	}
	if err != nil {
		return err
	}

	if result.Changed() {
		fmt.Fprintf(cmd.OutOrStdout(), "updated %s (%s -> %s)\n", ws.Branch, shortOID(result.BeforeOID), shortOID(result.AfterOID))
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is already up to date\n", ws.Branch)
	}
	return nil
}

func shortOID(oid string) string {
	if len(oid) > 10 {
		return oid[:10]
	}
	return oid
}
