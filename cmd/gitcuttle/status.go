package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krscott/gitcuttle/internal/apperror"
	"github.com/krscott/gitcuttle/internal/gitdriver"
	"github.com/krscott/gitcuttle/internal/listing"
	"github.com/krscott/gitcuttle/internal/metadata"
	"github.com/krscott/gitcuttle/internal/orchestrator"
	"github.com/krscott/gitcuttle/internal/remotestatus"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current workspace's remote status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	rc, err := newRuntimeContext()
	if err != nil {
		return err
	}

	repo, _, err := rc.preflight("status")
	if err != nil {
		return err
	}

	d := gitdriver.New(rc.cwd)
	current, err := d.CurrentBranch(rc.ctx)
	if err != nil {
		return fmt.Errorf("resolve current branch: %w", err)
	}
	if current == "" {
		return apperror.New(apperror.CodeDetachedHead, "HEAD is detached; no current workspace")
	}
	ws, err := orchestrator.ResolveWorkspace(repo, current)
	if err != nil {
		return err
	}

	aheadBehind := rc.statusCache().StatusesForRepo(rc.ctx, repo, remotestatus.AheadBehindForRepo)
	pullRequests := map[string]remotestatus.PullRequest{}
	if rc.cfg.PRProbeEnabled {
		rootDriver := gitdriver.New(repo.RepoRoot)
		pullRequests[ws.Branch] = remotestatus.PullRequestStatusForWorkspace(rc.ctx, rootDriver, repo.RepoRoot, ws, repo.DefaultRemote)
	}

	rows := listing.BuildRows(narrowToWorkspace(repo, ws), aheadBehind, pullRequests)
	fmt.Fprintln(cmd.OutOrStdout(), listing.Render(rows))
	return nil
}

// narrowToWorkspace returns a copy of repo whose Workspaces map
// contains only ws, so listing.BuildRows renders a single-row table
// for `status`.
func narrowToWorkspace(repo metadata.Repo, ws metadata.Workspace) metadata.Repo {
	repo.Workspaces = map[string]metadata.Workspace{ws.Branch: ws}
	return repo
}
