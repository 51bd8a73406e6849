package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krscott/gitcuttle/internal/listing"
	"github.com/krscott/gitcuttle/internal/remotestatus"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked workspaces and their remote status",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	rc, err := newRuntimeContext()
	if err != nil {
		return err
	}

	repo, _, err := rc.preflight("list")
	if err != nil {
		return err
	}

	aheadBehind := rc.statusCache().StatusesForRepo(rc.ctx, repo, remotestatus.AheadBehindForRepo)
	rows := listing.BuildRows(repo, aheadBehind, nil)
	fmt.Fprintln(cmd.OutOrStdout(), listing.Render(rows))
	return nil
}
