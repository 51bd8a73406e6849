package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krscott/gitcuttle/internal/workspace"
)

var (
	newName   string
	printPath bool
)

var newCmd = &cobra.Command{
	Use:   "new <branch>...",
	Short: "Create a tracked workspace, or an octopus workspace from multiple branches",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCreate,
}

var worktreeCmd = &cobra.Command{
	Use:   "worktree <branch>...",
	Short: "Create a tracked workspace and print its worktree path",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCreate,
}

func init() {
	newCmd.Flags().StringVar(&newName, "name", "", "workspace branch name (required for octopus; inferred for a single branch)")
	rootCmd.AddCommand(newCmd)

	worktreeCmd.Flags().StringVar(&newName, "name", "", "workspace branch name (required for octopus; inferred for a single branch)")
	worktreeCmd.Flags().BoolVar(&printPath, "print-path", false, "print only the worktree path to stdout")
	rootCmd.AddCommand(worktreeCmd)
}

// runCreate backs both `new` and `worktree`. With one branch and no
// --name, that branch is the new standard workspace's name, forked from
// the configured default base ref or else the current branch; with
// --name, the one branch is the base ref of a standard workspace named
// --name. Two or more branches create an octopus workspace over all of
// them, which requires --name.
func runCreate(cmd *cobra.Command, args []string) error {
	rc, err := newRuntimeContext()
	if err != nil {
		return err
	}

	if _, _, err := rc.preflight("new"); err != nil {
		return err
	}

	if len(args) == 1 && newName == "" {
		created, err := workspace.CreateStandard(rc.ctx, rc.store, workspace.CreateStandardParams{
			CWD:            rc.cwd,
			Branch:         args[0],
			BaseRef:        "",
			DefaultBaseRef: rc.cfg.DefaultBaseRef,
		}, commandNow())
		if err != nil {
			return err
		}
		return reportCreated(cmd, created.Branch, created.WorktreePath)
	}

	if len(args) == 1 {
		created, err := workspace.CreateStandard(rc.ctx, rc.store, workspace.CreateStandardParams{
			CWD:            rc.cwd,
			Branch:         newName,
			BaseRef:        args[0],
			DefaultBaseRef: rc.cfg.DefaultBaseRef,
		}, commandNow())
		if err != nil {
			return err
		}
		return reportCreated(cmd, created.Branch, created.WorktreePath)
	}

	if newName == "" {
		return badArgsf("--name is required when creating an octopus workspace from multiple branches")
	}
	created, err := workspace.CreateOctopus(rc.ctx, rc.store, workspace.CreateOctopusParams{
		CWD:        rc.cwd,
		Branch:     newName,
		ParentRefs: args,
	}, commandNow())
	if err != nil {
		return err
	}
	return reportCreated(cmd, created.Branch, created.WorktreePath)
}

func reportCreated(cmd *cobra.Command, branch, path string) error {
	if printPath {
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created workspace %s at %s\n", branch, path)
	return nil
}
