package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/krscott/gitcuttle/internal/gitdriver"
	"github.com/krscott/gitcuttle/internal/orchestrator"
	"github.com/krscott/gitcuttle/internal/workspace"
)

var (
	absorbContinue    bool
	absorbTarget      string
	absorbInteractive bool
)

var absorbCmd = &cobra.Command{
	Use:   "absorb [<branch>]",
	Short: "Move commits made on an octopus workspace onto their originating parent branches",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAbsorb,
}

func init() {
	absorbCmd.Flags().BoolVar(&absorbContinue, "continue", false, "resume after resolving a stopped cherry-pick")
	absorbCmd.Flags().StringVar(&absorbTarget, "target", "", "parent branch every post-merge commit should absorb into")
	absorbCmd.Flags().BoolVar(&absorbInteractive, "interactive", false, "prompt for a target parent when the heuristic is uncertain")
	rootCmd.AddCommand(absorbCmd)
}

func runAbsorb(cmd *cobra.Command, args []string) error {
	rc, err := newRuntimeContext()
	if err != nil {
		return err
	}

	repo, _, err := rc.preflight("absorb")
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

	resumed, err := resumeInProgressOperation(rc, ws, absorbContinue, "absorb")
	if err != nil {
		return err
	}
	if resumed {
		fmt.Fprintf(cmd.OutOrStdout(), "resumed %s\n", ws.Branch)
		return nil
	}

	opts := workspace.AbsorbOptions{
		ExplicitTarget: absorbTarget,
		Interactive:    absorbInteractive,
	}
	if absorbInteractive {
		opts.Choose = chooseAbsorbTarget
	}

	result, err := workspace.Absorb(rc.ctx, repo.RepoRoot, ws, opts)
	if err != nil {
		return err
	}

	if len(result.AbsorbedCommits) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s has no commits to absorb\n", ws.Branch)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "absorbed %d commit(s) from %s\n", len(result.AbsorbedCommits), ws.Branch)
	for _, c := range result.AbsorbedCommits {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s -> %s\n", shortOID(c.Commit), c.TargetParent)
	}
	return nil
}

// chooseAbsorbTarget prompts the operator to pick a parent branch for
// an absorbed commit when the heuristic scorer is uncertain.
func chooseAbsorbTarget(commit string, parents []string) (string, error) {
	options := make([]huh.Option[string], len(parents))
	for i, p := range parents {
		options[i] = huh.NewOption(p, p)
	}

	var choice string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(fmt.Sprintf("absorb %s into which parent?", shortOID(commit))).
			Options(options...).
			Value(&choice),
	))
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("prompt for absorb target: %w", err)
	}
	return choice, nil
}
