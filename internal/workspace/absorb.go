package workspace

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/krscott/gitcuttle/internal/apperror"
	"github.com/krscott/gitcuttle/internal/gitdriver"
	"github.com/krscott/gitcuttle/internal/metadata"
)

// absorbConfidenceThreshold is the minimum (matches / total changed
// files) ratio the heuristic target picker requires before it will
// commit to a parent without asking (spec §4.6 absorb step 4).
const absorbConfidenceThreshold = 0.6

// CommitTargetChooser resolves an absorb commit to one of parents,
// used for interactive selection (§4.6 absorb step 4, "Interactive").
type CommitTargetChooser func(commit string, parents []string) (string, error)

// AbsorbedCommit is one commit absorb moved, and which parent it
// landed on.
type AbsorbedCommit struct {
	Commit       string
	TargetParent string
}

// AbsorbResult reports what absorb did to an octopus workspace.
type AbsorbResult struct {
	Branch          string
	BeforeOID       string
	AfterOID        string
	AbsorbedCommits []AbsorbedCommit
}

// Changed reports whether absorb moved the branch head.
func (r AbsorbResult) Changed() bool { return r.BeforeOID != r.AfterOID }

// AbsorbOptions configures how absorb picks a target parent for each
// post-merge commit. At most one of ExplicitTarget or
// (Interactive, Choose) applies; ExplicitTarget wins if set.
type AbsorbOptions struct {
	ExplicitTarget string
	Interactive    bool
	Choose         CommitTargetChooser
}

// Absorb implements spec §4.6 absorb (octopus): move every commit
// added to branch since its octopus merge onto the appropriate parent
// branch, then reset branch to just after the merge.
func Absorb(ctx context.Context, repoRoot string, ws metadata.Workspace, opts AbsorbOptions) (AbsorbResult, error) {
	if ws.Kind != metadata.KindOctopus {
		return AbsorbResult{}, apperror.New(apperror.CodeInvalidWorkspaceKind, "absorb requires octopus workspace metadata").
			WithDetails(ws.Branch)
	}
	if len(ws.OctopusParents) < 2 {
		return AbsorbResult{}, apperror.New(apperror.CodeInvalidOctopusParents, "octopus workspace must track at least two parent refs").
			WithDetails(ws.Branch)
	}
	if opts.ExplicitTarget != "" && !contains(ws.OctopusParents, opts.ExplicitTarget) {
		return AbsorbResult{}, apperror.New(apperror.CodeInvalidAbsorbTarget, "target parent is not part of the octopus workspace").
			WithDetails(opts.ExplicitTarget).
			WithGuidance("choose one of the configured octopus parent branches")
	}
	if opts.Interactive && opts.Choose == nil {
		return AbsorbResult{}, apperror.New(apperror.CodeInteractiveSelectionUnavail, "interactive absorb requires a commit target selector").
			WithGuidance("pass a commit selection callback or run absorb with an explicit target parent")
	}

	d := gitdriver.New(repoRoot)

	before, err := branchHead(ctx, d, ws.Branch)
	if err != nil {
		return AbsorbResult{}, err
	}

	unique, err := d.RevListReverseNot(ctx, ws.Branch, ws.OctopusParents...)
	if err != nil {
		return AbsorbResult{}, apperror.New(apperror.CodeOctopusUpdateAnalysisFailed, "failed to analyze octopus branch history").
			WithDetails(err.Error())
	}

	mergeCommit, postMerge, err := splitOctopusHistory(ctx, d, unique)
	if err != nil {
		return AbsorbResult{}, err
	}
	if len(postMerge) == 0 {
		return AbsorbResult{Branch: ws.Branch, BeforeOID: before, AfterOID: before}, nil
	}

	planned, err := planAbsorbTargets(ctx, d, postMerge, ws.OctopusParents, opts)
	if err != nil {
		return AbsorbResult{}, err
	}

	original, err := d.CurrentBranch(ctx)
	if err != nil {
		return AbsorbResult{}, fmt.Errorf("resolve current branch: %w", err)
	}
	restoreOriginal := func() {
		if original == "" {
			return
		}
		cur, err := d.CurrentBranch(ctx)
		if err == nil && cur != original {
			_ = d.Checkout(ctx, original)
		}
	}

	for _, item := range planned {
		if err := d.Checkout(ctx, item.TargetParent); err != nil {
			restoreOriginal()
			return AbsorbResult{}, apperror.New(apperror.CodeBranchCheckoutFailed, "failed to checkout absorb target parent").
				WithDetails(err.Error())
		}
		if err := d.CherryPick(ctx, item.Commit); err != nil {
			restoreOriginal()
			return AbsorbResult{}, apperror.New(apperror.CodeAbsorbCherryPickFailed, "failed to cherry-pick commit onto target parent").
				WithDetails(err.Error()).
				WithGuidance("resolve conflicts in the worktree, then rerun absorb --continue")
		}
	}

	if mergeCommit != "" {
		if err := d.Checkout(ctx, ws.Branch); err != nil {
			restoreOriginal()
			return AbsorbResult{}, apperror.New(apperror.CodeBranchCheckoutFailed, "failed to checkout octopus workspace branch").
				WithDetails(err.Error())
		}
		if err := d.ResetHard(ctx, mergeCommit); err != nil {
			restoreOriginal()
			return AbsorbResult{}, apperror.New(apperror.CodeAbsorbResetFailed, "failed to reset octopus branch after absorb").
				WithDetails(err.Error())
		}
	}

	restoreOriginal()

	after, err := branchHead(ctx, d, ws.Branch)
	if err != nil {
		return AbsorbResult{}, err
	}

	return AbsorbResult{Branch: ws.Branch, BeforeOID: before, AfterOID: after, AbsorbedCommits: planned}, nil
}

func planAbsorbTargets(ctx context.Context, d *gitdriver.Driver, commits []string, parents []string, opts AbsorbOptions) ([]AbsorbedCommit, error) {
	planned := make([]AbsorbedCommit, 0, len(commits))
	for _, commit := range commits {
		var target string
		var err error
		switch {
		case opts.ExplicitTarget != "":
			target = opts.ExplicitTarget
		case opts.Interactive:
			target, err = opts.Choose(commit, parents)
		default:
			target, err = heuristicTargetParent(ctx, d, commit, parents)
		}
		if err != nil {
			return nil, err
		}
		if !contains(parents, target) {
			return nil, apperror.New(apperror.CodeInvalidAbsorbTarget, "selected absorb target is not an octopus parent").
				WithDetails(fmt.Sprintf("%s for commit %s", target, commit))
		}
		planned = append(planned, AbsorbedCommit{Commit: commit, TargetParent: target})
	}
	return planned, nil
}

// heuristicTargetParent implements spec §4.6 absorb step 4's
// heuristic: score each parent by how many of the commit's changed
// files exist at that parent's tip, and commit to the top scorer only
// if it strictly beats every other parent and its confidence (matches
// / total) is at least absorbConfidenceThreshold.
func heuristicTargetParent(ctx context.Context, d *gitdriver.Driver, commit string, parents []string) (string, error) {
	changedFiles, err := d.ChangedFiles(ctx, commit)
	if err != nil {
		return "", apperror.New(apperror.CodeAbsorbAnalysisFailed, "failed to inspect changed files for absorb").
			WithDetails(err.Error())
	}
	if len(changedFiles) == 0 {
		return "", apperror.New(apperror.CodeAbsorbTargetUncertain, "cannot infer absorb target for empty or metadata-only commit").
			WithDetails(commit).
			WithGuidance("rerun with an explicit parent branch (--target) or interactive mode (--interactive)")
	}

	scores := make(map[string]int, len(parents))
	for _, parent := range parents {
		matches := 0
		for _, path := range changedFiles {
			exists, err := d.PathExistsAtRef(ctx, parent, path)
			if err != nil {
				return "", apperror.New(apperror.CodeAbsorbAnalysisFailed, "failed to inspect parent tree for absorb").
					WithDetails(err.Error())
			}
			if exists {
				matches++
			}
		}
		scores[parent] = matches
	}

	bestParent, bestScore := "", -1
	tied := false
	for _, parent := range parents {
		score := scores[parent]
		switch {
		case score > bestScore:
			bestParent, bestScore = parent, score
			tied = false
		case score == bestScore:
			tied = true
		}
	}

	confidence := float64(bestScore) / float64(len(changedFiles))
	if bestScore == 0 || tied || confidence < absorbConfidenceThreshold {
		parts := make([]string, 0, len(parents))
		sortedParents := append([]string(nil), parents...)
		sort.Strings(sortedParents)
		for _, parent := range sortedParents {
			parts = append(parts, fmt.Sprintf("%s=%d", parent, scores[parent]))
		}
		return "", apperror.New(apperror.CodeAbsorbTargetUncertain, "could not infer a high-confidence absorb target").
			WithDetails(fmt.Sprintf("%s: %s", commit, strings.Join(parts, ", "))).
			WithGuidance("rerun with an explicit parent branch (--target) or interactive mode (--interactive)")
	}

	return bestParent, nil
}

func splitOctopusHistory(ctx context.Context, d *gitdriver.Driver, unique []string) (mergeCommit string, postMerge []string, err error) {
	if len(unique) == 0 {
		return "", nil, nil
	}
	isMerge, err := d.IsMergeCommit(ctx, unique[0])
	if err != nil {
		return "", nil, apperror.New(apperror.CodeAbsorbAnalysisFailed, "failed to classify octopus history").
			WithDetails(err.Error())
	}
	if isMerge {
		return unique[0], unique[1:], nil
	}
	return "", unique, nil
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
