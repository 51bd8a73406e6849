package workspace

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/krscott/gitcuttle/internal/dryrun"
	"github.com/krscott/gitcuttle/internal/gitdriver"
	"github.com/krscott/gitcuttle/internal/metadata"
	"github.com/krscott/gitcuttle/internal/remotestatus"
	"github.com/krscott/gitcuttle/internal/txn"
)

// PruneReason is why a workspace is eligible for pruning.
type PruneReason string

const (
	ReasonMissingLocalBranch PruneReason = "missing-local-branch"
	ReasonMergedPR           PruneReason = "merged-pr"
)

// PruneCandidate is one workspace evaluated for pruning.
type PruneCandidate struct {
	Branch            string
	LocalBranchExists bool
	PRState           remotestatus.PRState // "" if not probed
}

// pruneReason implements spec §4.6 prune's reason selection: missing
// branch wins over a merged PR; anything else is not eligible.
func pruneReason(candidate PruneCandidate) (PruneReason, bool) {
	if !candidate.LocalBranchExists {
		return ReasonMissingLocalBranch, true
	}
	if candidate.PRState == remotestatus.PRMerged {
		return ReasonMergedPR, true
	}
	return "", false
}

// PruneDecision is one workspace's resolved prune action.
type PruneDecision struct {
	Branch            string
	Reason            PruneReason
	BlockReason       BlockReason // "" means not blocked
	LocalBranchExists bool
	WorktreePath      string
}

// pruneBlockReason implements the same block logic as delete: current
// workspace or a dirty worktree, both overridable with --force.
func pruneBlockReason(ctx context.Context, current, target, worktreePath string, force bool) (BlockReason, error) {
	return DeleteBlockReason(ctx, current, target, worktreePath, force)
}

// BuildPruneDecisions evaluates every workspace in repo and returns,
// sorted by branch name, the ones eligible for pruning (reason != "").
// prStatusByBranch is the caller's already-probed PR state for each
// branch (empty PRState means "not probed" / not a GitHub remote).
func BuildPruneDecisions(ctx context.Context, repoRoot string, repo metadata.Repo, prStatusByBranch map[string]remotestatus.PRState, current string, force bool) ([]PruneDecision, error) {
	branches := make([]string, 0, len(repo.Workspaces))
	for branch := range repo.Workspaces {
		branches = append(branches, branch)
	}
	sort.Strings(branches)

	d := gitdriver.New(repoRoot)
	var decisions []PruneDecision
	for _, branch := range branches {
		ws := repo.Workspaces[branch]

		exists, err := d.LocalBranchExists(ctx, branch)
		if err != nil {
			return nil, fmt.Errorf("check local branch %s: %w", branch, err)
		}
		candidate := PruneCandidate{Branch: branch, LocalBranchExists: exists, PRState: prStatusByBranch[branch]}

		reason, eligible := pruneReason(candidate)
		if !eligible {
			continue
		}

		blockReason, err := pruneBlockReason(ctx, current, branch, ws.WorktreePath, force)
		if err != nil {
			return nil, err
		}

		decisions = append(decisions, PruneDecision{
			Branch:            branch,
			Reason:            reason,
			BlockReason:       blockReason,
			LocalBranchExists: exists,
			WorktreePath:      ws.WorktreePath,
		})
	}
	return decisions, nil
}

// PlanPrune builds the dry-run plan a live Prune call would execute.
func PlanPrune(decisions []PruneDecision, force bool) dryrun.Plan {
	plan := dryrun.Plan{Command: "prune"}
	for _, decision := range decisions {
		if decision.BlockReason != "" {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("skipping %s: blocked by %s; rerun with --force", decision.Branch, decision.BlockReason))
			continue
		}

		plan.Actions = append(plan.Actions, dryrun.Action{Op: "delete-worktree", Target: decision.WorktreePath, Details: string(decision.Reason)})
		if decision.LocalBranchExists {
			details := string(decision.Reason)
			if force {
				details = "forced"
			}
			plan.Actions = append(plan.Actions, dryrun.Action{Op: "delete-branch", Target: decision.Branch, Details: details})
		}
		plan.Actions = append(plan.Actions, dryrun.Action{Op: "untrack-workspace", Target: decision.Branch, Details: string(decision.Reason)})
	}
	return plan
}

// Prune implements spec §4.6 prune's live mode: executes worktree
// removal, branch deletion, and metadata untracking for every
// unblocked decision inside a single transaction, then persists the
// reduced workspaces map.
func Prune(ctx context.Context, store *metadata.Store, gitDir, repoRoot string, decisions []PruneDecision, force bool) error {
	unblocked := make([]PruneDecision, 0, len(decisions))
	for _, decision := range decisions {
		if decision.BlockReason == "" {
			unblocked = append(unblocked, decision)
		}
	}
	if len(unblocked) == 0 {
		return nil
	}

	d := gitdriver.New(repoRoot)
	t := txn.New()
	backupOIDs := make(map[string]string, len(unblocked))

	for _, decision := range unblocked {
		decision := decision
		t.AddStep(txn.Step{
			Name: "remove-worktree:" + decision.Branch,
			Apply: func() error {
				if _, err := os.Stat(decision.WorktreePath); os.IsNotExist(err) {
					return nil
				}
				return d.WorktreeRemove(ctx, decision.WorktreePath, force)
			},
			Rollback: func() error { return nil },
			RecoveryCommands: []string{
				fmt.Sprintf("git -C %s worktree add %s %s", repoRoot, decision.WorktreePath, decision.Branch),
			},
		})

		if decision.LocalBranchExists {
			t.AddStep(txn.Step{
				Name: "delete-branch:" + decision.Branch,
				Apply: func() error {
					oid, err := snapshotBranch(ctx, d, t.ID, decision.Branch)
					if err != nil {
						return err
					}
					backupOIDs[decision.Branch] = oid
					return d.DeleteBranch(ctx, decision.Branch, force)
				},
				Rollback: func() error {
					return restoreBranch(ctx, d, decision.Branch, backupOIDs[decision.Branch])
				},
				RecoveryCommands: []string{
					fmt.Sprintf("git -C %s branch %s %s", repoRoot, decision.Branch, backupRefName(t.ID, decision.Branch)),
				},
			})
		}
	}

	pruned := make(map[string]bool, len(unblocked))
	for _, decision := range unblocked {
		pruned[decision.Branch] = true
	}

	var priorWorkspaces map[string]metadata.Workspace
	t.AddStep(txn.Step{
		Name: "untrack-pruned-workspaces",
		Apply: func() error {
			m, err := store.Read()
			if err != nil {
				return err
			}
			repo, ok := m.Repos[gitDir]
			if !ok {
				return nil
			}
			priorWorkspaces = repo.Workspaces
			updated := make(map[string]metadata.Workspace, len(repo.Workspaces))
			for k, v := range repo.Workspaces {
				if !pruned[k] {
					updated[k] = v
				}
			}
			repo.Workspaces = updated
			m.Repos[gitDir] = repo
			return store.Write(m)
		},
		Rollback: func() error {
			if priorWorkspaces == nil {
				return nil
			}
			m, err := store.Read()
			if err != nil {
				return err
			}
			repo, ok := m.Repos[gitDir]
			if !ok {
				return nil
			}
			repo.Workspaces = priorWorkspaces
			m.Repos[gitDir] = repo
			return store.Write(m)
		},
	})

	if err := t.Run(); err != nil {
		return err
	}
	return purgeBackups(ctx, d, t.ID)
}
