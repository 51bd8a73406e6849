package workspace

import (
	"context"
	"fmt"

	"github.com/krscott/gitcuttle/internal/apperror"
	"github.com/krscott/gitcuttle/internal/gitdriver"
	"github.com/krscott/gitcuttle/internal/metadata"
)

// UpdateResult reports the head movement an update produced.
type UpdateResult struct {
	Branch      string
	UpstreamRef string
	BeforeOID   string
	AfterOID    string
}

// Changed reports whether the update actually moved the branch.
func (r UpdateResult) Changed() bool { return r.BeforeOID != r.AfterOID }

// workspaceUpstreamRef mirrors remotestatus.UpstreamRef: the
// workspace's own tracked remote wins over the repo default.
func workspaceUpstreamRef(ws metadata.Workspace, defaultRemote string) string {
	remote := ws.TrackedRemote
	if remote == "" {
		remote = defaultRemote
	}
	if remote == "" {
		return ""
	}
	return gitdriver.TrackingRef(remote, ws.Branch)
}

func branchHead(ctx context.Context, d *gitdriver.Driver, branch string) (string, error) {
	oid, err := d.RevParse(ctx, "refs/heads/"+branch)
	if err != nil {
		return "", fmt.Errorf("resolve branch head: %w", err)
	}
	if oid == "" {
		return "", apperror.New(apperror.CodeBranchMissing, "workspace branch does not exist locally").
			WithDetails(branch).
			WithGuidance("fetch or recreate the local branch before running update")
	}
	return oid, nil
}

// UpdateStandard implements spec §4.6 update (standard): fetch the
// workspace's upstream remote, then rebase the branch onto it.
func UpdateStandard(ctx context.Context, repoRoot string, ws metadata.Workspace, defaultRemote string) (UpdateResult, error) {
	if ws.Kind != metadata.KindStandard {
		return UpdateResult{}, apperror.New(apperror.CodeOctopusUpdateNotSupported, "octopus workspaces require the octopus update flow").
			WithGuidance("run update against an octopus workspace with its dedicated flow")
	}

	d := gitdriver.New(repoRoot)

	upstream := workspaceUpstreamRef(ws, defaultRemote)
	if upstream == "" {
		return UpdateResult{}, apperror.New(apperror.CodeNoUpstream, "workspace has no upstream remote branch configured").
			WithDetails(ws.Branch).
			WithGuidance("set tracked_remote metadata or configure a default remote for this repository")
	}

	remoteName, _, err := d.SplitTrackingRef(ctx, upstream)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("resolve upstream remote: %w", err)
	}
	if err := d.Fetch(ctx, remoteName); err != nil {
		return UpdateResult{}, apperror.New(apperror.CodeUpdateFetchFailed, "failed to fetch upstream").
			WithDetails(err.Error())
	}

	trackingOID, err := d.RevParse(ctx, "refs/remotes/"+upstream)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("resolve upstream tracking ref: %w", err)
	}
	if trackingOID == "" {
		return UpdateResult{}, apperror.New(apperror.CodeNoUpstream, "workspace upstream remote branch does not exist").
			WithDetails(upstream).
			WithGuidance("push the branch to the remote or configure a different upstream")
	}

	before, err := branchHead(ctx, d, ws.Branch)
	if err != nil {
		return UpdateResult{}, err
	}

	if err := d.Rebase(ctx, upstream, ws.Branch); err != nil {
		return UpdateResult{}, apperror.New(apperror.CodeUpdateRebaseFailed, "failed to rebase branch onto upstream").
			WithDetails(err.Error()).
			WithGuidance("resolve conflicts in the worktree, then rerun update --continue")
	}

	after, err := branchHead(ctx, d, ws.Branch)
	if err != nil {
		return UpdateResult{}, err
	}

	return UpdateResult{Branch: ws.Branch, UpstreamRef: upstream, BeforeOID: before, AfterOID: after}, nil
}

// resolveOctopusParent implements spec §4.6 update (octopus) step 2:
// prefer the remote-tracking ref for parent if the workspace's remote
// is configured and that tracking ref exists, else fall back to the
// local branch, else fail.
func resolveOctopusParent(ctx context.Context, d *gitdriver.Driver, remote, parent string) (string, error) {
	if remote != "" {
		trackingRef := gitdriver.TrackingRef(remote, parent)
		oid, err := d.RevParse(ctx, "refs/remotes/"+trackingRef)
		if err != nil {
			return "", fmt.Errorf("resolve remote tracking ref %s: %w", trackingRef, err)
		}
		if oid != "" {
			return trackingRef, nil
		}
	}

	localOID, err := d.RevParse(ctx, "refs/heads/"+parent)
	if err != nil {
		return "", fmt.Errorf("resolve local parent branch %s: %w", parent, err)
	}
	if localOID != "" {
		return parent, nil
	}

	return "", apperror.New(apperror.CodeOctopusParentMissing, "octopus parent ref could not be resolved").
		WithDetails(parent).
		WithGuidance("fetch the parent branch or configure the workspace's remote")
}

// UpdateOctopus implements spec §4.6 update (octopus): rebuild the
// merge from the workspace's declared parents, then replay any
// commits the branch accumulated since its last merge.
func UpdateOctopus(ctx context.Context, repoRoot string, ws metadata.Workspace, defaultRemote string) (UpdateResult, error) {
	if ws.Kind != metadata.KindOctopus {
		return UpdateResult{}, apperror.New(apperror.CodeInvalidWorkspaceKind, "octopus update requires an octopus workspace").
			WithDetails(ws.Branch)
	}

	d := gitdriver.New(repoRoot)

	remote := ws.TrackedRemote
	if remote == "" {
		remote = defaultRemote
	}
	if remote != "" {
		// Best-effort: a workspace with no reachable remote simply
		// updates from local parent branches.
		_ = d.Fetch(ctx, remote)
	}

	resolvedParents := make([]string, len(ws.OctopusParents))
	for i, parent := range ws.OctopusParents {
		resolved, err := resolveOctopusParent(ctx, d, remote, parent)
		if err != nil {
			return UpdateResult{}, err
		}
		resolvedParents[i] = resolved
	}

	before, err := branchHead(ctx, d, ws.Branch)
	if err != nil {
		return UpdateResult{}, err
	}

	replayCommits, err := d.RevListReverseNot(ctx, ws.Branch, resolvedParents...)
	if err != nil {
		return UpdateResult{}, apperror.New(apperror.CodeOctopusUpdateAnalysisFailed, "failed to analyze octopus branch history").
			WithDetails(err.Error())
	}
	if len(replayCommits) > 0 {
		isMerge, err := d.IsMergeCommit(ctx, replayCommits[0])
		if err != nil {
			return UpdateResult{}, apperror.New(apperror.CodeOctopusUpdateAnalysisFailed, "failed to classify octopus history")
		}
		if isMerge {
			replayCommits = replayCommits[1:]
		}
	}

	original, err := d.CurrentBranch(ctx)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("resolve current branch: %w", err)
	}

	restoreOriginal := func() error {
		if original != "" && original != ws.Branch {
			cur, err := d.CurrentBranch(ctx)
			if err == nil && cur != original {
				return d.Checkout(ctx, original)
			}
		}
		return nil
	}

	if err := d.Checkout(ctx, ws.Branch); err != nil {
		return UpdateResult{}, apperror.New(apperror.CodeBranchCheckoutFailed, "failed to checkout octopus workspace branch").
			WithDetails(err.Error())
	}

	if err := d.ResetHard(ctx, resolvedParents[0]); err != nil {
		_ = restoreOriginal()
		return UpdateResult{}, apperror.New(apperror.CodeAbsorbResetFailed, "failed to reset octopus branch to its first parent").
			WithDetails(err.Error())
	}

	mergeMessage := fmt.Sprintf("Rebuild octopus workspace %s", ws.Branch)
	if err := d.MergeNoFF(ctx, mergeMessage, resolvedParents[1:]...); err != nil {
		_ = restoreOriginal()
		return UpdateResult{}, apperror.New(apperror.CodeOctopusMergeFailed, "failed to rebuild octopus merge commit").
			WithDetails(err.Error()).
			WithGuidance("resolve conflicts in the worktree, then rerun update --continue")
	}

	if len(replayCommits) > 0 {
		if err := d.CherryPick(ctx, replayCommits...); err != nil {
			_ = restoreOriginal()
			return UpdateResult{}, apperror.New(apperror.CodeAbsorbCherryPickFailed, "failed to replay commits onto rebuilt octopus branch").
				WithDetails(err.Error()).
				WithGuidance("resolve conflicts in the worktree, then rerun update --continue")
		}
	}

	after, err := branchHead(ctx, d, ws.Branch)
	if err != nil {
		return UpdateResult{}, err
	}

	if err := restoreOriginal(); err != nil {
		return UpdateResult{}, fmt.Errorf("restore original branch: %w", err)
	}

	return UpdateResult{Branch: ws.Branch, UpstreamRef: remote, BeforeOID: before, AfterOID: after}, nil
}
