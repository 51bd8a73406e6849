package workspace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/krscott/gitcuttle/internal/apperror"
	"github.com/krscott/gitcuttle/internal/gitdriver"
	"github.com/krscott/gitcuttle/internal/metadata"
	"github.com/krscott/gitcuttle/internal/pathderive"
)

// ResolveBaseRef implements spec §4.6 create (standard) step 2: an
// explicit baseRef must resolve; otherwise fall back to the
// configured default_base_ref, which must also resolve; otherwise
// fall back to the current branch, failing if HEAD is detached.
func ResolveBaseRef(ctx context.Context, d *gitdriver.Driver, baseRef, defaultBaseRef string) (string, error) {
	if baseRef == "" {
		baseRef = defaultBaseRef
	}

	if baseRef != "" {
		oid, err := d.RevParse(ctx, baseRef)
		if err != nil {
			return "", fmt.Errorf("resolve base ref: %w", err)
		}
		if oid == "" {
			return "", apperror.New(apperror.CodeInvalidBaseRef, "base ref does not exist").
				WithDetails(baseRef).
				WithGuidance("pass a valid local branch, tag, or commit")
		}
		return baseRef, nil
	}

	current, err := d.CurrentBranch(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve current branch: %w", err)
	}
	if current == "" {
		return "", apperror.New(apperror.CodeDetachedHead, "cannot infer base ref while HEAD is detached").
			WithGuidance("pass a base ref explicitly: gitcuttle new --name <branch> <base-ref>")
	}
	return current, nil
}

// CreateStandardParams describes a create (standard) request.
type CreateStandardParams struct {
	CWD     string
	Branch  string
	BaseRef string // "" falls back to DefaultBaseRef, then the current branch
	// DefaultBaseRef is config.Config.DefaultBaseRef, consulted only
	// when BaseRef is "".
	DefaultBaseRef string
}

// CreateStandard implements spec §4.6 create (standard). The caller
// must have already called metadata.Store.EnsureRepoTracked for cwd;
// Store.Read is used here only to read back the tracked repo record
// and to append the new workspace to it.
func CreateStandard(ctx context.Context, store *metadata.Store, params CreateStandardParams, now time.Time) (metadata.Workspace, error) {
	d := gitdriver.New(params.CWD)

	gitDir, err := d.RevParseGitDir(ctx)
	if err != nil {
		return metadata.Workspace{}, fmt.Errorf("resolve git dir: %w", err)
	}
	repoRoot, err := d.RevParseRepoRoot(ctx)
	if err != nil {
		return metadata.Workspace{}, fmt.Errorf("resolve repo root: %w", err)
	}

	m, err := store.Read()
	if err != nil {
		return metadata.Workspace{}, err
	}
	repo, ok := m.Repos[gitDir]
	if !ok {
		return metadata.Workspace{}, apperror.New(apperror.CodeRepoNotTracked, "repository metadata is missing").
			WithGuidance("rerun the command to retry auto-tracking")
	}

	rootDriver := gitdriver.New(repoRoot)

	exists, err := rootDriver.LocalBranchExists(ctx, params.Branch)
	if err != nil {
		return metadata.Workspace{}, fmt.Errorf("check branch existence: %w", err)
	}
	if exists {
		return metadata.Workspace{}, apperror.New(apperror.CodeBranchAlreadyExists, "target branch already exists").
			WithDetails(params.Branch).
			WithGuidance("choose a new branch name")
	}

	resolvedBase, err := ResolveBaseRef(ctx, rootDriver, params.BaseRef, params.DefaultBaseRef)
	if err != nil {
		return metadata.Workspace{}, err
	}

	if err := rootDriver.CreateBranch(ctx, params.Branch, resolvedBase); err != nil {
		return metadata.Workspace{}, apperror.New(apperror.CodeBranchCreateFailed, "failed to create branch").
			WithDetails(err.Error())
	}

	siblings := make([]string, 0, len(repo.Workspaces))
	for branch := range repo.Workspaces {
		siblings = append(siblings, branch)
	}
	destination := pathderive.Derive(gitDir, params.Branch, siblings)

	if err := rootDriver.WorktreeAdd(ctx, destination, params.Branch); err != nil {
		return metadata.Workspace{}, apperror.New(apperror.CodeWorktreeCreateFailed, "failed to create worktree").
			WithDetails(err.Error())
	}

	ts := metadata.NewTimestamp(now)
	ws := metadata.Workspace{
		Branch:        params.Branch,
		WorktreePath:  destination,
		TrackedRemote: repo.DefaultRemote,
		Kind:          metadata.KindStandard,
		BaseRef:       resolvedBase,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}

	if err := persistNewWorkspace(store, m, gitDir, repo, ws, ts); err != nil {
		return metadata.Workspace{}, err
	}
	return ws, nil
}

// CreateOctopusParams describes a create (octopus) request.
type CreateOctopusParams struct {
	CWD        string
	Branch     string
	ParentRefs []string
}

// CreateOctopus implements spec §4.6 create (octopus).
func CreateOctopus(ctx context.Context, store *metadata.Store, params CreateOctopusParams, now time.Time) (metadata.Workspace, error) {
	d := gitdriver.New(params.CWD)

	gitDir, err := d.RevParseGitDir(ctx)
	if err != nil {
		return metadata.Workspace{}, fmt.Errorf("resolve git dir: %w", err)
	}
	repoRoot, err := d.RevParseRepoRoot(ctx)
	if err != nil {
		return metadata.Workspace{}, fmt.Errorf("resolve repo root: %w", err)
	}

	rootDriver := gitdriver.New(repoRoot)

	normalizedParents, err := normalizeOctopusParentRefs(ctx, rootDriver, params.ParentRefs)
	if err != nil {
		return metadata.Workspace{}, err
	}

	m, err := store.Read()
	if err != nil {
		return metadata.Workspace{}, err
	}
	repo, ok := m.Repos[gitDir]
	if !ok {
		return metadata.Workspace{}, apperror.New(apperror.CodeRepoNotTracked, "repository metadata is missing").
			WithGuidance("rerun the command to retry auto-tracking")
	}

	exists, err := rootDriver.LocalBranchExists(ctx, params.Branch)
	if err != nil {
		return metadata.Workspace{}, fmt.Errorf("check branch existence: %w", err)
	}
	if exists {
		return metadata.Workspace{}, apperror.New(apperror.CodeBranchAlreadyExists, "target branch already exists").
			WithDetails(params.Branch).
			WithGuidance("choose a new branch name")
	}

	if err := rootDriver.CreateBranch(ctx, params.Branch, normalizedParents[0]); err != nil {
		return metadata.Workspace{}, apperror.New(apperror.CodeBranchCreateFailed, "failed to create branch").
			WithDetails(err.Error())
	}

	siblings := make([]string, 0, len(repo.Workspaces))
	for branch := range repo.Workspaces {
		siblings = append(siblings, branch)
	}
	destination := pathderive.Derive(gitDir, params.Branch, siblings)

	if err := rootDriver.WorktreeAdd(ctx, destination, params.Branch); err != nil {
		return metadata.Workspace{}, apperror.New(apperror.CodeWorktreeCreateFailed, "failed to create worktree").
			WithDetails(err.Error())
	}

	worktreeDriver := gitdriver.New(destination)
	mergeMessage := fmt.Sprintf("Create octopus workspace %s", params.Branch)
	if err := worktreeDriver.MergeNoFF(ctx, mergeMessage, normalizedParents[1:]...); err != nil {
		return metadata.Workspace{}, apperror.New(apperror.CodeOctopusMergeFailed, "failed to create octopus merge commit").
			WithDetails(err.Error()).
			WithGuidance("resolve parent branch conflicts before retrying octopus workspace creation")
	}

	ts := metadata.NewTimestamp(now)
	ws := metadata.Workspace{
		Branch:         params.Branch,
		WorktreePath:   destination,
		TrackedRemote:  repo.DefaultRemote,
		Kind:           metadata.KindOctopus,
		BaseRef:        normalizedParents[0],
		OctopusParents: normalizedParents,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}

	if err := persistNewWorkspace(store, m, gitDir, repo, ws, ts); err != nil {
		return metadata.Workspace{}, err
	}
	return ws, nil
}

func persistNewWorkspace(store *metadata.Store, m metadata.MetadataFile, gitDir string, repo metadata.Repo, ws metadata.Workspace, ts metadata.Timestamp) error {
	updated := make(map[string]metadata.Workspace, len(repo.Workspaces)+1)
	for k, v := range repo.Workspaces {
		updated[k] = v
	}
	updated[ws.Branch] = ws
	repo.Workspaces = updated
	repo.UpdatedAt = ts
	m.Repos[gitDir] = repo
	return store.Write(m)
}

// normalizeOctopusParentRefs implements spec §4.6 create (octopus)
// step 1: trim and drop empties, require at least two distinct
// entries, and require every entry to resolve.
func normalizeOctopusParentRefs(ctx context.Context, d *gitdriver.Driver, parentRefs []string) ([]string, error) {
	normalized := make([]string, 0, len(parentRefs))
	for _, ref := range parentRefs {
		trimmed := strings.TrimSpace(ref)
		if trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}

	if len(normalized) < 2 {
		return nil, apperror.New(apperror.CodeInvalidOctopusParents, "octopus workspace requires at least two parent refs").
			WithGuidance("pass at least two branch names, tags, or commit refs")
	}

	seen := map[string]bool{}
	for _, ref := range normalized {
		if seen[ref] {
			return nil, apperror.New(apperror.CodeInvalidOctopusParents, "octopus parent refs must be unique").
				WithDetails(strings.Join(normalized, ", "))
		}
		seen[ref] = true
	}

	var missing []string
	for _, ref := range normalized {
		oid, err := d.RevParse(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("resolve octopus parent %s: %w", ref, err)
		}
		if oid == "" {
			missing = append(missing, ref)
		}
	}
	if len(missing) > 0 {
		return nil, apperror.New(apperror.CodeInvalidBaseRef, "one or more octopus parent refs do not exist").
			WithDetails(strings.Join(missing, ", ")).
			WithGuidance("pass valid local branches, tags, or commit refs")
	}

	return normalized, nil
}
