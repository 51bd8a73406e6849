// Package orchestrator implements the command-independent preflight
// gating described in spec §4.7: every command must run inside a Git
// repository with no Git operation already in progress, and only the
// mutating subset of commands auto-tracks the repository before
// dispatch.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/krscott/gitcuttle/internal/apperror"
	"github.com/krscott/gitcuttle/internal/gitdriver"
	"github.com/krscott/gitcuttle/internal/metadata"
)

// mutatingCommands is the set of command names that call
// ensureRepoTracked before dispatching, per spec §4.7.
var mutatingCommands = map[string]bool{
	"new":    true,
	"delete": true,
	"prune":  true,
	"update": true,
	"absorb": true,
}

// IsMutating reports whether command belongs to the set that must
// auto-track its repository before running.
func IsMutating(command string) bool { return mutatingCommands[command] }

// Preflight implements spec §4.7 steps (a) and (b): cwd must be inside
// a Git repository, and no Git operation may already be mid-flight for
// it. Returns the repository's canonical git dir on success.
func Preflight(ctx context.Context, cwd string) (gitDir string, err error) {
	d := gitdriver.New(cwd)

	gitDir, err = d.RevParseGitDir(ctx)
	if err != nil {
		return "", apperror.New(apperror.CodeNotInGitRepo, "gitcuttle must be run from within a git repository").
			WithGuidance("run gitcuttle from inside a git working tree or worktree")
	}

	if marker := gitdriver.InProgressOperation(gitDir); marker != "" {
		return "", apperror.New(apperror.CodeGitOperationInProgress, "a git operation is already in progress for this repository").
			WithDetails(marker).
			WithGuidance("finish or abort the in-progress operation, then rerun gitcuttle")
	}

	return gitDir, nil
}

// EnsureTrackedForMutating calls metadata.Store.EnsureRepoTracked for
// command if and only if command is one of the mutating commands;
// read-only commands return the already-tracked repo (or a
// repo-not-tracked error) without mutating metadata, per spec §4.7's
// "read-only commands must not mutate metadata."
func EnsureTrackedForMutating(ctx context.Context, store *metadata.Store, command, cwd, gitDir string, now time.Time) (metadata.Repo, error) {
	if IsMutating(command) {
		repo, err := store.EnsureRepoTracked(ctx, cwd, now)
		if err != nil {
			return metadata.Repo{}, fmt.Errorf("track repository: %w", err)
		}
		return repo, nil
	}

	m, err := store.Read()
	if err != nil {
		return metadata.Repo{}, err
	}
	repo, ok := m.Repos[gitDir]
	if !ok {
		return metadata.Repo{}, apperror.New(apperror.CodeRepoNotTracked, "repository metadata is missing").
			WithGuidance("run a tracked command (new, delete, prune, update, or absorb) first")
	}
	return repo, nil
}

// ResolveWorkspace looks up branch in repo, returning
// workspace-not-tracked if absent.
func ResolveWorkspace(repo metadata.Repo, branch string) (metadata.Workspace, error) {
	ws, ok := repo.Workspaces[branch]
	if !ok {
		return metadata.Workspace{}, apperror.New(apperror.CodeWorkspaceNotTracked, "workspace is not tracked").
			WithDetails(branch).
			WithGuidance("run `gitcuttle new` or `gitcuttle worktree` to track it first")
	}
	return ws, nil
}
