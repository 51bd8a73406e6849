package gitdriver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WorktreeAdd creates a new working directory at path checked out to
// ref, creating parent directories first.
func (d *Driver) WorktreeAdd(ctx context.Context, path, ref string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create worktree parent dir: %w", err)
	}
	_, err := d.run(ctx, "worktree", "add", path, ref)
	return err
}

// WorktreeRemove removes the worktree at path. If force is set, it
// removes even when the worktree has local modifications, falling back
// to a plain directory removal plus `worktree prune` if git itself
// refuses (e.g. the directory was already deleted out from under it).
func (d *Driver) WorktreeRemove(ctx context.Context, path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	if _, err := d.run(ctx, args...); err != nil {
		if rmErr := os.RemoveAll(path); rmErr != nil {
			return err
		}
		_, _ = d.run(ctx, "worktree", "prune")
		return nil
	}
	return nil
}

// WorktreeList enumerates registered worktrees and their checked-out
// branches, parsed from `git worktree list --porcelain`.
type WorktreeEntry struct {
	Path   string
	Branch string // short name, "" if detached
	OID    string
}

func (d *Driver) WorktreeList(ctx context.Context) ([]WorktreeEntry, error) {
	out, err := d.run(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}

	var entries []WorktreeEntry
	var cur WorktreeEntry
	flush := func() {
		if cur.Path != "" {
			entries = append(entries, cur)
		}
		cur = WorktreeEntry{}
	}
	for _, line := range strings.Split(out, "\n") {
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "worktree "):
			cur.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "HEAD "):
			cur.OID = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			cur.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		}
	}
	flush()
	return entries, nil
}

// Checkout switches the current worktree's HEAD to ref.
func (d *Driver) Checkout(ctx context.Context, ref string) error {
	_, err := d.run(ctx, "checkout", ref)
	return err
}

// ResetHard resets HEAD and the working tree to ref.
func (d *Driver) ResetHard(ctx context.Context, ref string) error {
	_, err := d.run(ctx, "reset", "--hard", ref)
	return err
}

// MergeNoFF creates a non-fast-forward merge commit joining refs into
// the current branch. Returns ErrMergeConflict (leaving the worktree
// in whatever conflicted state git left it in, per §4.6's "clean to
// abort" contract — the caller is responsible for `merge --abort` if
// it wants a clean worktree back) on conflict.
func (d *Driver) MergeNoFF(ctx context.Context, message string, refs ...string) error {
	args := append([]string{"merge", "--no-ff", "-m", message}, refs...)
	_, err := d.run(ctx, args...)
	if err != nil {
		return ErrMergeConflict
	}
	return nil
}

// MergeAbort aborts an in-progress merge, restoring the worktree to
// its pre-merge state.
func (d *Driver) MergeAbort(ctx context.Context) error {
	_, err := d.run(ctx, "merge", "--abort")
	return err
}

// CherryPick replays commits onto the current branch in order.
func (d *Driver) CherryPick(ctx context.Context, commits ...string) error {
	args := append([]string{"cherry-pick"}, commits...)
	_, err := d.run(ctx, args...)
	return err
}

// CherryPickContinue resumes an in-progress cherry-pick after the
// caller has resolved conflicts.
func (d *Driver) CherryPickContinue(ctx context.Context) error {
	_, err := d.run(ctx, "cherry-pick", "--continue")
	return err
}

// CherryPickAbort aborts an in-progress cherry-pick.
func (d *Driver) CherryPickAbort(ctx context.Context) error {
	_, err := d.run(ctx, "cherry-pick", "--abort")
	return err
}

// Rebase checks out branch and replays its commits that are not in
// upstream on top of upstream.
func (d *Driver) Rebase(ctx context.Context, upstream, branch string) error {
	_, err := d.run(ctx, "rebase", upstream, branch)
	return err
}

// RebaseContinue resumes an in-progress rebase.
func (d *Driver) RebaseContinue(ctx context.Context) error {
	_, err := d.run(ctx, "rebase", "--continue")
	return err
}

// MergeContinue resumes an in-progress merge where conflicts have
// already been staged as resolved.
func (d *Driver) MergeContinue(ctx context.Context) error {
	_, err := d.run(ctx, "commit", "--no-edit")
	return err
}
