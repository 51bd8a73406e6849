package gitdriver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// RevParseGitDir returns the absolute, symlink-resolved path of the
// repository's .git directory for d.Dir. This is the "canonical git
// dir" the glossary defines as a repository's identity.
func (d *Driver) RevParseGitDir(ctx context.Context) (string, error) {
	out, err := d.run(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", ErrNotAGitRepo
	}
	resolved, err := filepath.EvalSymlinks(out)
	if err != nil {
		return out, nil
	}
	return resolved, nil
}

// RevParseRepoRoot returns the absolute, symlink-resolved top-level
// working tree path.
func (d *Driver) RevParseRepoRoot(ctx context.Context) (string, error) {
	out, err := d.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", ErrNotAGitRepo
	}
	resolved, err := filepath.EvalSymlinks(out)
	if err != nil {
		return out, nil
	}
	return resolved, nil
}

// InProgressOperation detects an in-flight git operation by probing
// for marker files in the canonical git dir, never by parsing command
// output (per the specification's design notes §9). gitDir must
// already be resolved to the repository's real gitdir, not a
// worktree's ".git" file.
//
// Returns the name of the first marker found, or "" if none is
// present.
func InProgressOperation(gitDir string) string {
	markers := []string{"MERGE_HEAD", "CHERRY_PICK_HEAD", "REVERT_HEAD", "REBASE_HEAD"}
	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(gitDir, m)); err == nil {
			return m
		}
	}
	dirs := []string{"rebase-apply", "rebase-merge"}
	for _, dname := range dirs {
		if info, err := os.Stat(filepath.Join(gitDir, dname)); err == nil && info.IsDir() {
			return dname + "/"
		}
	}
	return ""
}

// ResolveWorktreeGitDir resolves a worktree's pseudo ".git" file (a
// plain text file containing "gitdir: <path>") to the worktree's real
// per-worktree gitdir. If path/.git is already a directory, it is
// returned unchanged.
func ResolveWorktreeGitDir(worktreePath string) (string, error) {
	gitPath := filepath.Join(worktreePath, ".git")
	info, err := os.Stat(gitPath)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return gitPath, nil
	}

	content, err := os.ReadFile(gitPath)
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(string(content))
	if !strings.HasPrefix(line, "gitdir: ") {
		return gitPath, nil
	}
	gitDir := strings.TrimPrefix(line, "gitdir: ")
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(worktreePath, gitDir)
	}
	return filepath.Clean(gitDir), nil
}

// HasUncommittedChanges reports whether the working tree has staged or
// unstaged modifications relative to HEAD, used by delete/prune to
// detect a "workspace-dirty" precondition.
func (d *Driver) HasUncommittedChanges(ctx context.Context) (bool, error) {
	out, err := d.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}
