package orchestrator

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/krscott/gitcuttle/internal/apperror"
	"github.com/krscott/gitcuttle/internal/metadata"
)

func setupTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init", "-b", "main")
	run("config", "user.name", "Test User")
	run("config", "user.email", "test@example.com")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
	run("add", ".")
	run("commit", "-m", "initial")
	return dir
}

func TestPreflightRejectsNonGitDir(t *testing.T) {
	dir := t.TempDir()
	_, err := Preflight(context.Background(), dir)
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != apperror.CodeNotInGitRepo {
		t.Fatalf("Preflight() = %v, want not-in-git-repo AppError", err)
	}
}

func TestPreflightRejectsInProgressOperation(t *testing.T) {
	repoRoot := setupTestRepo(t)
	gitDir := filepath.Join(repoRoot, ".git")
	if err := os.WriteFile(filepath.Join(gitDir, "MERGE_HEAD"), []byte("deadbeef\n"), 0o644); err != nil {
		t.Fatalf("write MERGE_HEAD: %v", err)
	}

	_, err := Preflight(context.Background(), repoRoot)
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != apperror.CodeGitOperationInProgress {
		t.Fatalf("Preflight() = %v, want git-operation-in-progress AppError", err)
	}
}

func TestPreflightPassesCleanRepo(t *testing.T) {
	repoRoot := setupTestRepo(t)
	gitDir, err := Preflight(context.Background(), repoRoot)
	if err != nil {
		t.Fatalf("Preflight() failed: %v", err)
	}
	if filepath.Base(gitDir) != ".git" {
		t.Errorf("Preflight() gitDir = %q, want path ending in .git", gitDir)
	}
}

func TestEnsureTrackedForMutatingTracksNewRepo(t *testing.T) {
	repoRoot := setupTestRepo(t)
	gitDir, err := Preflight(context.Background(), repoRoot)
	if err != nil {
		t.Fatalf("Preflight() failed: %v", err)
	}
	store := metadata.New(filepath.Join(t.TempDir(), "workspaces.json"))

	repo, err := EnsureTrackedForMutating(context.Background(), store, "new", repoRoot, gitDir, time.Unix(1700000000, 0))
	if err != nil {
		t.Fatalf("EnsureTrackedForMutating() failed: %v", err)
	}
	if repo.GitDir != gitDir {
		t.Errorf("repo.GitDir = %q, want %q", repo.GitDir, gitDir)
	}
}

func TestEnsureTrackedForMutatingReadOnlyRejectsUntrackedRepo(t *testing.T) {
	repoRoot := setupTestRepo(t)
	gitDir, err := Preflight(context.Background(), repoRoot)
	if err != nil {
		t.Fatalf("Preflight() failed: %v", err)
	}
	store := metadata.New(filepath.Join(t.TempDir(), "workspaces.json"))

	_, err = EnsureTrackedForMutating(context.Background(), store, "list", repoRoot, gitDir, time.Unix(1700000000, 0))
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != apperror.CodeRepoNotTracked {
		t.Fatalf("EnsureTrackedForMutating() = %v, want repo-not-tracked AppError", err)
	}
}

func TestResolveWorkspaceNotTracked(t *testing.T) {
	_, err := ResolveWorkspace(metadata.Repo{Workspaces: map[string]metadata.Workspace{}}, "feature/x")
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != apperror.CodeWorkspaceNotTracked {
		t.Fatalf("ResolveWorkspace() = %v, want workspace-not-tracked AppError", err)
	}
}
