package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
)

// setupTestRepo creates a throwaway git repository with one commit on
// main and returns its path, redirecting XDG_DATA_HOME so the
// metadata store writes under the test's temp dir rather than the
// operator's real home.
func setupTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), "GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init", "-b", "main")
	run("config", "user.name", "test")
	run("config", "user.email", "test@example.com")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644); err != nil {
		t.Fatalf("write README: %v", err)
	}
	run("add", "README.md")
	run("commit", "-m", "initial commit")

	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)
	xdg.Reload()

	return dir
}

// runCLI invokes rootCmd in-process with args, chdir'd into dir, and
// returns combined stdout output and the resulting error.
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(wd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	return out.String(), err
}

func TestNewAndListStandardWorkspace(t *testing.T) {
	dir := setupTestRepo(t)

	if _, err := runCLI(t, dir, "new", "feature/alpha"); err != nil {
		t.Fatalf("new feature/alpha: %v", err)
	}

	out, err := runCLI(t, dir, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "feature/alpha") {
		t.Errorf("list output = %q, want to contain feature/alpha", out)
	}
}

func TestDeleteDryRunDoesNotMutate(t *testing.T) {
	dir := setupTestRepo(t)

	if _, err := runCLI(t, dir, "new", "feature/beta"); err != nil {
		t.Fatalf("new feature/beta: %v", err)
	}

	out, err := runCLI(t, dir, "delete", "feature/beta", "--dry-run")
	if err != nil {
		t.Fatalf("delete --dry-run: %v", err)
	}
	if !strings.Contains(out, "feature/beta") {
		t.Errorf("dry-run plan = %q, want to mention feature/beta", out)
	}

	// The workspace must still be listed since --dry-run performed no
	// mutation.
	listOut, err := runCLI(t, dir, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(listOut, "feature/beta") {
		t.Errorf("list after dry-run = %q, want feature/beta still tracked", listOut)
	}
}

func TestNewOctopusRequiresName(t *testing.T) {
	dir := setupTestRepo(t)
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("branch", "topic-a")
	run("branch", "topic-b")

	if _, err := runCLI(t, dir, "new", "topic-a", "topic-b"); err == nil {
		t.Fatal("new with two branches and no --name: want error, got nil")
	}
}
