package workspace

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/krscott/gitcuttle/internal/apperror"
	"github.com/krscott/gitcuttle/internal/gitdriver"
	"github.com/krscott/gitcuttle/internal/metadata"
)

// setupTestRepo creates a temporary git repository seeded with one
// commit on main, mirroring internal/gitdriver's test helper.
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

func newTestStore(t *testing.T) *metadata.Store {
	t.Helper()
	return metadata.New(filepath.Join(t.TempDir(), "workspaces.json"))
}

func trackRepo(t *testing.T, store *metadata.Store, repoRoot string) (gitDir string) {
	t.Helper()
	ctx := context.Background()
	repo, err := store.EnsureRepoTracked(ctx, repoRoot, time.Unix(1700000000, 0))
	if err != nil {
		t.Fatalf("EnsureRepoTracked() failed: %v", err)
	}
	return repo.GitDir
}

func TestResolveBaseRefExplicit(t *testing.T) {
	repoRoot := setupTestRepo(t)
	d := gitdriver.New(repoRoot)

	ref, err := ResolveBaseRef(context.Background(), d, "main", "")
	if err != nil {
		t.Fatalf("ResolveBaseRef() failed: %v", err)
	}
	if ref != "main" {
		t.Errorf("ResolveBaseRef() = %q, want %q", ref, "main")
	}
}

func TestResolveBaseRefRejectsUnknownRef(t *testing.T) {
	repoRoot := setupTestRepo(t)
	d := gitdriver.New(repoRoot)

	_, err := ResolveBaseRef(context.Background(), d, "does-not-exist", "")
	assertAppErrorCode(t, err, apperror.CodeInvalidBaseRef)
}

func TestResolveBaseRefFallsBackToCurrentBranch(t *testing.T) {
	repoRoot := setupTestRepo(t)
	d := gitdriver.New(repoRoot)

	ref, err := ResolveBaseRef(context.Background(), d, "", "")
	if err != nil {
		t.Fatalf("ResolveBaseRef() failed: %v", err)
	}
	if ref != "main" {
		t.Errorf("ResolveBaseRef() = %q, want %q", ref, "main")
	}
}

func TestResolveBaseRefUsesConfiguredDefault(t *testing.T) {
	repoRoot := setupTestRepo(t)
	ctx := context.Background()
	d := gitdriver.New(repoRoot)
	if err := d.CreateBranch(ctx, "develop", "main"); err != nil {
		t.Fatalf("CreateBranch() failed: %v", err)
	}

	ref, err := ResolveBaseRef(ctx, d, "", "develop")
	if err != nil {
		t.Fatalf("ResolveBaseRef() failed: %v", err)
	}
	if ref != "develop" {
		t.Errorf("ResolveBaseRef() = %q, want %q", ref, "develop")
	}
}

func TestResolveBaseRefExplicitOverridesConfiguredDefault(t *testing.T) {
	repoRoot := setupTestRepo(t)
	ctx := context.Background()
	d := gitdriver.New(repoRoot)
	if err := d.CreateBranch(ctx, "develop", "main"); err != nil {
		t.Fatalf("CreateBranch() failed: %v", err)
	}

	ref, err := ResolveBaseRef(ctx, d, "main", "develop")
	if err != nil {
		t.Fatalf("ResolveBaseRef() failed: %v", err)
	}
	if ref != "main" {
		t.Errorf("ResolveBaseRef() = %q, want %q", ref, "main")
	}
}

func TestResolveBaseRefDetachedHead(t *testing.T) {
	repoRoot := setupTestRepo(t)
	ctx := context.Background()
	d := gitdriver.New(repoRoot)
	head, err := d.RevParse(ctx, "main")
	if err != nil {
		t.Fatalf("RevParse() failed: %v", err)
	}
	if err := d.Checkout(ctx, head); err != nil {
		t.Fatalf("Checkout() failed: %v", err)
	}

	_, err = ResolveBaseRef(ctx, d, "", "")
	assertAppErrorCode(t, err, apperror.CodeDetachedHead)
}

func TestNormalizeOctopusParentRefsRequiresTwo(t *testing.T) {
	repoRoot := setupTestRepo(t)
	d := gitdriver.New(repoRoot)

	_, err := normalizeOctopusParentRefs(context.Background(), d, []string{"main"})
	assertAppErrorCode(t, err, apperror.CodeInvalidOctopusParents)
}

func TestNormalizeOctopusParentRefsRejectsDuplicates(t *testing.T) {
	repoRoot := setupTestRepo(t)
	d := gitdriver.New(repoRoot)

	_, err := normalizeOctopusParentRefs(context.Background(), d, []string{"main", " main "})
	assertAppErrorCode(t, err, apperror.CodeInvalidOctopusParents)
}

func TestNormalizeOctopusParentRefsRejectsMissingRef(t *testing.T) {
	repoRoot := setupTestRepo(t)
	ctx := context.Background()
	d := gitdriver.New(repoRoot)
	if err := d.CreateBranch(ctx, "feature/a", "main"); err != nil {
		t.Fatalf("CreateBranch() failed: %v", err)
	}

	_, err := normalizeOctopusParentRefs(ctx, d, []string{"feature/a", "does-not-exist"})
	assertAppErrorCode(t, err, apperror.CodeInvalidBaseRef)
}

func TestCreateStandardWorkspace(t *testing.T) {
	repoRoot := setupTestRepo(t)
	store := newTestStore(t)
	gitDir := trackRepo(t, store, repoRoot)

	ws, err := CreateStandard(context.Background(), store, CreateStandardParams{
		CWD:    repoRoot,
		Branch: "feature/login",
	}, time.Unix(1700000100, 0))
	if err != nil {
		t.Fatalf("CreateStandard() failed: %v", err)
	}
	if ws.Kind != metadata.KindStandard {
		t.Errorf("Kind = %q, want standard", ws.Kind)
	}
	if ws.BaseRef != "main" {
		t.Errorf("BaseRef = %q, want main", ws.BaseRef)
	}
	if _, err := os.Stat(ws.WorktreePath); err != nil {
		t.Errorf("worktree path %q does not exist: %v", ws.WorktreePath, err)
	}

	m, err := store.Read()
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if _, ok := m.Repos[gitDir].Workspaces["feature/login"]; !ok {
		t.Errorf("persisted metadata missing feature/login workspace")
	}
}

func TestCreateStandardWorkspaceRejectsExistingBranch(t *testing.T) {
	repoRoot := setupTestRepo(t)
	store := newTestStore(t)
	trackRepo(t, store, repoRoot)

	ctx := context.Background()
	d := gitdriver.New(repoRoot)
	if err := d.CreateBranch(ctx, "feature/taken", "main"); err != nil {
		t.Fatalf("CreateBranch() failed: %v", err)
	}

	_, err := CreateStandard(ctx, store, CreateStandardParams{CWD: repoRoot, Branch: "feature/taken"}, time.Unix(1700000100, 0))
	assertAppErrorCode(t, err, apperror.CodeBranchAlreadyExists)
}

func TestCreateOctopusWorkspace(t *testing.T) {
	repoRoot := setupTestRepo(t)
	store := newTestStore(t)
	gitDir := trackRepo(t, store, repoRoot)

	ctx := context.Background()
	d := gitdriver.New(repoRoot)
	if err := d.CreateBranch(ctx, "feature/a", "main"); err != nil {
		t.Fatalf("CreateBranch() failed: %v", err)
	}
	if err := d.CreateBranch(ctx, "feature/b", "main"); err != nil {
		t.Fatalf("CreateBranch() failed: %v", err)
	}

	ws, err := CreateOctopus(ctx, store, CreateOctopusParams{
		CWD:        repoRoot,
		Branch:     "octopus/combined",
		ParentRefs: []string{"feature/a", "feature/b"},
	}, time.Unix(1700000200, 0))
	if err != nil {
		t.Fatalf("CreateOctopus() failed: %v", err)
	}
	if ws.Kind != metadata.KindOctopus {
		t.Errorf("Kind = %q, want octopus", ws.Kind)
	}
	if len(ws.OctopusParents) != 2 {
		t.Errorf("OctopusParents = %v, want 2 entries", ws.OctopusParents)
	}

	m, err := store.Read()
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if _, ok := m.Repos[gitDir].Workspaces["octopus/combined"]; !ok {
		t.Errorf("persisted metadata missing octopus/combined workspace")
	}
}

func TestDeleteBlockReasonCurrentWorkspace(t *testing.T) {
	repoRoot := setupTestRepo(t)
	reason, err := DeleteBlockReason(context.Background(), "main", "main", repoRoot, false)
	if err != nil {
		t.Fatalf("DeleteBlockReason() failed: %v", err)
	}
	if reason != BlockCurrentWorkspace {
		t.Errorf("DeleteBlockReason() = %q, want %q", reason, BlockCurrentWorkspace)
	}
}

func TestDeleteBlockReasonForceBypassesBlock(t *testing.T) {
	repoRoot := setupTestRepo(t)
	reason, err := DeleteBlockReason(context.Background(), "main", "main", repoRoot, true)
	if err != nil {
		t.Fatalf("DeleteBlockReason() failed: %v", err)
	}
	if reason != "" {
		t.Errorf("DeleteBlockReason() with force = %q, want \"\"", reason)
	}
}

func TestDeleteBlockReasonDirtyWorktree(t *testing.T) {
	repoRoot := setupTestRepo(t)
	if err := os.WriteFile(filepath.Join(repoRoot, "README.md"), []byte("changed\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	reason, err := DeleteBlockReason(context.Background(), "main", "feature/x", repoRoot, false)
	if err != nil {
		t.Fatalf("DeleteBlockReason() failed: %v", err)
	}
	if reason != BlockWorkspaceDirty {
		t.Errorf("DeleteBlockReason() = %q, want %q", reason, BlockWorkspaceDirty)
	}
}

func TestDeleteRemovesWorktreeBranchAndMetadata(t *testing.T) {
	repoRoot := setupTestRepo(t)
	store := newTestStore(t)
	gitDir := trackRepo(t, store, repoRoot)
	ctx := context.Background()

	ws, err := CreateStandard(ctx, store, CreateStandardParams{CWD: repoRoot, Branch: "feature/drop"}, time.Unix(1700000100, 0))
	if err != nil {
		t.Fatalf("CreateStandard() failed: %v", err)
	}

	if err := Delete(ctx, store, gitDir, repoRoot, ws, DeleteOptions{Scope: ScopeAll, Force: true}); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	if _, err := os.Stat(ws.WorktreePath); !os.IsNotExist(err) {
		t.Errorf("worktree path %q still exists after delete", ws.WorktreePath)
	}

	d := gitdriver.New(repoRoot)
	exists, err := d.LocalBranchExists(ctx, "feature/drop")
	if err != nil {
		t.Fatalf("LocalBranchExists() failed: %v", err)
	}
	if exists {
		t.Errorf("branch feature/drop still exists after delete")
	}

	m, err := store.Read()
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if _, ok := m.Repos[gitDir].Workspaces["feature/drop"]; ok {
		t.Errorf("metadata still tracks feature/drop after delete")
	}
}

func TestPlanDeleteBlockedProducesWarningOnly(t *testing.T) {
	ws := metadata.Workspace{Branch: "feature/x", WorktreePath: "/tmp/x"}
	plan := PlanDelete(BlockCurrentWorkspace, ws, DeleteOptions{Scope: ScopeAll})
	if len(plan.Actions) != 0 {
		t.Errorf("PlanDelete() actions = %v, want none when blocked", plan.Actions)
	}
	if len(plan.Warnings) != 1 {
		t.Fatalf("PlanDelete() warnings = %v, want 1", plan.Warnings)
	}
}

func TestPlanDeleteUnblockedListsAllThreeActions(t *testing.T) {
	ws := metadata.Workspace{Branch: "feature/x", WorktreePath: "/tmp/x"}
	plan := PlanDelete("", ws, DeleteOptions{Scope: ScopeAll})
	if len(plan.Actions) != 3 {
		t.Fatalf("PlanDelete() actions = %v, want 3", plan.Actions)
	}
	if plan.Actions[0].Op != "delete-worktree" || plan.Actions[1].Op != "delete-branch" || plan.Actions[2].Op != "untrack-workspace" {
		t.Errorf("PlanDelete() actions out of order: %+v", plan.Actions)
	}
}

func TestBuildPruneDecisionsMissingLocalBranch(t *testing.T) {
	repoRoot := setupTestRepo(t)
	repo := metadata.Repo{
		Workspaces: map[string]metadata.Workspace{
			"feature/gone": {Branch: "feature/gone", WorktreePath: filepath.Join(t.TempDir(), "gone")},
		},
	}

	decisions, err := BuildPruneDecisions(context.Background(), repoRoot, repo, nil, "main", false)
	if err != nil {
		t.Fatalf("BuildPruneDecisions() failed: %v", err)
	}
	if len(decisions) != 1 || decisions[0].Reason != ReasonMissingLocalBranch {
		t.Fatalf("BuildPruneDecisions() = %+v, want one missing-local-branch decision", decisions)
	}
}

func TestBuildPruneDecisionsSkipsHealthyWorkspace(t *testing.T) {
	repoRoot := setupTestRepo(t)
	ctx := context.Background()
	d := gitdriver.New(repoRoot)
	if err := d.CreateBranch(ctx, "feature/keep", "main"); err != nil {
		t.Fatalf("CreateBranch() failed: %v", err)
	}

	repo := metadata.Repo{
		Workspaces: map[string]metadata.Workspace{
			"feature/keep": {Branch: "feature/keep", WorktreePath: repoRoot},
		},
	}

	decisions, err := BuildPruneDecisions(ctx, repoRoot, repo, nil, "main", false)
	if err != nil {
		t.Fatalf("BuildPruneDecisions() failed: %v", err)
	}
	if len(decisions) != 0 {
		t.Errorf("BuildPruneDecisions() = %+v, want none", decisions)
	}
}

func TestPlanPrunePreservesDecisionOrder(t *testing.T) {
	decisions := []PruneDecision{
		{Branch: "z", Reason: ReasonMissingLocalBranch, WorktreePath: "/tmp/z"},
		{Branch: "a", Reason: ReasonMissingLocalBranch, WorktreePath: "/tmp/a", LocalBranchExists: true},
	}
	plan := PlanPrune(decisions, false)
	if len(plan.Actions) == 0 {
		t.Fatalf("PlanPrune() produced no actions")
	}
	if plan.Actions[0].Target != "/tmp/z" {
		t.Errorf("PlanPrune() preserves caller-provided decision order; got first action target %q", plan.Actions[0].Target)
	}
}

// assertAppErrorCode fails the test unless err is an *apperror.AppError
// with the expected code.
func assertAppErrorCode(t *testing.T, err error, code apperror.Code) {
	t.Helper()
	appErr, ok := apperror.As(err)
	if !ok {
		t.Fatalf("error %v is not an *apperror.AppError", err)
	}
	if appErr.Code != code {
		t.Errorf("error code = %q, want %q", appErr.Code, code)
	}
}
