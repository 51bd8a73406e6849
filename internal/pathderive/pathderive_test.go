package pathderive

import (
	"path/filepath"
	"testing"
)

func TestDeriveBranchDirSanitizes(t *testing.T) {
	cases := []struct {
		branch string
		want   string
	}{
		{"feature/x", "feature-x"},
		{"main", "main"},
		{"Release/2024-Q1", "release-2024-q1"},
		{"---", "workspace"},
		{"", "workspace"},
	}
	for _, c := range cases {
		if got := DeriveBranchDir(c.branch); got != c.want {
			t.Errorf("DeriveBranchDir(%q) = %q, want %q", c.branch, got, c.want)
		}
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	gitDir := "/home/dev/projects/myrepo/.git"
	p1 := Derive(gitDir, "feature/x", nil)
	p2 := Derive(gitDir, "feature/x", nil)
	if p1 != p2 {
		t.Errorf("Derive() not stable across calls: %q != %q", p1, p2)
	}
}

func TestDeriveRepoIDStableAndSlugged(t *testing.T) {
	id := DeriveRepoID("/home/dev/projects/My Repo!!/.git")
	if filepath.Base(id) == "" {
		t.Fatal("DeriveRepoID() returned empty")
	}
	if id[:7] != "my-repo" {
		t.Errorf("DeriveRepoID() = %q, want slug prefix \"my-repo\"", id)
	}
}

func TestCollisionSuffixDisambiguates(t *testing.T) {
	gitDir := "/home/dev/projects/myrepo/.git"
	siblings := []string{"feature/x", "feature-x"}

	pathA := Derive(gitDir, "feature/x", siblings)
	pathB := Derive(gitDir, "feature-x", siblings)

	if pathA == pathB {
		t.Fatalf("Derive() produced colliding paths for distinct branches: %q", pathA)
	}
	if filepath.Base(pathA) == filepath.Base(pathB) {
		t.Errorf("expected disambiguated directory names, got %q and %q", filepath.Base(pathA), filepath.Base(pathB))
	}
}

func TestDeriveNoCollisionWithoutSiblings(t *testing.T) {
	gitDir := "/home/dev/projects/myrepo/.git"
	path := Derive(gitDir, "feature/x", nil)
	if filepath.Base(path) != "feature-x" {
		t.Errorf("Derive() without siblings = %q, want dir name \"feature-x\"", filepath.Base(path))
	}
}
