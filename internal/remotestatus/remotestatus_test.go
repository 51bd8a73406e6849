package remotestatus

import (
	"context"
	"testing"
	"time"

	"github.com/krscott/gitcuttle/internal/metadata"
)

func TestGithubRepoSlugFromURL(t *testing.T) {
	cases := []struct {
		url      string
		wantSlug string
		wantOK   bool
	}{
		{"git@github.com:owner/repo.git", "owner/repo", true},
		{"git@github.com:owner/repo", "owner/repo", true},
		{"ssh://git@github.com/owner/repo.git", "owner/repo", true},
		{"https://github.com/owner/repo.git", "owner/repo", true},
		{"https://github.com/owner/repo", "owner/repo", true},
		{"https://gitlab.com/owner/repo", "", false},
		{"https://github.com/owner/repo/extra", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		slug, ok := githubRepoSlugFromURL(c.url)
		if slug != c.wantSlug || ok != c.wantOK {
			t.Errorf("githubRepoSlugFromURL(%q) = (%q, %v), want (%q, %v)", c.url, slug, ok, c.wantSlug, c.wantOK)
		}
	}
}

func TestCacheReturnsCachedResultWithinTTL(t *testing.T) {
	calls := 0
	resolver := func(ctx context.Context, repoRoot string, repo metadata.Repo) map[string]AheadBehind {
		calls++
		return map[string]AheadBehind{}
	}

	now := time.Unix(1000, 0)
	c := &Cache{TTL: 60 * time.Second, Now: func() time.Time { return now }}
	repo := metadata.Repo{GitDir: "/repo/.git", RepoRoot: "/repo"}

	c.StatusesForRepo(context.Background(), repo, resolver)
	c.StatusesForRepo(context.Background(), repo, resolver)

	if calls != 1 {
		t.Errorf("resolver called %d times within TTL, want 1", calls)
	}
}

func TestCacheRecomputesAfterTTLElapses(t *testing.T) {
	calls := 0
	resolver := func(ctx context.Context, repoRoot string, repo metadata.Repo) map[string]AheadBehind {
		calls++
		return map[string]AheadBehind{}
	}

	current := time.Unix(1000, 0)
	c := &Cache{TTL: 60 * time.Second, Now: func() time.Time { return current }}
	repo := metadata.Repo{GitDir: "/repo/.git", RepoRoot: "/repo"}

	c.StatusesForRepo(context.Background(), repo, resolver)
	current = current.Add(61 * time.Second)
	c.StatusesForRepo(context.Background(), repo, resolver)

	if calls != 2 {
		t.Errorf("resolver called %d times across TTL boundary, want 2", calls)
	}
}

func TestUpstreamRefPrefersWorkspaceRemote(t *testing.T) {
	ws := metadata.Workspace{Branch: "feature/x", TrackedRemote: "upstream"}
	if got := UpstreamRef(ws, "origin"); got != "upstream/feature/x" {
		t.Errorf("UpstreamRef() = %q, want %q", got, "upstream/feature/x")
	}
}

func TestUpstreamRefFallsBackToDefaultRemote(t *testing.T) {
	ws := metadata.Workspace{Branch: "feature/x"}
	if got := UpstreamRef(ws, "origin"); got != "origin/feature/x" {
		t.Errorf("UpstreamRef() = %q, want %q", got, "origin/feature/x")
	}
}

func TestUpstreamRefEmptyWithNoRemote(t *testing.T) {
	ws := metadata.Workspace{Branch: "feature/x"}
	if got := UpstreamRef(ws, ""); got != "" {
		t.Errorf("UpstreamRef() = %q, want empty string", got)
	}
}
