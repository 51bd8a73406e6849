package remotestatus

import (
	"context"
	"time"

	"github.com/krscott/gitcuttle/internal/metadata"
)

// Resolver computes fresh ahead/behind statuses for every workspace in
// repo. Tests substitute a counting stub to verify the cache invokes
// it exactly once per TTL window (§8 invariant 10).
type Resolver func(ctx context.Context, repoRoot string, repo metadata.Repo) map[string]AheadBehind

// Cache is the process-scoped remote-status cache named in §4.5 and
// §5 — the tool's one piece of global mutable state. Its lifetime is
// the process; nothing persists it across invocations.
// Cache is not safe for concurrent use, matching the single-threaded
// cooperative model this tool is built on (§5) — there is no internal
// preemption, so nothing ever calls into it from two goroutines.
type Cache struct {
	TTL time.Duration
	Now func() time.Time

	entries map[string]cacheEntry
}

type cacheEntry struct {
	fetchedAt time.Time
	statuses  map[string]AheadBehind
}

// NewCache returns a Cache with the default 60-second TTL and a
// real-time clock.
func NewCache() *Cache {
	return &Cache{TTL: 60 * time.Second, Now: time.Now}
}

// StatusesForRepo returns cached ahead/behind statuses for repo if the
// cached entry (keyed by the repo's canonical git dir) is within TTL,
// otherwise calls resolver, caches, and returns the fresh result. A
// nil resolver defaults to AheadBehindForRepo.
func (c *Cache) StatusesForRepo(ctx context.Context, repo metadata.Repo, resolver Resolver) map[string]AheadBehind {
	if resolver == nil {
		resolver = func(ctx context.Context, repoRoot string, repo metadata.Repo) map[string]AheadBehind {
			return AheadBehindForRepo(ctx, repoRoot, repo)
		}
	}

	now := c.now()

	if c.entries == nil {
		c.entries = map[string]cacheEntry{}
	}
	if entry, ok := c.entries[repo.GitDir]; ok && now.Sub(entry.fetchedAt) < c.ttl() {
		return entry.statuses
	}

	statuses := resolver(ctx, repo.RepoRoot, repo)
	c.entries[repo.GitDir] = cacheEntry{fetchedAt: now, statuses: statuses}
	return statuses
}

func (c *Cache) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Cache) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return 60 * time.Second
}

// Reset clears all cached entries. Primarily useful for tests.
func (c *Cache) Reset() {
	c.entries = map[string]cacheEntry{}
}
