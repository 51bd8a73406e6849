package remotestatus

import (
	"context"
	"encoding/json"
	"os/exec"
	"strings"

	"github.com/krscott/gitcuttle/internal/gitdriver"
	"github.com/krscott/gitcuttle/internal/metadata"
)

// UpstreamRef returns "<remote>/<branch>" for a workspace, preferring
// its own TrackedRemote and falling back to the repo's DefaultRemote.
// Returns "" if neither resolves.
func UpstreamRef(ws metadata.Workspace, defaultRemote string) string {
	remote := ws.TrackedRemote
	if remote == "" {
		remote = defaultRemote
	}
	if remote == "" {
		return ""
	}
	return gitdriver.TrackingRef(remote, ws.Branch)
}

// AheadBehindForWorkspace resolves a single workspace's ahead/behind
// counts against its upstream, returning the "uncountable" shape when
// no upstream resolves or either ref is missing.
func AheadBehindForWorkspace(ctx context.Context, d *gitdriver.Driver, ws metadata.Workspace, defaultRemote string) AheadBehind {
	upstream := UpstreamRef(ws, defaultRemote)
	unknown := AheadBehind{Branch: ws.Branch, UpstreamRef: upstream}
	if upstream == "" {
		return unknown
	}

	localExists, err := d.ShowRef(ctx, "refs/heads/"+ws.Branch)
	if err != nil || !localExists {
		return unknown
	}
	remoteExists, err := d.ShowRef(ctx, "refs/remotes/"+upstream)
	if err != nil || !remoteExists {
		return unknown
	}

	ahead, behind, err := d.AheadBehind(ctx, ws.Branch, upstream)
	if err != nil || ahead == nil || behind == nil {
		return unknown
	}
	return AheadBehind{Branch: ws.Branch, UpstreamRef: upstream, Ahead: ahead, Behind: behind}
}

// AheadBehindForRepo resolves every workspace's ahead/behind counts.
// It is the default Resolver used by Cache.StatusesForRepo.
func AheadBehindForRepo(ctx context.Context, repoRoot string, repo metadata.Repo) map[string]AheadBehind {
	d := gitdriver.New(repoRoot)
	result := make(map[string]AheadBehind, len(repo.Workspaces))
	for branch, ws := range repo.Workspaces {
		result[branch] = AheadBehindForWorkspace(ctx, d, ws, repo.DefaultRemote)
	}
	return result
}

// ghCommand is overridable in tests so the pull-request probe doesn't
// need a real gh binary and network access.
var ghCommand = exec.CommandContext

// PullRequestStatusForWorkspace probes pull-request state for ws via
// an external gh-style tool, scoped to repoRoot as the working
// directory. See githubRepoSlugFromURL for the remote URL forms this
// recognizes.
func PullRequestStatusForWorkspace(ctx context.Context, d *gitdriver.Driver, repoRoot string, ws metadata.Workspace, defaultRemote string) PullRequest {
	upstream := UpstreamRef(ws, defaultRemote)
	unknown := PullRequest{Branch: ws.Branch, UpstreamRef: upstream, State: PRUnknown}
	if upstream == "" {
		return unknown
	}

	remoteName := ws.TrackedRemote
	if remoteName == "" {
		remoteName = defaultRemote
	}
	if remoteName == "" {
		return unknown
	}

	remoteURL, err := d.RemoteURL(ctx, remoteName)
	if err != nil || remoteURL == "" {
		return PullRequest{Branch: ws.Branch, UpstreamRef: upstream, State: PRUnavailable}
	}
	slug, ok := githubRepoSlugFromURL(remoteURL)
	if !ok {
		return PullRequest{Branch: ws.Branch, UpstreamRef: upstream, State: PRUnavailable}
	}

	return pullRequestStatusFromGH(ctx, repoRoot, ws.Branch, upstream, slug)
}

type ghPullRequest struct {
	State string `json:"state"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

func pullRequestStatusFromGH(ctx context.Context, repoRoot, branch, upstreamRef, repoSlug string) PullRequest {
	unavailable := PullRequest{Branch: branch, UpstreamRef: upstreamRef, State: PRUnavailable}

	cmd := ghCommand(ctx, "gh", "pr", "list",
		"--repo", repoSlug,
		"--head", branch,
		"--state", "all",
		"--json", "state,title,url",
		"--limit", "1",
	)
	cmd.Dir = repoRoot
	out, err := cmd.Output()
	if err != nil {
		return unavailable
	}

	var results []ghPullRequest
	if err := json.Unmarshal(out, &results); err != nil {
		return unavailable
	}
	if len(results) == 0 {
		return PullRequest{Branch: branch, UpstreamRef: upstreamRef, State: PRUnknown}
	}

	first := results[0]
	return PullRequest{
		Branch:      branch,
		UpstreamRef: upstreamRef,
		State:       mapGHState(first.State),
		Title:       first.Title,
		URL:         first.URL,
	}
}

func mapGHState(state string) PRState {
	switch strings.ToUpper(state) {
	case "OPEN":
		return PROpen
	case "CLOSED":
		return PRClosed
	case "MERGED":
		return PRMerged
	default:
		return PRUnknown
	}
}
