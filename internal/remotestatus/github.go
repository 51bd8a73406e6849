package remotestatus

import (
	"net/url"
	"strings"
)

// githubRepoSlugFromURL extracts "owner/repo" from any of the three
// GitHub remote URL forms this tool recognizes:
// "git@github.com:owner/repo(.git)?", "ssh://git@github.com/owner/repo(.git)?",
// and any URL whose hostname is github.com. Any other host, or a path
// that doesn't split into exactly two segments, returns ("", false).
func githubRepoSlugFromURL(remoteURL string) (string, bool) {
	normalized := strings.TrimSpace(remoteURL)
	if normalized == "" {
		return "", false
	}
	normalized = strings.TrimSuffix(normalized, ".git")

	var path string
	switch {
	case strings.HasPrefix(normalized, "git@github.com:"):
		path = strings.TrimPrefix(normalized, "git@github.com:")
	case strings.HasPrefix(normalized, "ssh://git@github.com/"):
		path = strings.TrimPrefix(normalized, "ssh://git@github.com/")
	default:
		parsed, err := url.Parse(normalized)
		if err != nil || parsed.Hostname() != "github.com" {
			return "", false
		}
		path = strings.TrimPrefix(parsed.Path, "/")
	}

	parts := nonEmptySegments(path)
	if len(parts) != 2 {
		return "", false
	}
	return parts[0] + "/" + parts[1], true
}

func nonEmptySegments(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
