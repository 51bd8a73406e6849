package gitdriver

import (
	"context"
	"errors"
	"strings"
)

// Remote describes a configured remote and its fetch URL.
type Remote struct {
	Name string
	URL  string
}

// Remotes lists configured remotes, deduplicated by name, parsed from
// `git remote -v`.
func (d *Driver) Remotes(ctx context.Context) ([]Remote, error) {
	lines, err := d.runLines(ctx, "remote", "-v")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var result []Remote
	for _, line := range lines {
		if !strings.Contains(line, "(fetch)") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		name := fields[0]
		if seen[name] {
			continue
		}
		seen[name] = true
		result = append(result, Remote{Name: name, URL: fields[1]})
	}
	return result, nil
}

// DefaultRemote picks "origin" if present, else the lexicographically
// smallest remote name, else "" when there are no remotes — the
// selection rule from the specification's Repo.defaultRemote field.
func (d *Driver) DefaultRemote(ctx context.Context) (string, error) {
	remotes, err := d.Remotes(ctx)
	if err != nil {
		return "", err
	}
	if len(remotes) == 0 {
		return "", nil
	}
	best := ""
	for _, r := range remotes {
		if r.Name == "origin" {
			return "origin", nil
		}
		if best == "" || r.Name < best {
			best = r.Name
		}
	}
	return best, nil
}

// RemoteURL returns the fetch URL configured for name, or "" if the
// remote does not exist.
func (d *Driver) RemoteURL(ctx context.Context, name string) (string, error) {
	remotes, err := d.Remotes(ctx)
	if err != nil {
		return "", err
	}
	for _, r := range remotes {
		if r.Name == name {
			return r.URL, nil
		}
	}
	return "", nil
}

// Fetch fetches from remote. A no-op (returns nil) if remote is empty.
func (d *Driver) Fetch(ctx context.Context, remote string) error {
	if remote == "" {
		return nil
	}
	_, err := d.run(ctx, "fetch", remote)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && strings.Contains(strings.ToLower(cmdErr.Stderr), "could not read") {
			return ErrNoRemote
		}
	}
	return err
}

// RemoteTrackingRefExists reports whether refs/remotes/<remote>/<branch>
// resolves, i.e. whether a fetch actually produced that tracking ref.
func (d *Driver) RemoteTrackingRefExists(ctx context.Context, remote, branch string) (bool, error) {
	return d.ShowRef(ctx, "refs/remotes/"+TrackingRef(remote, branch))
}

// TrackingRef composes the remote-tracking ref remote/branch. Callers
// that have both parts separately should build the ref through here
// rather than concatenating "/" inline, so every call site agrees on
// the one place that knows how a tracking ref is shaped.
func TrackingRef(remote, branch string) string {
	return remote + "/" + branch
}

// SplitTrackingRef splits a remote-tracking ref such as "origin/main"
// back into its remote name and branch. A remote name may itself
// contain "/" (e.g. a hosting path used as a remote name), so this
// matches ref against d.Remotes rather than cutting on the first "/":
// the longest configured remote name that prefixes ref wins. Falls
// back to a plain cut on "/" only if no configured remote matches,
// which can happen for a ref whose remote was since removed.
func (d *Driver) SplitTrackingRef(ctx context.Context, ref string) (remote, branch string, err error) {
	remotes, err := d.Remotes(ctx)
	if err != nil {
		return "", "", err
	}

	best := ""
	for _, r := range remotes {
		prefix := r.Name + "/"
		if strings.HasPrefix(ref, prefix) && len(r.Name) > len(best) {
			best = r.Name
		}
	}
	if best != "" {
		return best, strings.TrimPrefix(ref, best+"/"), nil
	}

	name, branchPart, ok := strings.Cut(ref, "/")
	if !ok {
		return ref, "", nil
	}
	return name, branchPart, nil
}
