package gitdriver

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// RevParse resolves ref to its commit OID. Returns ("", nil) if ref
// does not resolve, matching the specification's revParse(ref) →
// oid|None.
func (d *Driver) RevParse(ctx context.Context, ref string) (string, error) {
	out, err := d.run(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return "", nil
		}
		return "", err
	}
	return out, nil
}

// ShowRef reports whether ref resolves to an existing object.
func (d *Driver) ShowRef(ctx context.Context, ref string) (bool, error) {
	oid, err := d.RevParse(ctx, ref)
	if err != nil {
		return false, err
	}
	return oid != "", nil
}

// CurrentBranch returns the checked-out branch's short name, or "" if
// HEAD is detached.
func (d *Driver) CurrentBranch(ctx context.Context) (string, error) {
	out, err := d.run(ctx, "symbolic-ref", "--short", "-q", "HEAD")
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return "", nil
		}
		return "", err
	}
	return out, nil
}

// MergeBase returns the best common ancestor of refs.
func (d *Driver) MergeBase(ctx context.Context, refs ...string) (string, error) {
	args := append([]string{"merge-base"}, refs...)
	return d.run(ctx, args...)
}

// IsAncestor reports whether a is an ancestor of (or equal to) b.
func (d *Driver) IsAncestor(ctx context.Context, a, b string) (bool, error) {
	_, err := d.run(ctx, "merge-base", "--is-ancestor", a, b)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// LocalBranchExists reports whether refs/heads/<name> exists.
func (d *Driver) LocalBranchExists(ctx context.Context, name string) (bool, error) {
	return d.ShowRef(ctx, "refs/heads/"+name)
}

// CreateBranch creates refs/heads/<name> pointing at base. Returns
// ErrRefExists if the branch already exists.
func (d *Driver) CreateBranch(ctx context.Context, name, base string) error {
	exists, err := d.LocalBranchExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return ErrRefExists
	}
	_, err = d.run(ctx, "branch", name, base)
	return err
}

// DeleteBranch deletes refs/heads/<name>. force selects -D over -d.
func (d *Driver) DeleteBranch(ctx context.Context, name string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := d.run(ctx, "branch", flag, name)
	return err
}

// UpdateRef performs a compare-and-swap style ref update, writing
// refName to point at newOID. If oldOID is non-empty, the update only
// succeeds if the ref's current value matches it; this is what keeps
// transaction steps' forward application idempotent-safe (§4.4).
func (d *Driver) UpdateRef(ctx context.Context, refName, newOID, oldOID string) error {
	args := []string{"update-ref", refName, newOID}
	if oldOID != "" {
		args = append(args, oldOID)
	}
	_, err := d.run(ctx, args...)
	return err
}

// DeleteRef removes refName. Missing refs are not an error.
func (d *Driver) DeleteRef(ctx context.Context, refName string) error {
	_, err := d.run(ctx, "update-ref", "-d", refName)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return nil
		}
	}
	return err
}

// ForEachRef lists refs under prefix as (refname, oid) pairs.
func (d *Driver) ForEachRef(ctx context.Context, prefix string) (map[string]string, error) {
	lines, err := d.runLines(ctx, "for-each-ref", "--format=%(refname) %(objectname)", prefix)
	if err != nil {
		return nil, err
	}
	result := make(map[string]string, len(lines))
	for _, line := range lines {
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			continue
		}
		result[parts[0]] = parts[1]
	}
	return result, nil
}

// AheadBehind runs `git rev-list --left-right --count local...upstream`
// and parses the two integers it prints. Per spec §4.5, any failure to
// run or to parse two integers yields (nil, nil, nil) — "uncountable",
// not an error.
func (d *Driver) AheadBehind(ctx context.Context, local, upstream string) (ahead, behind *int, err error) {
	out, runErr := d.run(ctx, "rev-list", "--left-right", "--count", local+"..."+upstream)
	if runErr != nil {
		return nil, nil, nil
	}
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return nil, nil, nil
	}
	a, aErr := strconv.Atoi(fields[0])
	b, bErr := strconv.Atoi(fields[1])
	if aErr != nil || bErr != nil {
		return nil, nil, nil
	}
	return &a, &b, nil
}

// RevListReverseNot returns the ordered list of commits reachable from
// ref but not from any of notRefs — oldest first — used both to find
// an octopus workspace's post-merge commits (absorb) and its replay
// commits (octopus update).
func (d *Driver) RevListReverseNot(ctx context.Context, ref string, notRefs ...string) ([]string, error) {
	args := []string{"rev-list", "--reverse", ref, "--not"}
	args = append(args, notRefs...)
	return d.runLines(ctx, args...)
}

// IsMergeCommit reports whether commit has more than one parent.
func (d *Driver) IsMergeCommit(ctx context.Context, commit string) (bool, error) {
	out, err := d.run(ctx, "rev-parse", commit+"^2")
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return false, nil
		}
		return false, err
	}
	return out != "", nil
}

// ChangedFiles lists the paths a single commit touches relative to its
// first parent.
func (d *Driver) ChangedFiles(ctx context.Context, commit string) ([]string, error) {
	return d.runLines(ctx, "show", "--pretty=", "--name-only", commit)
}

// PathExistsAtRef reports whether path exists in the tree at ref.
func (d *Driver) PathExistsAtRef(ctx context.Context, ref, path string) (bool, error) {
	_, err := d.run(ctx, "cat-file", "-e", ref+":"+path)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
