package metadata

import (
	"fmt"
	"path/filepath"
)

// ValidationError reports a metadata document that violates one of the
// invariants in the data model (§3): a malformed key, an impossible
// WorkspaceKind/octopusParents combination, a relative worktree path,
// and so on. It is always fatal — there is no partial-acceptance mode.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid metadata: " + e.Reason }

// Validate enforces every invariant from §3 that both read and write
// must check: version bounds, repo/workspace key equality, kind
// invariants, and worktree path uniqueness/absoluteness.
func Validate(m *MetadataFile) error {
	if m.Version <= 0 {
		return &ValidationError{Reason: fmt.Sprintf("version %d is not positive", m.Version)}
	}
	if m.Version > SchemaVersion {
		return &ValidationError{Reason: fmt.Sprintf("version %d exceeds supported schema version %d", m.Version, SchemaVersion)}
	}

	for gitDir, repo := range m.Repos {
		if repo.GitDir != gitDir {
			return &ValidationError{Reason: fmt.Sprintf("repo key %q does not match repo.git_dir %q", gitDir, repo.GitDir)}
		}
		if !filepath.IsAbs(repo.GitDir) {
			return &ValidationError{Reason: fmt.Sprintf("repo.git_dir %q is not absolute", repo.GitDir)}
		}

		seenPaths := map[string]string{}
		for branch, ws := range repo.Workspaces {
			if ws.Branch != branch {
				return &ValidationError{Reason: fmt.Sprintf("workspace key %q does not match workspace.branch %q", branch, ws.Branch)}
			}
			if err := validateWorkspaceKind(ws); err != nil {
				return err
			}
			if !filepath.IsAbs(ws.WorktreePath) {
				return &ValidationError{Reason: fmt.Sprintf("workspace %q worktree_path %q is not absolute", branch, ws.WorktreePath)}
			}
			if owner, dup := seenPaths[ws.WorktreePath]; dup {
				return &ValidationError{Reason: fmt.Sprintf("worktree_path %q is shared by workspaces %q and %q", ws.WorktreePath, owner, branch)}
			}
			seenPaths[ws.WorktreePath] = branch
		}
	}
	return nil
}

func validateWorkspaceKind(ws Workspace) error {
	switch ws.Kind {
	case KindStandard:
		if len(ws.OctopusParents) != 0 {
			return &ValidationError{Reason: fmt.Sprintf("workspace %q is standard but has octopus_parents", ws.Branch)}
		}
	case KindOctopus:
		if len(ws.OctopusParents) < 2 {
			return &ValidationError{Reason: fmt.Sprintf("workspace %q is octopus but has fewer than 2 octopus_parents", ws.Branch)}
		}
		seen := map[string]bool{}
		for _, p := range ws.OctopusParents {
			if seen[p] {
				return &ValidationError{Reason: fmt.Sprintf("workspace %q has duplicate octopus parent %q", ws.Branch, p)}
			}
			seen[p] = true
		}
	default:
		return &ValidationError{Reason: fmt.Sprintf("workspace %q has unknown kind %q", ws.Branch, ws.Kind)}
	}
	return nil
}
