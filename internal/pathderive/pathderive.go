// Package pathderive maps a (repository identity, branch name) pair to
// a stable, collision-free absolute working-directory path. Identical
// inputs produce identical outputs across processes. Nothing here runs
// git; the only filesystem access is DeriveRepoID's best-effort symlink
// resolution of the git dir.
package pathderive

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/adrg/xdg"
	"golang.org/x/text/unicode/norm"
)

var (
	nonRepoChars   = regexp.MustCompile(`[^A-Za-z0-9]+`)
	nonBranchChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// Derive returns the absolute worktree path for branch within the
// repository identified by gitDir, disambiguating against
// siblingBranches — the other branches already tracked in the same
// repo — so that two branches which sanitize to the same directory
// name never collide.
func Derive(gitDir, branch string, siblingBranches []string) string {
	repoID := DeriveRepoID(gitDir)
	branchDir := DeriveBranchDir(branch)

	if hasSanitizedCollision(branch, siblingBranches) {
		branchDir = branchDir + "-" + stableShortHash(branch, 6)
	}

	return filepath.Join(rootDir(), repoID, branchDir)
}

// DeriveRepoID returns "<slug-of-parent-dir-name>-<hash8>" for the
// canonical gitDir. Symlinks are resolved on a best-effort basis; an
// unresolvable path (e.g. it doesn't exist yet) is used as-is so the
// function stays pure and total.
func DeriveRepoID(gitDir string) string {
	canonical := gitDir
	if resolved, err := filepath.EvalSymlinks(gitDir); err == nil {
		canonical = resolved
	}
	canonical = filepath.Clean(canonical)

	parentName := filepath.Base(filepath.Dir(canonical))
	slug := slugifyRepoName(parentName)
	hash := sha256Hex(canonical)[:8]
	return slug + "-" + hash
}

// DeriveBranchDir sanitizes branch into a filesystem-safe directory
// name: Unicode-normalized to NFC first (so visually identical branch
// names under different normalization forms collide deterministically
// rather than silently diverging), then every run of characters
// outside [A-Za-z0-9._-] becomes a single "-", leading/trailing
// "-", ".", "_" are stripped, and the result is lowercased. An empty
// result becomes "workspace".
func DeriveBranchDir(branch string) string {
	normalized := norm.NFC.String(branch)
	sanitized := nonBranchChars.ReplaceAllString(normalized, "-")
	sanitized = strings.Trim(sanitized, "-._")
	sanitized = strings.ToLower(sanitized)
	if sanitized == "" {
		return "workspace"
	}
	return sanitized
}

// rootDir is XDG_DATA_HOME/gitcuttle, falling back to
// ~/.local/share/gitcuttle when XDG_DATA_HOME is unset — xdg.DataHome
// already implements that fallback.
func rootDir() string {
	return filepath.Join(xdg.DataHome, "gitcuttle")
}

func slugifyRepoName(name string) string {
	slug := nonRepoChars.ReplaceAllString(name, "-")
	slug = strings.Trim(slug, "-")
	slug = strings.ToLower(slug)
	if slug == "" {
		return "repo"
	}
	return slug
}

func hasSanitizedCollision(branch string, siblings []string) bool {
	target := DeriveBranchDir(branch)
	for _, sibling := range siblings {
		if sibling == branch {
			continue
		}
		if DeriveBranchDir(sibling) == target {
			return true
		}
	}
	return false
}

func stableShortHash(value string, length int) string {
	h := sha256Hex(value)
	if length > len(h) {
		length = len(h)
	}
	return h[:length]
}

func sha256Hex(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
