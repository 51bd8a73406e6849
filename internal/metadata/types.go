package metadata

import (
	"fmt"
	"strconv"
	"time"
)

// isoLayout is the exact timestamp format used throughout the metadata
// file: UTC, second precision, "Z" suffix — equivalent to Python's
// datetime.now(tz=timezone.utc).isoformat().replace("+00:00", "Z").
const isoLayout = "2006-01-02T15:04:05Z"

// Timestamp marshals to and from the metadata file's exact ISO-8601
// UTC string form, so that read(write(m)) round-trips byte-for-byte
// rather than drifting through encoding/json's default RFC3339Nano
// representation.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to second precision in UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t.UTC().Truncate(time.Second)}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return strconv.AppendQuote(nil, t.UTC().Format(isoLayout)), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := time.Parse(isoLayout, s)
	if err != nil {
		return fmt.Errorf("timestamp %q does not parse as ISO-8601 UTC: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// SchemaVersion is the current on-disk schema version. Files older
// than this are migrated in place on read; files newer than this are
// rejected.
const SchemaVersion = 1

// WorkspaceKind is the variant distinguishing a single-branch workspace
// from an N-way merge ("octopus") workspace.
type WorkspaceKind string

const (
	KindStandard WorkspaceKind = "standard"
	KindOctopus  WorkspaceKind = "octopus"
)

// Workspace is the durable record of one tracked workspace.
type Workspace struct {
	Branch         string        `json:"branch"`
	WorktreePath   string        `json:"worktree_path"`
	TrackedRemote  string        `json:"tracked_remote,omitempty"`
	Kind           WorkspaceKind `json:"kind"`
	BaseRef        string        `json:"base_ref"`
	OctopusParents []string      `json:"octopus_parents,omitempty"`
	CreatedAt      Timestamp     `json:"created_at"`
	UpdatedAt      Timestamp     `json:"updated_at"`
}

// Repo is one tracked repository and its workspaces.
type Repo struct {
	GitDir        string               `json:"git_dir"`
	RepoRoot      string               `json:"repo_root"`
	DefaultRemote string               `json:"default_remote,omitempty"`
	TrackedAt     Timestamp            `json:"tracked_at"`
	UpdatedAt     Timestamp            `json:"updated_at"`
	Workspaces    map[string]Workspace `json:"workspaces"`
}

// MetadataFile is the top-level persistent structure.
type MetadataFile struct {
	Version int             `json:"version"`
	Repos   map[string]Repo `json:"repos"`
}

// NewEmpty returns the empty index at the current schema version — the
// value used when no metadata file exists yet on disk.
func NewEmpty() MetadataFile {
	return MetadataFile{Version: SchemaVersion, Repos: map[string]Repo{}}
}

// FormatISO formats t the way every timestamp in the metadata file is
// written: UTC, second precision, "Z" suffix rather than "+00:00".
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}
