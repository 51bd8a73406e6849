package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/tidwall/gjson"

	"github.com/krscott/gitcuttle/internal/gitdriver"
	"github.com/krscott/gitcuttle/internal/metadata/migrate"
)

// DefaultPath returns $XDG_DATA_HOME/gitcuttle/workspaces.json, falling
// back to ~/.local/share/gitcuttle/workspaces.json.
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, "gitcuttle", "workspaces.json")
}

// Store is the sole owner of the on-disk metadata index. Every other
// component consumes immutable snapshots returned by Read and routes
// writes back through Write/EnsureRepoTracked.
type Store struct {
	Path string
}

// New returns a Store rooted at path.
func New(path string) *Store {
	return &Store{Path: path}
}

// Read loads and validates the metadata file, migrating it in place if
// its version is older than SchemaVersion. A missing file is treated
// as an empty index, not an error (§3's "process-wide absence ... is
// treated as an empty index").
func (s *Store) Read() (MetadataFile, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewEmpty(), nil
		}
		return MetadataFile{}, fmt.Errorf("read metadata file: %w", err)
	}

	version := int(gjson.GetBytes(raw, "version").Int())
	if version == 0 {
		return MetadataFile{}, &ValidationError{Reason: "metadata file has no \"version\" field"}
	}
	if version > SchemaVersion {
		return MetadataFile{}, &ValidationError{Reason: fmt.Sprintf("metadata file version %d is newer than supported version %d", version, SchemaVersion)}
	}

	migrated := raw
	if version < SchemaVersion {
		next, err := migrate.Run(raw, version, SchemaVersion)
		if err != nil {
			return MetadataFile{}, fmt.Errorf("migrate metadata file: %w", err)
		}
		if err := s.backupOriginal(raw); err != nil {
			return MetadataFile{}, fmt.Errorf("backup pre-migration metadata: %w", err)
		}
		migrated = next
	}

	var m MetadataFile
	if err := json.Unmarshal(migrated, &m); err != nil {
		return MetadataFile{}, fmt.Errorf("parse metadata file: %w", err)
	}
	if err := Validate(&m); err != nil {
		return MetadataFile{}, err
	}

	if version < SchemaVersion {
		if err := s.Write(m); err != nil {
			return MetadataFile{}, fmt.Errorf("persist migrated metadata: %w", err)
		}
	}

	return m, nil
}

// backupOriginal copies raw to "<name>.bak.<unix-ts>" next to the
// metadata file, incrementing the timestamp suffix until a name that
// does not already exist is found.
func (s *Store) backupOriginal(raw []byte) error {
	ts := time.Now().Unix()
	for {
		candidate := fmt.Sprintf("%s.bak.%d", s.Path, ts)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return os.WriteFile(candidate, raw, 0o644)
		}
		ts++
	}
}

// Write validates m and persists it atomically: serialize to a unique
// temp file in the same directory, fsync the file, rename over the
// target, then fsync the containing directory. If any step fails the
// temp file is removed and the on-disk value is left untouched.
func (s *Store) Write(m MetadataFile) error {
	if err := Validate(&m); err != nil {
		return err
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create metadata dir: %w", err)
	}

	encoded, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".workspaces.json.tmp-*")
	if err != nil {
		return fmt.Errorf("create temp metadata file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if _, err := tmp.Write(encoded); err != nil {
		cleanup()
		return fmt.Errorf("write temp metadata file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp metadata file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp metadata file: %w", err)
	}

	if err := os.Rename(tmpPath, s.Path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename metadata file into place: %w", err)
	}

	// Best-effort: directory fsync failures never roll back an
	// already-renamed file, since the rename itself succeeded.
	_ = fsyncDir(dir)

	return nil
}

// EnsureRepoTracked idempotently registers the repository rooted at
// cwd in the index, preserving TrackedAt if the repo is already
// present, and persists the result. Must only be called by mutating
// commands (§4.7).
func (s *Store) EnsureRepoTracked(ctx context.Context, cwd string, now time.Time) (Repo, error) {
	d := gitdriver.New(cwd)

	gitDir, err := d.RevParseGitDir(ctx)
	if err != nil {
		return Repo{}, fmt.Errorf("resolve git dir: %w", err)
	}
	repoRoot, err := d.RevParseRepoRoot(ctx)
	if err != nil {
		return Repo{}, fmt.Errorf("resolve repo root: %w", err)
	}
	defaultRemote, err := d.DefaultRemote(ctx)
	if err != nil {
		return Repo{}, fmt.Errorf("resolve default remote: %w", err)
	}

	m, err := s.Read()
	if err != nil {
		return Repo{}, err
	}

	ts := NewTimestamp(now)
	repo, existed := m.Repos[gitDir]
	if !existed {
		repo = Repo{
			GitDir:     gitDir,
			TrackedAt:  ts,
			Workspaces: map[string]Workspace{},
		}
	}
	repo.RepoRoot = repoRoot
	repo.DefaultRemote = defaultRemote
	repo.UpdatedAt = ts
	if repo.Workspaces == nil {
		repo.Workspaces = map[string]Workspace{}
	}

	if m.Repos == nil {
		m.Repos = map[string]Repo{}
	}
	m.Repos[gitDir] = repo

	if err := s.Write(m); err != nil {
		return Repo{}, err
	}
	return repo, nil
}
