// Package workspace implements the create/update/absorb/delete/prune
// lifecycle operations named in spec §4.6: the translation of Git
// branch+worktree pairs (including N-way "octopus" merge workspaces)
// into mutations of both the working repository and the metadata
// store. Delete and prune run their steps inside internal/txn
// transactions. Create, update and absorb run their git and metadata
// steps directly: when a later step fails, earlier steps are not
// rolled back.
package workspace

// BlockReason explains why a delete or prune candidate was skipped
// rather than acted on.
type BlockReason string

const (
	BlockCurrentWorkspace BlockReason = "current-workspace"
	BlockWorkspaceDirty   BlockReason = "workspace-dirty"
)
