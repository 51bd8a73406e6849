package listing

import (
	"strings"
	"testing"

	"github.com/krscott/gitcuttle/internal/metadata"
	"github.com/krscott/gitcuttle/internal/remotestatus"
)

func intPtr(n int) *int { return &n }

func TestBuildRowsSortsByBranchAndFillsUnknown(t *testing.T) {
	repo := metadata.Repo{
		Workspaces: map[string]metadata.Workspace{
			"zeta": {Branch: "zeta", Kind: metadata.KindStandard, BaseRef: "main"},
			"alfa": {Branch: "alfa", Kind: metadata.KindStandard, BaseRef: "main"},
		},
	}

	rows := BuildRows(repo, nil, nil)
	if len(rows) != 2 {
		t.Fatalf("BuildRows() returned %d rows, want 2", len(rows))
	}
	if rows[0].Branch != "alfa" || rows[1].Branch != "zeta" {
		t.Errorf("BuildRows() order = [%s, %s], want [alfa, zeta]", rows[0].Branch, rows[1].Branch)
	}
	if rows[0].UpstreamRef != unknownField || rows[0].Ahead != unknownField || rows[0].PullRequest != unknownField {
		t.Errorf("BuildRows() row = %+v, want unresolved fields as %q", rows[0], unknownField)
	}
}

func TestBuildRowsFillsResolvedAheadBehind(t *testing.T) {
	repo := metadata.Repo{
		Workspaces: map[string]metadata.Workspace{
			"feature/x": {Branch: "feature/x", Kind: metadata.KindStandard, BaseRef: "main"},
		},
	}
	aheadBehind := map[string]remotestatus.AheadBehind{
		"feature/x": {Branch: "feature/x", UpstreamRef: "origin/feature/x", Ahead: intPtr(2), Behind: intPtr(0)},
	}
	prs := map[string]remotestatus.PullRequest{
		"feature/x": {Branch: "feature/x", State: remotestatus.PROpen},
	}

	rows := BuildRows(repo, aheadBehind, prs)
	row := rows[0]
	if row.Ahead != "2" || row.Behind != "0" || row.UpstreamRef != "origin/feature/x" || row.PullRequest != "open" {
		t.Errorf("BuildRows() row = %+v, want resolved ahead/behind/upstream/pr", row)
	}
}

func TestRenderTableEmpty(t *testing.T) {
	if got := RenderTable(nil); got != "(no tracked workspaces)" {
		t.Errorf("RenderTable(nil) = %q, want %q", got, "(no tracked workspaces)")
	}
}

func TestRenderTableColumnWidths(t *testing.T) {
	rows := []Row{
		{Branch: "a-very-long-branch-name", Kind: "standard", BaseRef: "main", UpstreamRef: "?", Ahead: "?", Behind: "?", PullRequest: "?", WorktreePath: "/tmp/a"},
		{Branch: "b", Kind: "octopus", BaseRef: "main", UpstreamRef: "?", Ahead: "?", Behind: "?", PullRequest: "?", WorktreePath: "/tmp/b"},
	}
	out := RenderTable(rows)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("RenderTable() produced %d lines, want 3 (header + 2 rows)", len(lines))
	}
	if !strings.HasPrefix(lines[1], "a-very-long-branch-name") {
		t.Errorf("RenderTable() row 1 = %q, want to start with the long branch name", lines[1])
	}
}
