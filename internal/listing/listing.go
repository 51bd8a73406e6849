// Package listing renders the deterministic table views behind the
// `list` and `status` commands (spec §4.8). Row content and sort order
// never depend on the terminal; only the border/header styling does,
// via TTY-gated charmbracelet/lipgloss.
package listing

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/krscott/gitcuttle/internal/metadata"
	"github.com/krscott/gitcuttle/internal/remotestatus"
)

// unknownField is the placeholder spec §4.8 mandates for any value
// that cannot be resolved.
const unknownField = "?"

// Row is one rendered workspace line.
type Row struct {
	Branch       string
	Kind         string
	BaseRef      string
	UpstreamRef  string
	Ahead        string
	Behind       string
	PullRequest  string
	WorktreePath string
}

var columnHeaders = []string{"BRANCH", "KIND", "BASE", "UPSTREAM", "AHEAD", "BEHIND", "PR", "WORKTREE"}

// BuildRows converts a repo and its resolved remote status into sorted
// Rows, substituting "?" for every unresolved field.
func BuildRows(repo metadata.Repo, aheadBehind map[string]remotestatus.AheadBehind, pullRequests map[string]remotestatus.PullRequest) []Row {
	branches := make([]string, 0, len(repo.Workspaces))
	for branch := range repo.Workspaces {
		branches = append(branches, branch)
	}
	sort.Strings(branches)

	rows := make([]Row, 0, len(branches))
	for _, branch := range branches {
		ws := repo.Workspaces[branch]

		upstream := unknownField
		ahead := unknownField
		behind := unknownField
		if ab, ok := aheadBehind[branch]; ok {
			if ab.UpstreamRef != "" {
				upstream = ab.UpstreamRef
			}
			if ab.Ahead != nil {
				ahead = strconv.Itoa(*ab.Ahead)
			}
			if ab.Behind != nil {
				behind = strconv.Itoa(*ab.Behind)
			}
		}

		pr := unknownField
		if p, ok := pullRequests[branch]; ok && p.Known() {
			pr = string(p.State)
		}

		rows = append(rows, Row{
			Branch:       branch,
			Kind:         string(ws.Kind),
			BaseRef:      orUnknown(ws.BaseRef),
			UpstreamRef:  upstream,
			Ahead:        ahead,
			Behind:       behind,
			PullRequest:  pr,
			WorktreePath: orUnknown(ws.WorktreePath),
		})
	}
	return rows
}

func orUnknown(s string) string {
	if s == "" {
		return unknownField
	}
	return s
}

// RenderTable renders rows as a left-justified plain-text table whose
// column widths are the max of header width and value width, per spec
// §4.8. An empty table renders as "(no tracked workspaces)".
func RenderTable(rows []Row) string {
	if len(rows) == 0 {
		return "(no tracked workspaces)"
	}

	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		table = append(table, []string{r.Branch, r.Kind, r.BaseRef, r.UpstreamRef, r.Ahead, r.Behind, r.PullRequest, r.WorktreePath})
	}

	widths := make([]int, len(columnHeaders))
	for i, h := range columnHeaders {
		widths[i] = len(h)
	}
	for _, row := range table {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = padRight(cell, widths[i])
		}
		b.WriteString(strings.TrimRight(strings.Join(parts, "  "), " "))
		b.WriteString("\n")
	}

	writeRow(columnHeaders)
	for _, row := range table {
		writeRow(row)
	}

	return strings.TrimRight(b.String(), "\n")
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// headerStyle is applied only when stdout is an interactive terminal,
// keeping piped/redirected output byte-identical to RenderTable.
var headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)

// Render renders rows for stdout, styling the header row with
// lipgloss when stdout is a TTY and falling back to the plain table
// otherwise (spec §4.8 plus the ambient TTY-gating rule).
func Render(rows []Row) string {
	plain := RenderTable(rows)
	if len(rows) == 0 || !term.IsTerminal(int(os.Stdout.Fd())) {
		return plain
	}

	lines := strings.SplitN(plain, "\n", 2)
	if len(lines) != 2 {
		return plain
	}
	return fmt.Sprintf("%s\n%s", headerStyle.Render(lines[0]), lines[1])
}
