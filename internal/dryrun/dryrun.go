// Package dryrun renders the plan a mutating command would execute,
// without executing it. The delete and prune operations in
// internal/workspace build a Plan instead of touching git or metadata
// when dry-run is requested, from the same block and prune decisions
// the real run uses. Create, update and absorb have no dry-run plan.
package dryrun

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Action is one planned mutation.
type Action struct {
	Op      string
	Target  string
	Details string // "" is left out of the human form and renders as JSON null
}

// Plan is the full set of actions a command would take, plus any
// warnings about candidates it skipped.
type Plan struct {
	Command  string
	Actions  []Action
	Warnings []string
}

// RenderHuman renders plan the way a human reads it on a terminal.
func RenderHuman(plan Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dry-run plan for `%s`:\n", plan.Command)

	if len(plan.Actions) == 0 {
		b.WriteString("No changes planned.")
	} else {
		for i, action := range plan.Actions {
			if action.Details == "" {
				fmt.Fprintf(&b, "%d. %s: %s", i+1, action.Op, action.Target)
			} else {
				fmt.Fprintf(&b, "%d. %s: %s (%s)", i+1, action.Op, action.Target, action.Details)
			}
			if i < len(plan.Actions)-1 || len(plan.Warnings) > 0 {
				b.WriteString("\n")
			}
		}
	}

	if len(plan.Warnings) > 0 {
		b.WriteString("Warnings:")
		for _, w := range plan.Warnings {
			fmt.Fprintf(&b, "\n- %s", w)
		}
	}

	return b.String()
}

// jsonAction and jsonPlan pin nullability exactly to original_source's
// render_json_plan: details is JSON null rather than omitted, and
// warnings is always an array, never null. original_source's
// json.dumps(payload, indent=2, sort_keys=True) sorts every object's
// keys alphabetically regardless of payload insertion order, so the
// struct fields are declared in that same alphabetical order here —
// encoding/json emits struct fields in declaration order, it never
// sorts, so declaration order is the only way to match sort_keys=True.
type jsonAction struct {
	Details *string `json:"details"`
	Op      string  `json:"op"`
	Target  string  `json:"target"`
}

type jsonPlan struct {
	ActionCount int          `json:"action_count"`
	Actions     []jsonAction `json:"actions"`
	Command     string       `json:"command"`
	DryRun      bool         `json:"dry_run"`
	Warnings    []string     `json:"warnings"`
}

// RenderJSON renders plan as the two-space-indented JSON document
// named in spec §6, with deterministic field order guaranteed by
// jsonPlan/jsonAction being plain structs rather than maps.
func RenderJSON(plan Plan) (string, error) {
	actions := make([]jsonAction, len(plan.Actions))
	for i, a := range plan.Actions {
		ja := jsonAction{Op: a.Op, Target: a.Target}
		if a.Details != "" {
			d := a.Details
			ja.Details = &d
		}
		actions[i] = ja
	}

	warnings := plan.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	payload := jsonPlan{
		Command:     plan.Command,
		DryRun:      true,
		ActionCount: len(plan.Actions),
		Actions:     actions,
		Warnings:    warnings,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return "", fmt.Errorf("encode dry-run plan: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
