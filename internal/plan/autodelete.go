package plan

import (
	"stacktool.dev/stk/internal/gitio"
	"stacktool.dev/stk/internal/graph"
)

// MergedBranch is a development branch the caller has already determined
// was squash-merged into a protected branch, by comparing patch-ids
// (spec.md §4.5 "Auto-delete merged branches"). Patch-id computation
// touches the repository, so it happens before planning; the Planner
// only decides what to do about branches already known to be merged.
type MergedBranch struct {
	Name string
	Tip  gitio.CommitID
}

// BuildAutoDeleteActions emits a DeleteBranch action for each merged
// branch, preceded by a snapshot so the deletion is undoable.
func BuildAutoDeleteActions(g *graph.Graph, merged []MergedBranch) *Plan {
	if len(merged) == 0 {
		return &Plan{}
	}

	p := &Plan{}
	p.Actions = append(p.Actions, Action{Kind: ActionSnapshot, Label: "before auto-delete"})
	for _, m := range merged {
		if _, ok := g.Branches[m.Name]; !ok {
			continue
		}
		p.Actions = append(p.Actions, Action{
			Kind:      ActionDeleteBranch,
			Branch:    m.Name,
			To:        m.Tip,
			ForBranch: m.Name,
		})
	}
	return p
}
