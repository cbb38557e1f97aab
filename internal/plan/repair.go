package plan

import (
	"fmt"

	"stacktool.dev/stk/internal/config"
	"stacktool.dev/stk/internal/graph"
	"stacktool.dev/stk/internal/stackmodel"
)

// Anomaly describes a structural surprise the Stack Discoverer found while
// building stack, surfaced so the caller can warn the user even though the
// rebase plan below already corrects for it (spec.md §4.5 "Repair": since
// stacks are recomputed from the graph on every invocation rather than
// read from stale metadata, repair is "detect and explain", not a
// separate mutation path).
type Anomaly struct {
	Branch  string
	Message string
}

// DetectAnomalies reports branches whose tip is not a descendant of the
// stack's base, or whose first parent isn't the previous branch in the
// stack's depth order — symptoms of someone having manually rebased one
// branch onto an unrelated commit, or of history underneath a branch
// having been force-pushed out from under it.
func DetectAnomalies(g *graph.Graph, stack stackmodel.Stack) []Anomaly {
	var out []Anomaly
	for _, name := range stack.Branches {
		tipIdx, ok := g.Branches[name]
		if !ok {
			out = append(out, Anomaly{Branch: name, Message: "branch ref not found in graph"})
			continue
		}
		if !g.IsAncestorIdx(stack.BaseIdx, tipIdx) {
			out = append(out, Anomaly{
				Branch:  name,
				Message: fmt.Sprintf("tip is not a descendant of stack base %s", stack.Base),
			})
		}
	}
	return out
}

// BuildRepairPlan is the same rebase plan as a normal rebase: since the
// chain is always recomputed from the live graph rather than from cached
// parent/child metadata, realigning a branch that drifted away from its
// stack is just replaying it onto the current onto commit like any other
// out-of-date branch.
func BuildRepairPlan(g *graph.Graph, stack stackmodel.Stack, cfg config.Config) (*Plan, error) {
	return BuildRebasePlanForStack(g, stack, cfg)
}
