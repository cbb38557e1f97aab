// Package pushgate implements the Push Gate (spec.md §4.7): the
// readiness predicate deciding which branches may be pushed, and the
// push actions to push them with.
package pushgate

import (
	"stacktool.dev/stk/internal/gitio"
	"stacktool.dev/stk/internal/graph"
	"stacktool.dev/stk/internal/plan"
	"stacktool.dev/stk/internal/stackmodel"
)

// Readiness explains why a branch is or isn't ready, for rendering.
type Readiness struct {
	Branch      string
	Ready       bool
	Protected   bool
	HasChild    bool
	HasWIP      bool
	UpToDate    bool // tip already matches the recorded push-remote tip
}

// Evaluate reports readiness for every development branch in stack, per
// spec.md §4.7's four conditions. Fix-up commits never disqualify a
// branch (spec.md §4.7 explicitly), so only WIP markers are checked.
func Evaluate(g *graph.Graph, stack stackmodel.Stack, pushRemote string) []Readiness {
	out := make([]Readiness, 0, len(stack.Branches))
	for _, name := range stack.Branches {
		tipIdx, ok := g.Branches[name]
		if !ok {
			continue
		}
		r := Readiness{Branch: name}
		r.Protected = g.Nodes[tipIdx].Protected
		r.HasChild = hasChild(g, stack, name, tipIdx)
		r.HasWIP = hasWIPAbove(g, tipIdx, stack.BaseIdx)

		key := graph.RemoteBranchKey{Remote: pushRemote, Branch: name}
		remoteIdx, known := g.RemoteTips[key]
		r.UpToDate = known && remoteIdx == tipIdx

		r.Ready = !r.Protected && !r.HasChild && !r.HasWIP && !r.UpToDate
		out = append(out, r)
	}
	return out
}

// hasChild reports whether any other development branch in the stack is
// built on top of name (name's tip is a strict ancestor of theirs).
func hasChild(g *graph.Graph, stack stackmodel.Stack, name string, tipIdx int) bool {
	for _, other := range stack.Branches {
		if other == name {
			continue
		}
		otherIdx, ok := g.Branches[other]
		if !ok || otherIdx == tipIdx {
			continue
		}
		if g.IsAncestorIdx(tipIdx, otherIdx) {
			return true
		}
	}
	return false
}

// hasWIPAbove walks the first-parent chain from tipIdx down to (but not
// including) baseIdx, looking for a WIP-marked commit.
func hasWIPAbove(g *graph.Graph, tipIdx, baseIdx int) bool {
	cur := tipIdx
	for cur != baseIdx {
		if g.Nodes[cur].WIP {
			return true
		}
		if len(g.Nodes[cur].Parents) == 0 {
			break
		}
		cur = g.Nodes[cur].Parents[0]
	}
	return false
}

// BuildPushPlan emits Push actions for every ready branch returned by
// Evaluate, using the recorded push-remote tip (or the zero id, for a
// branch never pushed before) as the lease's expected remote state.
func BuildPushPlan(g *graph.Graph, stack stackmodel.Stack, pushRemote string) *Plan {
	readiness := Evaluate(g, stack, pushRemote)
	p := &Plan{}
	for _, r := range readiness {
		if !r.Ready {
			continue
		}
		var expected gitio.CommitID // zero means "never pushed", no lease baseline
		key := graph.RemoteBranchKey{Remote: pushRemote, Branch: r.Branch}
		if remoteIdx, ok := g.RemoteTips[key]; ok {
			expected = g.Nodes[remoteIdx].ID
		}
		p.Actions = append(p.Actions, plan.Action{
			Kind:           plan.ActionPush,
			Branch:         r.Branch,
			Remote:         pushRemote,
			ExpectedRemote: expected,
			ForBranch:      r.Branch,
		})
	}
	return p
}

// Plan is a local alias avoiding an import cycle concern callers would
// otherwise hit re-exporting plan.Plan; kept distinct so pushgate never
// needs to import the planner's action-construction internals beyond
// plan.Action/plan.Plan themselves.
type Plan = plan.Plan
