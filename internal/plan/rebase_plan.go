package plan

import (
	"stacktool.dev/stk/internal/config"
	"stacktool.dev/stk/internal/gitio"
	"stacktool.dev/stk/internal/graph"
	"stacktool.dev/stk/internal/stackmodel"
)

// BuildRebasePlanForStack implements spec.md §4.5 "Rebase plan for a
// stack": replay every commit in the stack onto stack.Onto, in an order
// that never rewrites a commit before its new parent exists, then move
// each branch ref to the last commit replayed for it. Returns an empty
// Plan when the stack is already built on its onto commit and no fixup
// commit needs relocating — the rebase-idempotence property from
// spec.md §8 ("no snapshot, no rewrites").
//
// A rewritten commit's NewID isn't known until the executor actually
// creates the object, so NewParents carries the *old* id of whichever
// ancestor action rewrites it; the executor resolves these symbolically
// as it applies actions in order (see internal/exec).
func BuildRebasePlanForStack(g *graph.Graph, stack stackmodel.Stack, cfg config.Config) (*Plan, error) {
	chains, err := buildChains(g, stack, cfg)
	if err != nil {
		return nil, err
	}

	rebasing := stack.Base != stack.Onto
	for _, c := range chains {
		if c.reordered {
			rebasing = true
		}
	}
	if !rebasing {
		return &Plan{}, nil
	}

	var actions []Action
	// newParentOf[idx] is the id a descendant of idx should parent onto
	// once idx itself has been replayed.
	newParentOf := map[int]gitio.CommitID{stack.BaseIdx: stack.Onto}

	for _, chain := range chains {
		parent := newParentOf[stack.BaseIdx]
		tipIdx := -1

		for i := range chain.entries {
			e := &chain.entries[i]
			if resolved, ok := newParentOf[e.idx]; ok {
				// Shared prefix with an already-processed ancestor branch.
				parent = resolved
				tipIdx = e.idx
				continue
			}

			old := g.Nodes[e.idx].ID
			action := Action{
				Kind:            ActionRewriteCommit,
				OldID:           old,
				NewParents:      []gitio.CommitID{parent},
				ForBranch:       chain.name,
				SourceProtected: g.Nodes[e.idx].Protected,
			}
			if len(e.squashFrom) > 0 {
				action.NewMessage = g.Nodes[e.idx].Commit.Summary
				action.HookArgs = squashSourceIDs(g, e.squashFrom)
			}
			if e.mergeOther >= 0 {
				action.IsMerge = true
				action.OtherParent = g.Nodes[e.mergeOther].ID
				if resolved, ok := newParentOf[e.mergeOther]; ok {
					action.OtherParent = resolved
				}
			}
			actions = append(actions, action)

			newParentOf[e.idx] = old // resolved symbolically by the executor
			parent = old
			tipIdx = e.idx
		}

		if tipIdx >= 0 {
			actions = append(actions, Action{
				Kind:   ActionMoveBranch,
				Branch: chain.name,
				To:     g.Nodes[tipIdx].ID,
			})
		}
	}

	full := &Plan{Actions: make([]Action, 0, len(actions)+1)}
	full.Actions = append(full.Actions, Action{Kind: ActionSnapshot, Label: "before rebase"})
	full.Actions = append(full.Actions, actions...)
	return full, nil
}

func squashSourceIDs(g *graph.Graph, idxs []int) []string {
	out := make([]string, len(idxs))
	for i, idx := range idxs {
		out[i] = g.Nodes[idx].ID.String()
	}
	return out
}
