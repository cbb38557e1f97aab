package plan

import (
	"sort"

	"stacktool.dev/stk/internal/config"
	"stacktool.dev/stk/internal/graph"
	"stacktool.dev/stk/internal/stackerrors"
	"stacktool.dev/stk/internal/stackmodel"
)

// chainEntry is one commit's planned disposition within a branch's
// linearization, after fixup handling has been applied.
type chainEntry struct {
	idx         int
	squashFrom  []int // indices of fixup commits to merge into this one (squash mode)
	droppedOnto int   // -1 normally; if this entry is a squashed fixup, the idx it was merged into

	// mergeOther is the arena index of a merge commit's non-first-parent
	// side, when that side is within the stack (not itself protected) and
	// so must be preserved by replaying the merge via three-way merge
	// rather than flattening to the first-parent line alone (spec.md §4.5).
	// -1 for an ordinary (non-merge, or merge-of-protected) entry.
	mergeOther int
}

// branchChain is spec.md §4.5's "linearization of commits per branch above
// base", post fixup-handling.
type branchChain struct {
	name    string
	entries []chainEntry
	// reordered is true when fixup handling actually changed this chain's
	// shape (a fixup was moved or squashed away), independent of whether
	// the stack's base itself moved.
	reordered bool
}

// buildChains computes, for every branch in stack (parent branches first),
// the ordered list of commits to replay, with fixup commits already
// relocated/merged per cfg.AutoFixup (spec.md §4.5 "Fix-up handling").
// Excludes merges of protected commits; merges wholly within the stack are
// kept in place (single chain entry, replayed via the executor's 3-way
// merge path).
func buildChains(g *graph.Graph, stack stackmodel.Stack, cfg config.Config) ([]branchChain, error) {
	order := orderBranchesByDepth(g, stack)

	rawChains := map[string][]int{}
	mergeOthers := map[string]map[int]int{}
	for _, name := range order {
		raw, mergeOther, err := firstParentChain(g, g.Branches[name], stack.BaseIdx)
		if err != nil {
			return nil, err
		}
		rawChains[name] = raw
		mergeOthers[name] = mergeOther
	}

	chains := make([]branchChain, 0, len(order))
	for _, name := range order {
		raw := rawChains[name]
		g.AnnotateFixupTargets(raw)

		entries, err := applyFixupPolicy(g, raw, cfg.AutoFixup)
		if err != nil {
			return nil, err
		}
		mergeOther := mergeOthers[name]
		for i := range entries {
			if other, ok := mergeOther[entries[i].idx]; ok {
				entries[i].mergeOther = other
			} else {
				entries[i].mergeOther = -1
			}
		}

		reordered := len(entries) != len(raw)
		for i := 0; !reordered && i < len(entries); i++ {
			if entries[i].idx != raw[i] {
				reordered = true
			}
		}
		chains = append(chains, branchChain{name: name, entries: entries, reordered: reordered})
	}
	return chains, nil
}

// firstParentChain returns node indices from just-above-base (exclusive)
// to tip (inclusive), oldest first, along with the arena index of the
// non-first-parent side of any merge commit encountered whose merged-in
// side is within the stack (i.e. not protected) — spec.md §4.5's "merges
// within the stack are preserved by replaying via three-way merge",
// "excluding merges of protected commits" (those are left unmarked here
// and so simply flatten to their first-parent line like any other
// commit). It refuses (stackerrors.ErrProtectedWrite) if a protected
// commit is ever found within the range to be rewritten — the planner
// must never place one in a rewrite chain (spec.md §8 Safety).
func firstParentChain(g *graph.Graph, tipIdx, baseIdx int) ([]int, map[int]int, error) {
	var rev []int
	mergeOther := map[int]int{}
	cur := tipIdx
	for cur != baseIdx {
		if g.Nodes[cur].Protected {
			return nil, nil, stackerrors.ErrProtectedWrite
		}
		rev = append(rev, cur)
		parents := g.Nodes[cur].Parents
		if len(parents) == 0 {
			break
		}
		if len(parents) > 1 && !g.Nodes[parents[1]].Protected {
			mergeOther[cur] = parents[1]
		}
		cur = parents[0]
	}
	// reverse to oldest-first
	out := make([]int, len(rev))
	for i, v := range rev {
		out[len(rev)-1-i] = v
	}
	return out, mergeOther, nil
}

// orderBranchesByDepth sorts stack.Branches so that a branch whose tip is
// an ancestor of another branch's tip comes first (spec.md §4.5 "parent
// branches first").
func orderBranchesByDepth(g *graph.Graph, stack stackmodel.Stack) []string {
	names := append([]string(nil), stack.Branches...)
	depth := map[string]int{}
	for _, n := range names {
		depth[n] = g.DistanceTo(g.Branches[n], stack.BaseIdx)
	}
	sort.SliceStable(names, func(i, j int) bool {
		if depth[names[i]] != depth[names[j]] {
			return depth[names[i]] < depth[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// applyFixupPolicy rewrites a raw oldest-first commit list into the
// planned chain under the configured auto-fixup mode.
func applyFixupPolicy(g *graph.Graph, raw []int, mode config.AutoFixupMode) ([]chainEntry, error) {
	if mode == config.AutoFixupIgnore {
		entries := make([]chainEntry, len(raw))
		for i, idx := range raw {
			entries[i] = chainEntry{idx: idx, droppedOnto: -1, mergeOther: -1}
		}
		return entries, nil
	}

	// targetOf maps a fixup commit's index to its resolved target index,
	// validated to be present and earlier in raw (spec.md §9: ambiguous or
	// cross-branch resolution fails rather than guesses).
	targetOf := map[int]int{}
	for _, idx := range raw {
		if g.Nodes[idx].FixupTarget < 0 {
			continue
		}
		target := g.Nodes[idx].FixupTarget
		if !containsIdx(raw, target) {
			return nil, &ambiguousFixupError{commit: g.Nodes[idx].ID.String()}
		}
		targetOf[idx] = target
	}

	switch mode {
	case config.AutoFixupMove:
		return moveFixups(raw, targetOf), nil
	case config.AutoFixupSquash:
		return squashFixups(raw, targetOf), nil
	default:
		return nil, stackerrors.NewConfigError("stack.auto-fixup", "unknown mode", nil)
	}
}

func containsIdx(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// moveFixups reorders raw so each fixup commit sits immediately after its
// target, preserving relative order otherwise.
func moveFixups(raw []int, targetOf map[int]int) []chainEntry {
	isFixup := make(map[int]bool, len(targetOf))
	for idx := range targetOf {
		isFixup[idx] = true
	}

	var out []int
	for _, idx := range raw {
		if isFixup[idx] {
			continue
		}
		out = append(out, idx)
		for _, idx2 := range raw {
			if isFixup[idx2] && targetOf[idx2] == idx {
				out = append(out, idx2)
			}
		}
	}

	entries := make([]chainEntry, len(out))
	for i, idx := range out {
		entries[i] = chainEntry{idx: idx, droppedOnto: -1, mergeOther: -1}
	}
	return entries
}

// squashFixups drops each fixup commit from the chain and records it as a
// merge source on its target. squashSources is built by walking raw in
// its original (already-deterministic) chain order rather than ranging
// over targetOf directly — map iteration order is randomized per process,
// and the Planner is required to be pure and deterministic (spec.md §5,
// §8), so two fixups sharing a target must always merge in the same
// order run over run.
func squashFixups(raw []int, targetOf map[int]int) []chainEntry {
	squashSources := map[int][]int{}
	for _, idx := range raw {
		if target, isFixup := targetOf[idx]; isFixup {
			squashSources[target] = append(squashSources[target], idx)
		}
	}

	var entries []chainEntry
	for _, idx := range raw {
		if _, isFixup := targetOf[idx]; isFixup {
			continue // dropped; merged into its target below
		}
		entries = append(entries, chainEntry{
			idx:         idx,
			squashFrom:  squashSources[idx],
			droppedOnto: -1,
			mergeOther:  -1,
		})
	}
	return entries
}

type ambiguousFixupError struct {
	commit string
}

func (e *ambiguousFixupError) Error() string {
	return "ambiguous fixup target for " + e.commit
}

func (e *ambiguousFixupError) Is(target error) bool {
	return target == stackerrors.ErrAmbiguous
}
