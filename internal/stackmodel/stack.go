// Package stackmodel implements the Stack Discoverer (spec.md §4.4): it
// groups development branches into stacks and picks each stack's base and
// onto commits.
package stackmodel

import (
	"sort"
	"strings"

	"stacktool.dev/stk/internal/gitio"
	"stacktool.dev/stk/internal/graph"
	"stacktool.dev/stk/internal/protect"
)

// Stack is spec.md §3's Stack entity.
type Stack struct {
	Base       gitio.CommitID
	BaseIdx    int
	Onto       gitio.CommitID
	OntoIdx    int
	Branches   []string
	RootCommit gitio.CommitID
}

// Options configures discovery; sourced from the Config Contract by the
// caller the same way protect.Rules is.
type Options struct {
	ProtectedBranchGlobs []string
	PullRemote           string
	ExplicitOnto         gitio.CommitID // zero if --onto was not passed

	// Upstreams maps a development branch name to its configured upstream
	// ref (e.g. "origin/main"), for the first clause of the base tie-break
	// (spec.md §4.4 step 2). Nil or a missing entry just skips that clause.
	Upstreams map[string]string
}

// Discover groups g's development (non-protected) branches into stacks per
// spec.md §4.4.
func Discover(g *graph.Graph, opts Options) []Stack {
	devBranches := developmentBranches(g, opts.ProtectedBranchGlobs)
	baseOf := map[string]int{} // branch -> base node idx
	for _, b := range devBranches {
		baseOf[b] = closestBase(g, b, opts)
	}

	// Group by base, then split into sibling stacks when branches above
	// the same base have disjoint commit ranges (spec.md §4.4 step 4).
	byBase := map[int][]string{}
	for _, b := range devBranches {
		byBase[baseOf[b]] = append(byBase[baseOf[b]], b)
	}

	var stacks []Stack
	for baseIdx, branches := range byBase {
		for _, group := range splitSiblings(g, branches) {
			ontoIdx := resolveOnto(g, baseIdx, opts)
			stacks = append(stacks, Stack{
				Base:       g.Nodes[baseIdx].ID,
				BaseIdx:    baseIdx,
				Onto:       g.Nodes[ontoIdx].ID,
				OntoIdx:    ontoIdx,
				Branches:   group,
				RootCommit: rootCommitOf(g, group),
			})
		}
	}

	sort.Slice(stacks, func(i, j int) bool {
		return stacks[i].RootCommit.String() < stacks[j].RootCommit.String()
	})
	return stacks
}

func developmentBranches(g *graph.Graph, protectedGlobs []string) []string {
	var out []string
	for name, idx := range g.Branches {
		if g.Nodes[idx].Protected && protect.MatchesAnyGlob(name, protectedGlobs) {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// closestBase implements spec.md §4.4 step 2: the protected ancestor with
// the smallest tip-to-base distance, tie-broken by configured upstream,
// then most-specific protected glob, then lexicographic name.
func closestBase(g *graph.Graph, branch string, opts Options) int {
	tipIdx := g.Branches[branch]
	candidates := protectedAncestors(g, tipIdx)
	if len(candidates) == 0 {
		if g.IsTruncated(tipIdx) {
			// spec.md §4.2: a branch whose reachability was horizon-
			// truncated before finding a protected ancestor gets its own
			// mini-stack rooted at the oldest commit actually seen, not
			// at its own tip.
			return oldestReachable(g, tipIdx)
		}
		return tipIdx // no protected ancestor found; branch is its own root
	}

	best := candidates[0]
	bestDist := g.DistanceTo(tipIdx, best)
	for _, c := range candidates[1:] {
		d := g.DistanceTo(tipIdx, c)
		if d < bestDist || (d == bestDist && preferred(g, c, best, branch, opts)) {
			best, bestDist = c, d
		}
	}
	return best
}

// preferred reports whether a should win over b as the tie-broken base for
// branch, applying spec.md §4.4 step 2's three tie-break clauses in order:
// configured upstream, then most-specific protected glob, then
// lexicographically smallest branch name.
func preferred(g *graph.Graph, a, b int, branch string, opts Options) bool {
	if upstream := opts.Upstreams[branch]; upstream != "" {
		aIsUpstream := nodeMatchesRef(g, a, upstream)
		bIsUpstream := nodeMatchesRef(g, b, upstream)
		if aIsUpstream != bIsUpstream {
			return aIsUpstream
		}
	}

	aName, bName := firstBranchName(g, a), firstBranchName(g, b)
	aSpec, aOk := protect.GlobSpecificity(aName, opts.ProtectedBranchGlobs)
	bSpec, bOk := protect.GlobSpecificity(bName, opts.ProtectedBranchGlobs)
	if aOk != bOk {
		return aOk
	}
	if aOk && bOk && aSpec != bSpec {
		return aSpec > bSpec
	}

	return aName < bName
}

// nodeMatchesRef reports whether idx carries a local or remote-tracking
// branch matching ref (e.g. "origin/main", or a bare local name).
func nodeMatchesRef(g *graph.Graph, idx int, ref string) bool {
	remote, name := splitUpstreamRef(ref)
	if remote == "" {
		return g.Nodes[idx].Branches[name]
	}
	return g.Nodes[idx].RemoteBranches[graph.RemoteBranchKey{Remote: remote, Branch: name}]
}

func splitUpstreamRef(ref string) (remote, name string) {
	if i := strings.Index(ref, "/"); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return "", ref
}

func firstBranchName(g *graph.Graph, idx int) string {
	var names []string
	for n := range g.Nodes[idx].Branches {
		names = append(names, n)
	}
	for k := range g.Nodes[idx].RemoteBranches {
		names = append(names, k.Branch)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// oldestReachable returns the farthest-back commit(s) reachable from
// tipIdx — the graph's roots within the (possibly horizon-bounded) arena —
// picking the lexicographically smallest commit id when more than one
// root exists, for a deterministic result independent of BFS order.
func oldestReachable(g *graph.Graph, tipIdx int) int {
	visited := map[int]bool{}
	queue := []int{tipIdx}
	var roots []int
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		if len(g.Nodes[cur].Parents) == 0 {
			roots = append(roots, cur)
			continue
		}
		queue = append(queue, g.Nodes[cur].Parents...)
	}
	if len(roots) == 0 {
		return tipIdx
	}
	best := roots[0]
	for _, r := range roots[1:] {
		if g.Nodes[r].ID.String() < g.Nodes[best].ID.String() {
			best = r
		}
	}
	return best
}

func protectedAncestors(g *graph.Graph, tipIdx int) []int {
	var out []int
	visited := map[int]bool{}
	queue := []int{tipIdx}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		if g.Nodes[cur].Protected && cur != tipIdx {
			out = append(out, cur)
			continue // don't walk past a protected commit into its own ancestry
		}
		queue = append(queue, g.Nodes[cur].Parents...)
	}
	return out
}

// resolveOnto implements spec.md §4.4 step 3.
func resolveOnto(g *graph.Graph, baseIdx int, opts Options) int {
	if !opts.ExplicitOnto.IsZero() {
		if idx := g.IndexOf(opts.ExplicitOnto); idx >= 0 {
			return idx
		}
	}
	for name := range g.Nodes[baseIdx].Branches {
		key := graph.RemoteBranchKey{Remote: opts.PullRemote, Branch: name}
		if idx, ok := g.RemoteTips[key]; ok {
			return idx
		}
	}
	return baseIdx
}

// splitSiblings divides branches sharing a base into groups whose commit
// ranges above the base are disjoint (spec.md §4.4 step 4).
func splitSiblings(g *graph.Graph, branches []string) [][]string {
	type item struct {
		name string
		tip  int
	}
	items := make([]item, 0, len(branches))
	for _, b := range branches {
		items = append(items, item{name: b, tip: g.Branches[b]})
	}

	groups := make([][]item, 0, len(items))
	for _, it := range items {
		placed := false
		for gi, grp := range groups {
			if shareAncestry(g, it.tip, grp[0].tip) {
				groups[gi] = append(groups[gi], it)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []item{it})
		}
	}

	out := make([][]string, 0, len(groups))
	for _, grp := range groups {
		names := make([]string, 0, len(grp))
		for _, it := range grp {
			names = append(names, it.name)
		}
		sort.Strings(names)
		out = append(out, names)
	}
	return out
}

// shareAncestry reports whether one tip is an ancestor of the other
// (i.e. the two branches are on the same linear chain above their shared
// base, rather than diverging siblings).
func shareAncestry(g *graph.Graph, a, b int) bool {
	return g.IsAncestorIdx(a, b) || g.IsAncestorIdx(b, a)
}

func rootCommitOf(g *graph.Graph, branches []string) gitio.CommitID {
	sort.Strings(branches)
	if len(branches) == 0 {
		return gitio.CommitID{}
	}
	return g.Nodes[g.Branches[branches[0]]].ID
}
