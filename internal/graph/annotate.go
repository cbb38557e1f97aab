package graph

import "strings"

var wipPrefixes = []string{"WIP:", "WIP ", "wip ", "draft:", "Draft:"}

// IsWIPSummary reports whether a commit summary marks it not-ready per
// spec.md §4.2.
func IsWIPSummary(summary string) bool {
	if summary == "WIP" {
		return true
	}
	for _, p := range wipPrefixes {
		if strings.HasPrefix(summary, p) {
			return true
		}
	}
	return false
}

// FixupSubject returns the target subject a `fixup!` commit names, and
// whether summary is a fixup commit at all.
func FixupSubject(summary string) (target string, isFixup bool) {
	const prefix = "fixup! "
	if !strings.HasPrefix(summary, prefix) {
		return "", false
	}
	return strings.TrimPrefix(summary, prefix), true
}

// AnnotateWIPAndForeign fills in the WIP and Foreign annotations for every
// node, and the immutable-set Protected flags are left to the protect
// package (it needs config the graph package doesn't depend on).
// localEmail is the local user's configured email (spec.md §4.3 rule 3);
// headIdx is excluded from the foreign rule per spec.md §4.3.
func (g *Graph) AnnotateWIPAndForeign(localEmail string, headIdx int) {
	for i := range g.Nodes {
		n := &g.Nodes[i]
		n.WIP = IsWIPSummary(n.Commit.Summary)
		if i != headIdx && localEmail != "" {
			n.Foreign = !strings.EqualFold(n.Commit.Committer().Email, localEmail)
		}
	}
}

// AnnotateFixupTargets resolves each fixup commit's target by walking
// backwards through order from the fixup's own position, matching the
// target's subject (spec.md §4.2, §9 "documented behavior"). order is one
// branch's oldest-first linearization, supplied by the caller since
// "backwards along its branch" depends on which branch is being resolved;
// internal/plan/chain.go's buildChains passes each branch's first-parent
// chain.
func (g *Graph) AnnotateFixupTargets(order []int) {
	for pos, idx := range order {
		target, isFixup := FixupSubject(g.Nodes[idx].Commit.Summary)
		if !isFixup {
			continue
		}
		// Nearest ancestor in the supplied order (order is expected
		// oldest-first; walk backwards from pos).
		for j := pos - 1; j >= 0; j-- {
			if g.Nodes[order[j]].Commit.Summary == target {
				g.Nodes[idx].FixupTarget = order[j]
				break
			}
		}
	}
}
