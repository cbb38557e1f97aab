// Package protect implements the Protection Classifier (spec.md §4.3): it
// decides which commits and branches are immutable.
package protect

import (
	"path"
	"time"

	"stacktool.dev/stk/internal/graph"
)

// Rules bundles the classifier's configured thresholds, sourced from the
// Config Contract by the caller (protect has no config dependency of its
// own, matching graph's layering).
type Rules struct {
	ProtectedBranchGlobs []string
	ProtectCommitCount   int
	ProtectCommitAge     time.Duration
	ForeignProtection    bool // default true per spec.md §4.3 rule 3
	Now                  time.Time

	// UserSelectedBranches lists branches the user explicitly named
	// (e.g. via --base/--onto or a positional arg); rules 3-5 never apply
	// to a branch in this set (spec.md §4.3).
	UserSelectedBranches map[string]bool
}

// Classify annotates g's nodes' Protected flags in place, per the five
// rules of spec.md §4.3. headIdx is excluded from rule 3 ("never applies
// to HEAD").
func Classify(g *graph.Graph, headIdx int, rules Rules) {
	protectedBranchTips := map[int]bool{}
	for name, idx := range g.Branches {
		if MatchesAnyGlob(name, rules.ProtectedBranchGlobs) {
			protectedBranchTips[idx] = true
		}
	}
	for key, idx := range g.RemoteTips {
		if MatchesAnyGlob(key.Branch, rules.ProtectedBranchGlobs) {
			protectedBranchTips[idx] = true
		}
	}

	// Rule 1 + 2: tips matching a glob, and everything reachable from them.
	for tipIdx := range protectedBranchTips {
		markReachable(g, tipIdx)
	}

	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Protected {
			continue
		}
		if branchSelectedByUser(n, rules.UserSelectedBranches) {
			continue // rules 3-5 never apply to a user-selected branch
		}
		if rules.ForeignProtection && n.Foreign && i != headIdx { // rule 3 never applies to HEAD
			n.Protected = true
			continue
		}
		if rules.ProtectCommitAge > 0 && !rules.Now.IsZero() {
			age := rules.Now.Sub(n.Commit.Author.When)
			if age > rules.ProtectCommitAge {
				n.Protected = true
			}
		}
	}

	applyCommitCountRule(g, headIdx, rules)
}

// applyCommitCountRule implements rule 5 (protect-commit-count). Branch
// membership (graph.Node.Branches) is only recorded at a branch's tip, so
// this walks each branch's first-parent chain itself rather than relying
// on per-node membership, protecting every commit at or beyond the
// configured distance from its tip — not just the tip commit.
func applyCommitCountRule(g *graph.Graph, headIdx int, rules Rules) {
	if rules.ProtectCommitCount <= 0 {
		return
	}
	for name, tipIdx := range g.Branches {
		if rules.UserSelectedBranches[name] {
			continue // rules 3-5 never apply to a user-selected branch
		}
		dist := 0
		cur := tipIdx
		for {
			if g.Nodes[cur].Protected && cur != tipIdx {
				break // reached protection already established by rules 1/2
			}
			dist++
			if dist >= rules.ProtectCommitCount && cur != headIdx {
				g.Nodes[cur].Protected = true
			}
			if len(g.Nodes[cur].Parents) == 0 {
				break
			}
			cur = g.Nodes[cur].Parents[0]
		}
	}
}

func branchSelectedByUser(n *graph.Node, selected map[string]bool) bool {
	if len(selected) == 0 {
		return false
	}
	for b := range n.Branches {
		if selected[b] {
			return true
		}
	}
	return false
}

func markReachable(g *graph.Graph, idx int) {
	if g.Nodes[idx].Protected {
		return
	}
	g.Nodes[idx].Protected = true
	for _, p := range g.Nodes[idx].Parents {
		markReachable(g, p)
	}
}

// MatchesAnyGlob reports whether name matches any of the given
// path.Match-style globs (spec.md §4.3/§6: "list of globs").
func MatchesAnyGlob(name string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := path.Match(g, name); ok {
			return true
		}
	}
	return false
}

// MostSpecificGlob returns the glob in globs that matches name and has the
// longest literal (non-wildcard) prefix, used by the Stack Discoverer's
// tie-break (spec.md §4.4 step 2).
func MostSpecificGlob(name string, globs []string) (best string, ok bool) {
	bestLen := -1
	for _, g := range globs {
		if matched, _ := path.Match(g, name); !matched {
			continue
		}
		l := literalPrefixLen(g)
		if l > bestLen {
			bestLen = l
			best = g
			ok = true
		}
	}
	return best, ok
}

// GlobSpecificity returns the literal (non-wildcard) prefix length of the
// most specific glob in globs that matches name, and whether any glob
// matched at all. Used by the Stack Discoverer's tie-break (spec.md §4.4
// step 2, "matching the most specific protected glob") to compare
// specificity across two different candidate branch names.
func GlobSpecificity(name string, globs []string) (int, bool) {
	best, ok := MostSpecificGlob(name, globs)
	if !ok {
		return 0, false
	}
	return literalPrefixLen(best), true
}

func literalPrefixLen(glob string) int {
	for i, r := range glob {
		if r == '*' || r == '?' || r == '[' {
			return i
		}
	}
	return len(glob)
}

// BranchIsProtected reports whether the named branch itself is protected:
// its tip is a protected commit and its name matches a protected glob, or
// it has no local writer claim (spec.md §4.3). hasLocalWriterClaim is
// false for remote-only or foreign-owned branches.
func BranchIsProtected(g *graph.Graph, branchName string, globs []string, hasLocalWriterClaim bool) bool {
	tipIdx, ok := g.Branches[branchName]
	if !ok {
		return false
	}
	if !hasLocalWriterClaim {
		return true
	}
	return g.Nodes[tipIdx].Protected && MatchesAnyGlob(branchName, globs)
}
