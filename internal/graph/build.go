package graph

import (
	"context"
	"fmt"

	"stacktool.dev/stk/internal/gitio"
)

// BuildOptions configures graph construction. Packages above graph (e.g.
// stackmodel) supply these from the Config Contract; graph itself has no
// dependency on the config package.
type BuildOptions struct {
	// PullRemote and PushRemote name the remotes whose tracking branches
	// are included.
	PullRemote string
	PushRemote string

	// Horizon bounds reachability cost per spec.md §4.2
	// (stack.auto-base-commit-count). Zero means unbounded.
	Horizon int
}

// Build constructs the graph from all local branches, the remote-tracking
// branches of the configured remotes, and the commits reachable from those
// tips up to the horizon or the root, whichever comes first. Branch-tip
// bookkeeping is layered in here; protection is set afterwards by the
// protect package, and WIP/fixup annotation is a separate pass
// (annotate.go) since it needs no reachability walk.
func Build(ctx context.Context, repo *gitio.Repo, opts BuildOptions) (*Graph, error) {
	g := NewGraph()

	localBranches, err := repo.LocalBranches()
	if err != nil {
		return nil, fmt.Errorf("list local branches: %w", err)
	}

	type tip struct {
		kind   string // "local" or "remote"
		name   string
		remote string
		id     gitio.CommitID
	}
	var tips []tip
	for _, b := range localBranches {
		tips = append(tips, tip{kind: "local", name: b.Name, id: b.Local})
	}

	for _, remoteName := range uniqueNonEmpty(opts.PullRemote, opts.PushRemote) {
		remoteBranches, err := repo.RemoteBranches(remoteName)
		if err != nil {
			return nil, fmt.Errorf("list remote branches for %s: %w", remoteName, err)
		}
		for _, rb := range remoteBranches {
			tips = append(tips, tip{kind: "remote", name: rb.Branch, remote: rb.Remote, id: rb.ID})
		}
	}

	for _, t := range tips {
		if err := walkAndLink(ctx, repo, g, t.id, opts.Horizon); err != nil {
			return nil, fmt.Errorf("walk from %s: %w", t.name, err)
		}
		idx := g.IndexOf(t.id)
		if idx < 0 {
			continue
		}
		switch t.kind {
		case "local":
			g.Branches[t.name] = idx
			g.Nodes[idx].Branches[t.name] = true
		case "remote":
			key := RemoteBranchKey{Remote: t.remote, Branch: t.name}
			g.RemoteTips[key] = idx
			g.Nodes[idx].RemoteBranches[key] = true
		}
	}

	return g, nil
}

// walkAndLink loads commits reachable from start (breadth-first, bounded
// by horizon) and wires them into the arena with parent/child edges. A
// commit can be reached from more than one tip; pending records child
// links that are waiting on a not-yet-visited parent so they still get
// wired once that parent is added, regardless of visit order.
func walkAndLink(ctx context.Context, repo *gitio.Repo, g *Graph, start gitio.CommitID, horizon int) error {
	if g.IndexOf(start) >= 0 {
		return nil // already walked from another tip
	}

	queued := map[gitio.CommitID]bool{start: true}
	pending := map[gitio.CommitID][]int{} // parent id -> waiting child indices
	queue := []gitio.CommitID{start}
	count := 0
	branchName := start.String()

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		c, err := repo.Commit(id)
		if err != nil {
			return err
		}
		idx := g.addNode(c)

		for _, waitingChild := range pending[id] {
			g.linkParentChild(waitingChild, idx)
		}
		delete(pending, id)

		count++
		if horizon > 0 && count > horizon {
			g.Truncated[branchName] = true
			continue // keep the node, stop walking further back from it
		}

		for _, p := range c.Parents {
			if parentIdx := g.IndexOf(p); parentIdx >= 0 {
				g.linkParentChild(idx, parentIdx)
				continue
			}
			pending[p] = append(pending[p], idx)
			if !queued[p] {
				queued[p] = true
				queue = append(queue, p)
			}
		}
	}

	return nil
}

func uniqueNonEmpty(values ...string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
