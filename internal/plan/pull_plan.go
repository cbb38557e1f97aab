package plan

import (
	"stacktool.dev/stk/internal/config"
	"stacktool.dev/stk/internal/graph"
	"stacktool.dev/stk/internal/stackmodel"
)

// BuildPullPlan implements spec.md §4.5 "Pull sequencing": fetch the pull
// remote, fast-forward local protected branches that are plain ancestors
// of their new remote tips, then rebase every stack whose base moved.
// The fast-forward targets and the rebase plans are computed from g and
// stacks as passed in, that is from the remote-tracking tips recorded
// before the leading Fetch action runs; internal/cli's pull command builds
// them once, before fetching, and does not rediscover after the fetch, so
// remote changes that the Fetch itself brings in are not reflected in the
// same plan.
func BuildPullPlan(g *graph.Graph, stacks []stackmodel.Stack, cfg config.Config, protectedBranches []string) (*Plan, error) {
	// spec.md §6: "--pull" is fetch + protected fast-forward + rebase
	// *without* auto-fixup, regardless of the user's configured default.
	cfg.AutoFixup = config.AutoFixupIgnore

	p := &Plan{}
	p.Actions = append(p.Actions, Action{
		Kind:     ActionFetch,
		Remote:   cfg.PullRemote,
		Refspecs: nil, // nil = default refspec for the remote
		Prune:    true,
	})

	for _, name := range protectedBranches {
		localIdx, ok := g.Branches[name]
		if !ok {
			continue
		}
		key := graph.RemoteBranchKey{Remote: cfg.PullRemote, Branch: name}
		remoteIdx, ok := g.RemoteTips[key]
		if !ok || remoteIdx == localIdx {
			continue
		}
		if g.IsAncestorIdx(localIdx, remoteIdx) {
			p.Actions = append(p.Actions, Action{
				Kind:      ActionMoveBranch,
				Branch:    name,
				To:        g.Nodes[remoteIdx].ID,
				ForBranch: name,
			})
		}
	}

	for _, stack := range stacks {
		rebasePlan, err := BuildRebasePlanForStack(g, stack, cfg)
		if err != nil {
			return nil, err
		}
		for _, a := range rebasePlan.Actions {
			if a.Kind == ActionSnapshot {
				continue // one snapshot per pull, not one per stack
			}
			p.Actions = append(p.Actions, a)
		}
	}

	if len(p.Actions) <= 1 {
		// Only the Fetch action; nothing moved or rewrote.
		return p, nil
	}

	withSnapshot := &Plan{Actions: make([]Action, 0, len(p.Actions)+1)}
	withSnapshot.Actions = append(withSnapshot.Actions, Action{Kind: ActionSnapshot, Label: "before pull"})
	withSnapshot.Actions = append(withSnapshot.Actions, p.Actions...)
	return withSnapshot, nil
}
