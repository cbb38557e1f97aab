// Package plan implements the Planner (spec.md §4.5): a pure function from
// (graph, config, user intent) to an ordered list of primitive actions. It
// never touches the repository.
package plan

import (
	"stacktool.dev/stk/internal/config"
	"stacktool.dev/stk/internal/graph"
	"stacktool.dev/stk/internal/stackmodel"
)

// Operation selects which of the planner's sub-procedures to run
// (spec.md §4.5's named sections).
type Operation int

const (
	OpRebase Operation = iota
	OpPull
	OpRepair
	OpAutoDelete
)

// Intent bundles everything the planner needs beyond the graph and
// config: which operation, which stacks it applies to, and facts the
// caller already gathered from the repository (protected branch names
// for pull fast-forwarding, merged branches for auto-delete) since those
// facts require repository reads the planner itself never performs.
type Intent struct {
	Operation         Operation
	Stacks            []stackmodel.Stack
	ProtectedBranches []string
	Merged            []MergedBranch
}

// Build dispatches to the sub-procedure named by intent.Operation and
// concatenates the result for every stack intent names, preserving the
// five ordering invariants from spec.md §4.5:
//  1. a commit is never rewritten before its new parent exists
//  2. a branch ref moves only after every commit it will point at exists
//  3. deletions happen last
//  4. at most one Snapshot per user-visible operation
//  5. Fetch always precedes any rebase it feeds
func Build(g *graph.Graph, cfg config.Config, intent Intent) (*Plan, []Anomaly, error) {
	switch intent.Operation {
	case OpPull:
		p, err := BuildPullPlan(g, intent.Stacks, cfg, intent.ProtectedBranches)
		return p, nil, err

	case OpAutoDelete:
		return BuildAutoDeleteActions(g, intent.Merged), nil, nil

	case OpRepair:
		return buildMulti(g, cfg, intent.Stacks, BuildRepairPlan, true)

	default: // OpRebase
		return buildMulti(g, cfg, intent.Stacks, BuildRebasePlanForStack, false)
	}
}

type stackPlanFunc func(*graph.Graph, stackmodel.Stack, config.Config) (*Plan, error)

func buildMulti(g *graph.Graph, cfg config.Config, stacks []stackmodel.Stack, fn stackPlanFunc, collectAnomalies bool) (*Plan, []Anomaly, error) {
	combined := &Plan{}
	var anomalies []Anomaly
	sawSnapshot := false

	for _, stack := range stacks {
		if collectAnomalies {
			anomalies = append(anomalies, DetectAnomalies(g, stack)...)
		}

		p, err := fn(g, stack, cfg)
		if err != nil {
			return nil, nil, err
		}
		for _, a := range p.Actions {
			if a.Kind == ActionSnapshot {
				if sawSnapshot {
					continue
				}
				sawSnapshot = true
			}
			combined.Actions = append(combined.Actions, a)
		}
	}
	return combined, anomalies, nil
}
