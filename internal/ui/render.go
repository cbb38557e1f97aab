package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"stacktool.dev/stk/internal/graph"
	"stacktool.dev/stk/internal/plan"
	"stacktool.dev/stk/internal/pushgate"
	"stacktool.dev/stk/internal/stackmodel"
)

// RenderStack renders one stack's branches bottom-to-top, colored by
// depth the way the teacher's StackTreeRenderer colors upstack/downstack
// lines (internal/output/tree.go), annotated with WIP/protected/ready
// markers instead of PR-check state since this core has no hosting-
// platform collaborator.
func RenderStack(g *graph.Graph, stack stackmodel.Stack, headBranch string, pushRemote string) string {
	names := append([]string(nil), stack.Branches...)
	depth := map[string]int{}
	for _, n := range names {
		depth[n] = g.DistanceTo(g.Branches[n], stack.BaseIdx)
	}
	sort.Slice(names, func(i, j int) bool { return depth[names[i]] < depth[names[j]] })

	readiness := map[string]pushgate.Readiness{}
	for _, r := range pushgate.Evaluate(g, stack, pushRemote) {
		readiness[r.Branch] = r
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "base: %s\n", shortID(stack.Base.String()))
	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		d := depth[name]
		style := lipgloss.NewStyle().Foreground(colorForDepth(d)).Bold(true)
		label := style.Render(name)
		if name == headBranch {
			label = styleCurrent.Render(label)
		}

		var tags []string
		tipIdx := g.Branches[name]
		if g.Nodes[tipIdx].Protected {
			tags = append(tags, styleProtected.Render("protected"))
		}
		if r, ok := readiness[name]; ok {
			if r.HasWIP {
				tags = append(tags, styleWIP.Render("wip"))
			}
			if r.Ready {
				tags = append(tags, styleReady.Render("ready"))
			}
		}

		indent := strings.Repeat("  ", i)
		line := indent + "● " + label
		if len(tags) > 0 {
			line += " (" + strings.Join(tags, ", ") + ")"
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderPlan renders a plan.Plan's actions as a flat, human-readable
// dry-run preview, grounded on the teacher's habit of printing each
// underlying git invocation during --dry-run commands, but describing
// primitive actions instead of shell commands since the planner's actions
// do not map one-to-one onto git invocations.
func RenderPlan(p *plan.Plan) string {
	if p.IsEmpty() {
		return "nothing to do\n"
	}
	var sb strings.Builder
	for _, a := range p.Actions {
		switch a.Kind {
		case plan.ActionSnapshot:
			fmt.Fprintf(&sb, "snapshot %q\n", a.Label)
		case plan.ActionRewriteCommit:
			fmt.Fprintf(&sb, "rewrite %s onto %s", shortID(a.OldID.String()), shortID(a.NewParents[0].String()))
			if a.IsMerge {
				fmt.Fprintf(&sb, " (merge, keeping %s)", shortID(a.OtherParent.String()))
			}
			if a.NewMessage != "" {
				fmt.Fprintf(&sb, " (squash, new message)")
			}
			sb.WriteString("\n")
		case plan.ActionMoveBranch:
			fmt.Fprintf(&sb, "move %s -> %s\n", a.Branch, shortID(a.To.String()))
		case plan.ActionCreateBranch:
			fmt.Fprintf(&sb, "create %s at %s\n", a.Branch, shortID(a.To.String()))
		case plan.ActionDeleteBranch:
			fmt.Fprintf(&sb, "delete %s\n", a.Branch)
		case plan.ActionFetch:
			fmt.Fprintf(&sb, "fetch %s\n", a.Remote)
		case plan.ActionPush:
			fmt.Fprintf(&sb, "push %s -> %s\n", a.Branch, a.Remote)
		}
	}
	return sb.String()
}

func shortID(hex string) string {
	if len(hex) > 8 {
		return hex[:8]
	}
	return hex
}
