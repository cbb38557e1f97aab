package plan

import "stacktool.dev/stk/internal/gitio"

// ActionKind tags a PrimitiveAction variant (spec.md §3, §9 Design Notes:
// "tagged action variants... avoids inheritance entirely").
type ActionKind int

const (
	ActionSnapshot ActionKind = iota
	ActionRewriteCommit
	ActionMoveBranch
	ActionCreateBranch
	ActionDeleteBranch
	ActionFetch
	ActionPush
)

func (k ActionKind) String() string {
	switch k {
	case ActionSnapshot:
		return "Snapshot"
	case ActionRewriteCommit:
		return "RewriteCommit"
	case ActionMoveBranch:
		return "MoveBranch"
	case ActionCreateBranch:
		return "CreateBranch"
	case ActionDeleteBranch:
		return "DeleteBranch"
	case ActionFetch:
		return "Fetch"
	case ActionPush:
		return "Push"
	default:
		return "Unknown"
	}
}

// Action is the PrimitiveAction sum type from spec.md §3. Only the fields
// relevant to Kind are populated; the executor dispatches on Kind.
type Action struct {
	Kind ActionKind

	// Snapshot
	Label string

	// RewriteCommit
	OldID      gitio.CommitID
	NewID      gitio.CommitID // filled in by the executor once applied
	NewParents []gitio.CommitID
	NewMessage string // empty = keep original
	// HookArgs carries squash-mode fixup source commit ids to merge into
	// this one, in chain order (spec.md §4.5 "Fix-up handling"); empty
	// for a plain reparent.
	HookArgs []string

	// IsMerge and OtherParent mark a RewriteCommit action as replaying a
	// merge commit whose non-first-parent side is within the stack
	// (spec.md §4.5: "merges within the stack are preserved by replaying
	// via three-way merge"). OtherParent is symbolic the same way
	// NewParents[0] is — the executor resolves it once that side has
	// itself been rewritten, or leaves it as-is if it hasn't.
	IsMerge     bool
	OtherParent gitio.CommitID

	// SourceProtected is a defense-in-depth flag the planner sets from
	// graph.Node.Protected when it builds the action: the executor refuses
	// to process a RewriteCommit with this set (spec.md §8 Safety, "no
	// protected commit's id changes"). The planner itself already refuses
	// to place a protected commit in a rewrite chain, so this should
	// never be true in practice.
	SourceProtected bool

	// MoveBranch / CreateBranch / DeleteBranch
	Branch string
	To     gitio.CommitID

	// Fetch
	Remote   string
	Refspecs []string
	Prune    bool

	// Push
	ExpectedRemote gitio.CommitID

	// Diagnostics: which branch this action is acting on behalf of, for
	// rendering and for the executor's partial-failure report.
	ForBranch string
}

// Plan is the ordered list of actions the Planner produces.
type Plan struct {
	Actions []Action
}

// IsEmpty reports whether the plan has no actions at all (used by the
// rebase-idempotence testable property: "no snapshot, no rewrites").
func (p Plan) IsEmpty() bool {
	return len(p.Actions) == 0
}
