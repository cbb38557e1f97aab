// Package exec implements the Executor (spec.md §4.6): the single mutator
// in the engine. It applies a plan.Plan strictly in order, holding the
// repository's advisory lock for its whole run, snapshotting before the
// first mutating action and after the last, and stopping immediately on
// any failure rather than attempting to repair or continue.
package exec

import (
	"context"
	"fmt"

	"stacktool.dev/stk/internal/gitio"
	"stacktool.dev/stk/internal/plan"
	"stacktool.dev/stk/internal/snapshot"
	"stacktool.dev/stk/internal/stackerrors"
)

// Executor applies plans to a repository.
type Executor struct {
	repo    *gitio.Repo
	store   *snapshot.Store
	gpgSign bool
}

// New builds an Executor bound to repo, writing snapshots through store.
func New(repo *gitio.Repo, store *snapshot.Store, gpgSign bool) *Executor {
	return &Executor{repo: repo, store: store, gpgSign: gpgSign}
}

// Result reports what happened, whether the plan completed or stopped
// partway through (spec.md §4.6: "branch moves already applied remain").
type Result struct {
	Applied      []plan.Action
	Failed       *plan.Action
	Err          error
	PreSnapshot  string
	PostSnapshot string
}

// Apply applies p under label (used to name its snapshots: "<label>:pre"
// and "<label>:post", e.g. "pull:pre"). Dry-run callers should render p
// themselves and never call Apply.
func (e *Executor) Apply(ctx context.Context, p *plan.Plan, label string) (Result, error) {
	if p.IsEmpty() {
		return Result{}, nil
	}

	lock, err := e.repo.AcquireLock()
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = lock.Release() }()

	res := Result{Applied: make([]plan.Action, 0, len(p.Actions))}
	resolved := map[string]gitio.CommitID{} // symbolic OldID -> actual new CommitID
	var refUpdates []gitio.RefUpdate
	var rewritePairs []gitio.RewritePair

	for i := range p.Actions {
		a := p.Actions[i]
		if ctx.Err() != nil {
			res.Failed = &a
			res.Err = ctx.Err()
			return res, res.Err
		}

		switch a.Kind {
		case plan.ActionSnapshot:
			snap, err := e.takeSnapshot(label + ":pre")
			if err != nil {
				res.Failed = &a
				res.Err = fmt.Errorf("write snapshot: %w", err)
				return res, res.Err
			}
			res.PreSnapshot = snap.Label

		case plan.ActionRewriteCommit:
			if a.SourceProtected {
				res.Failed = &a
				res.Err = stackerrors.ErrProtectedWrite
				return res, res.Err
			}
			newID, err := e.applyRewrite(ctx, a, resolved)
			if err != nil {
				res.Failed = &a
				res.Err = err
				return res, res.Err
			}
			resolved[a.OldID.String()] = newID
			rewritePairs = append(rewritePairs, gitio.RewritePair{Old: a.OldID, New: newID})

		case plan.ActionMoveBranch, plan.ActionCreateBranch:
			to := resolveSymbolic(a.To, resolved)
			if err := e.repo.SetBranch(ctx, a.Branch, to); err != nil {
				res.Failed = &a
				res.Err = err
				return res, res.Err
			}
			refUpdates = append(refUpdates, gitio.RefUpdate{Ref: "refs/heads/" + a.Branch, New: to})

		case plan.ActionDeleteBranch:
			if err := e.repo.DeleteBranch(ctx, a.Branch); err != nil {
				res.Failed = &a
				res.Err = err
				return res, res.Err
			}
			refUpdates = append(refUpdates, gitio.RefUpdate{Ref: "refs/heads/" + a.Branch, Old: a.To})

		case plan.ActionFetch:
			if _, err := e.repo.Fetch(ctx, a.Remote, a.Refspecs, a.Prune); err != nil {
				res.Failed = &a
				res.Err = err
				return res, res.Err
			}

		case plan.ActionPush:
			expected := resolveSymbolic(a.ExpectedRemote, resolved)
			if err := e.repo.Push(ctx, a.Branch, a.Remote, expected); err != nil {
				res.Failed = &a
				res.Err = err
				return res, res.Err
			}

		default:
			res.Failed = &a
			res.Err = fmt.Errorf("unknown action kind %v", a.Kind)
			return res, res.Err
		}

		res.Applied = append(res.Applied, a)
	}

	if err := e.repo.InvokeReferenceTransactionHook(ctx, refUpdates); err != nil {
		res.Err = err
		return res, err
	}
	if err := e.repo.InvokePostRewriteHook(ctx, rewritePairs); err != nil {
		res.Err = err
		return res, err
	}

	snap, err := e.takeSnapshot(label + ":post")
	if err == nil {
		res.PostSnapshot = snap.Label
	}
	return res, nil
}

// applyRewrite replays a commit (and, for squash, any fixups merged into
// it) onto its resolved new parent. Every rewrite — plain reparent or
// squash — goes through CherryPickTree first: a rebase changes what tree
// a commit produces, not just its parent pointer, so the source's diff
// always has to be re-applied onto the new parent's tree (spec.md §4.5's
// squash wording, "merge trees into the target commit", generalizes to
// the single-commit case too). Fixup sources chain through intermediate
// (unreferenced) commit objects so each CherryPickTree step has a real
// commit to merge "onto". A merge commit whose merged-in side is within
// the stack takes a different path: its tree is recomputed as a three-way
// merge of the rebased first-parent line against the (possibly also
// rebased) other side, and the result keeps both parents rather than
// flattening to one (spec.md §4.5).
func (e *Executor) applyRewrite(ctx context.Context, a plan.Action, resolved map[string]gitio.CommitID) (gitio.CommitID, error) {
	cur := resolveSymbolic(a.NewParents[0], resolved)

	if a.IsMerge {
		other := resolveSymbolic(a.OtherParent, resolved)
		tree, err := e.repo.MergeTree(ctx, a.OldID, cur, other)
		if err != nil {
			return gitio.CommitID{}, asConflict(err, a)
		}
		next, err := e.repo.Rewrite(ctx, a.OldID, gitio.RewriteOptions{
			NewParents: []gitio.CommitID{cur, other},
			NewTree:    tree,
			NewMessage: a.NewMessage,
			GPGSign:    e.gpgSign,
		})
		if err != nil {
			return gitio.CommitID{}, asConflict(err, a)
		}
		return next, nil
	}

	sources := append([]string{a.OldID.String()}, a.HookArgs...)
	newParent := cur

	for i, srcStr := range sources {
		src := gitio.NewCommitID(srcStr)
		tree, err := e.repo.CherryPickTree(ctx, src, cur)
		if err != nil {
			return gitio.CommitID{}, asConflict(err, a)
		}
		msg := ""
		parent := cur
		if i == len(sources)-1 {
			msg = a.NewMessage
			parent = newParent
		}
		next, err := e.repo.Rewrite(ctx, src, gitio.RewriteOptions{
			NewParents: []gitio.CommitID{parent},
			NewTree:    tree,
			NewMessage: msg,
			GPGSign:    e.gpgSign && i == len(sources)-1,
		})
		if err != nil {
			return gitio.CommitID{}, asConflict(err, a)
		}
		cur = next
	}
	return cur, nil
}

func asConflict(err error, a plan.Action) error {
	return &stackerrors.ConflictError{Commit: a.OldID.String(), Branch: a.ForBranch, Detail: err.Error()}
}

func resolveSymbolic(id gitio.CommitID, resolved map[string]gitio.CommitID) gitio.CommitID {
	if newID, ok := resolved[id.String()]; ok {
		return newID
	}
	return id
}

func (e *Executor) takeSnapshot(label string) (snapshot.Snapshot, error) {
	head, _, err := e.repo.Head()
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	branches, err := e.repo.LocalBranches()
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	entries := make([]snapshot.Entry, 0, len(branches))
	for _, b := range branches {
		entries = append(entries, snapshot.Entry{Branch: b.Name, Commit: b.Local.String()})
	}
	return e.store.Write(label, head.String(), entries)
}
