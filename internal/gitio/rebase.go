package gitio

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// CherryPickTree produces the tree that would result from applying source
// as if it were committed onto the onto commit, without touching HEAD or
// any branch ref. When the merge is not clean it returns the wrapped git
// error; the executor reports that as a stackerrors.ConflictError.
func (r *Repo) CherryPickTree(ctx context.Context, source, onto CommitID) (CommitID, error) {
	src, err := r.commitObject(source)
	if err != nil {
		return CommitID{}, fmt.Errorf("read source commit: %w", err)
	}
	if len(src.ParentHashes) == 0 {
		return CommitID{}, fmt.Errorf("cannot cherry-pick a root commit's tree")
	}
	base := CommitID{hash: src.ParentHashes[0]}

	out, err := r.run.run(ctx, "merge-tree", "--write-tree", "--merge-base", base.String(), onto.String(), source.String())
	if err != nil {
		return CommitID{}, newConflictOrWrap(err, source, onto)
	}
	// `git merge-tree --write-tree` prints the resulting tree oid as the
	// first line, followed by conflict detail on later lines when exit
	// status is 1 (which run() would have already turned into an error).
	line := strings.SplitN(out, "\n", 2)[0]
	return NewCommitID(line), nil
}

func newConflictOrWrap(err error, source, onto CommitID) error {
	return fmt.Errorf("cherry-pick tree of %s onto %s: %w", source, onto, err)
}

// MergeTree recomputes a merge commit's tree as a three-way merge of
// newFirstParent (the rebased first-parent line) against newSecondParent
// (the merged-in side, itself possibly also rewritten), using merge's own
// original first parent as the merge base — the same "replay this
// commit's own diff against its own original parent" idiom CherryPickTree
// uses for an ordinary commit, generalized to a merge's two parents. This
// is what lets a stack-internal merge commit be replayed onto a moved
// base without flattening it to a single parent (spec.md §4.5).
func (r *Repo) MergeTree(ctx context.Context, merge, newFirstParent, newSecondParent CommitID) (CommitID, error) {
	mc, err := r.commitObject(merge)
	if err != nil {
		return CommitID{}, fmt.Errorf("read merge commit: %w", err)
	}
	if len(mc.ParentHashes) < 2 {
		return CommitID{}, fmt.Errorf("%s is not a merge commit", merge)
	}
	oldFirst := CommitID{hash: mc.ParentHashes[0]}

	out, err := r.run.run(ctx, "merge-tree", "--write-tree", "--merge-base", oldFirst.String(), newFirstParent.String(), newSecondParent.String())
	if err != nil {
		return CommitID{}, newConflictOrWrap(err, merge, newFirstParent)
	}
	line := strings.SplitN(out, "\n", 2)[0]
	return NewCommitID(line), nil
}

// RebaseResult is the outcome of a branch-level rebase.
type RebaseResult int

const (
	RebaseDone RebaseResult = iota
	RebaseConflict
)

// Rebase replays the commits in (from, branch] onto the onto commit using
// `git rebase --onto onto from branch`, which checks out branch in the
// working tree. Any failure is reported as RebaseConflict, after aborting
// a rebase left in progress. Used as a fallback whole-branch replay; the Planner
// normally builds its replay from individual Rewrite calls instead so it
// can interleave fixup handling, but Rebase remains available for simple
// single-branch moves with no in-range rewrites.
func (r *Repo) Rebase(ctx context.Context, branch, onto, from string) (RebaseResult, error) {
	_, err := r.run.run(ctx, "rebase", "--onto", onto, from, branch)
	if err != nil {
		if r.isRebaseInProgress(ctx) {
			_, _ = r.run.run(ctx, "rebase", "--abort")
		}
		return RebaseConflict, nil
	}
	return RebaseDone, nil
}

func (r *Repo) isRebaseInProgress(ctx context.Context) bool {
	if _, err := os.Stat(r.gitDir + "/rebase-merge"); err == nil {
		return true
	}
	if _, err := os.Stat(r.gitDir + "/rebase-apply"); err == nil {
		return true
	}
	return false
}
