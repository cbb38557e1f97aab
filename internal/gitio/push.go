package gitio

import (
	"context"
	"fmt"
	"strings"

	"stacktool.dev/stk/internal/stackerrors"
)

// Push pushes branch to remote with a lease: if the remote ref is not at
// expectedRemote, the push fails with ErrNotFastForward rather than force.
// Force is never unconditional (spec.md §4.1).
func (r *Repo) Push(ctx context.Context, branch, remote string, expectedRemote CommitID) error {
	leaseExpr := branch
	if !expectedRemote.IsZero() {
		leaseExpr = fmt.Sprintf("%s:%s", branch, expectedRemote.String())
	}

	_, err := r.run.run(ctx, "push", "--force-with-lease="+leaseExpr, remote, branch+":"+branch)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "stale info") || strings.Contains(msg, "fetch first") || strings.Contains(msg, "rejected") {
			return fmt.Errorf("push %s to %s: %w", branch, remote, stackerrors.ErrNotFastForward)
		}
		return fmt.Errorf("push %s to %s: %w", branch, remote, err)
	}
	return nil
}

// Fetch fetches the given refspecs from remote and returns the resulting
// ref -> CommitID map by re-reading the corresponding remote-tracking refs.
func (r *Repo) Fetch(ctx context.Context, remote string, refspecs []string, prune bool) (map[string]CommitID, error) {
	args := []string{"fetch", remote}
	if prune {
		args = append(args, "--prune")
	}
	args = append(args, refspecs...)

	if _, err := r.run.run(ctx, args...); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", remote, err)
	}

	remotes, err := r.RemoteBranches(remote)
	if err != nil {
		return nil, err
	}
	result := make(map[string]CommitID, len(remotes))
	for _, rr := range remotes {
		result[rr.Branch] = rr.ID
	}
	return result, nil
}
