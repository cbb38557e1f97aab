package gitio

import (
	"context"
	"fmt"
	"strings"
)

// PatchID computes a stable patch-id for commit's diff against its first
// parent, ignoring author/committer/time (spec.md §9 Design Notes). Used
// by the Planner's squash-merge detection: a development branch whose
// single commit's patch-id matches a commit freshly landed on trunk is a
// candidate for auto-delete.
func (r *Repo) PatchID(ctx context.Context, id CommitID) (string, error) {
	c, err := r.commitObject(id)
	if err != nil {
		return "", fmt.Errorf("read commit for patch-id: %w", err)
	}
	var diffArgs []string
	if len(c.ParentHashes) == 0 {
		diffArgs = []string{"diff", emptyTreeHash, id.String()}
	} else {
		diffArgs = []string{"diff", c.ParentHashes[0].String(), id.String()}
	}

	diff, err := r.run.run(ctx, diffArgs...)
	if err != nil {
		return "", fmt.Errorf("diff for patch-id: %w", err)
	}

	out, err := r.run.runWithEnvStdin(ctx, nil, diff, "patch-id", "--stable")
	if err != nil {
		return "", fmt.Errorf("patch-id: %w", err)
	}
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], nil
}

// emptyTreeHash is the well-known hash of the empty tree, used to diff a
// root commit against "nothing".
const emptyTreeHash = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
