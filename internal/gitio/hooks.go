package gitio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stacktool.dev/stk/internal/stackerrors"
)

// RefUpdate describes one ref moving from old to new, for the
// reference-transaction hook's stdin payload.
type RefUpdate struct {
	Ref string
	Old CommitID
	New CommitID
}

// RewritePair is one (old, new) commit id pair for the post-rewrite hook.
type RewritePair struct {
	Old CommitID
	New CommitID
}

// InvokeReferenceTransactionHook runs .git/hooks/reference-transaction for
// a batch of ref updates, feeding "<old> <new> <ref>" lines on stdin as
// githooks(5) specifies. A missing or non-executable hook is not an error.
func (r *Repo) InvokeReferenceTransactionHook(ctx context.Context, updates []RefUpdate) error {
	if !r.hookExists("reference-transaction") {
		return nil
	}
	var sb strings.Builder
	for _, u := range updates {
		fmt.Fprintf(&sb, "%s %s %s\n", u.Old, u.New, u.Ref)
	}
	return r.runHook(ctx, "reference-transaction", []string{"committed"}, sb.String())
}

// InvokePostRewriteHook runs .git/hooks/post-rewrite with the "rewrite"
// argument and "<old> <new>" lines on stdin.
func (r *Repo) InvokePostRewriteHook(ctx context.Context, pairs []RewritePair) error {
	if len(pairs) == 0 || !r.hookExists("post-rewrite") {
		return nil
	}
	var sb strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&sb, "%s %s\n", p.Old, p.New)
	}
	return r.runHook(ctx, "post-rewrite", []string{"rewrite"}, sb.String())
}

func (r *Repo) hookExists(name string) bool {
	path := filepath.Join(r.gitDir, "hooks", name)
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&0111 != 0
}

func (r *Repo) runHook(ctx context.Context, name string, args []string, stdin string) error {
	path := filepath.Join(r.gitDir, "hooks", name)
	out, err := execHook(ctx, path, args, stdin, r.root)
	if err != nil {
		status := exitStatus(err)
		return &stackerrors.HookFailedError{Name: name, Status: status, Output: out}
	}
	return nil
}
