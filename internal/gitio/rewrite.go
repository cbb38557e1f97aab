package gitio

import (
	"context"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// RewriteOptions controls a commit rewrite.
type RewriteOptions struct {
	NewParents []CommitID
	NewTree    CommitID // zero means keep the original tree
	NewMessage string   // empty means keep the original message
	GPGSign    bool
}

// Rewrite produces a new commit object preserving the author identity,
// updating the committer to the local identity and timestamp, and
// optionally GPG-signing (spec.md §4.1). It never mutates the source
// commit; Git objects are immutable.
func (r *Repo) Rewrite(ctx context.Context, id CommitID, opts RewriteOptions) (CommitID, error) {
	src, err := r.commitObject(id)
	if err != nil {
		return CommitID{}, fmt.Errorf("read commit to rewrite: %w", err)
	}

	name, email, err := r.LocalIdentity(ctx)
	if err != nil {
		name, email = src.Committer.Name, src.Committer.Email
	}

	msg := src.Message
	if opts.NewMessage != "" {
		msg = opts.NewMessage
	}

	tree := src.TreeHash
	if !opts.NewTree.IsZero() {
		tree = opts.NewTree.hash
	}

	parents := make([]plumbing.Hash, 0, len(opts.NewParents))
	for _, p := range opts.NewParents {
		parents = append(parents, p.hash)
	}

	newCommit := &object.Commit{
		Author:       src.Author,
		Committer:    object.Signature{Name: name, Email: email, When: time.Now()},
		Message:      msg,
		TreeHash:     tree,
		ParentHashes: parents,
	}

	if opts.GPGSign {
		// Signing requires a configured signing key and the `git` binary's
		// own commit path; go-git's object encoder has no GPG signing hook
		// wired to gpg-agent, so a signed rewrite shells out instead.
		return r.rewriteSignedViaCLI(ctx, newCommit)
	}

	obj := r.gogit.Storer.NewEncodedObject()
	if err := newCommit.Encode(obj); err != nil {
		return CommitID{}, fmt.Errorf("encode rewritten commit: %w", err)
	}
	hash, err := r.gogit.Storer.SetEncodedObject(obj)
	if err != nil {
		return CommitID{}, fmt.Errorf("store rewritten commit: %w", err)
	}
	return CommitID{hash: hash}, nil
}

// rewriteSignedViaCLI builds the rewritten commit's tree/parents but
// delegates the actual signed-commit creation to `git commit-tree -S`,
// since go-git cannot produce a GPG signature itself.
func (r *Repo) rewriteSignedViaCLI(ctx context.Context, c *object.Commit) (CommitID, error) {
	args := []string{"commit-tree", "-S", c.TreeHash.String()}
	for _, p := range c.ParentHashes {
		args = append(args, "-p", p.String())
	}
	env := []string{
		"GIT_AUTHOR_NAME=" + c.Author.Name,
		"GIT_AUTHOR_EMAIL=" + c.Author.Email,
		"GIT_AUTHOR_DATE=" + c.Author.When.Format(time.RFC3339),
		"GIT_COMMITTER_NAME=" + c.Committer.Name,
		"GIT_COMMITTER_EMAIL=" + c.Committer.Email,
		"GIT_COMMITTER_DATE=" + c.Committer.When.Format(time.RFC3339),
	}
	out, err := r.run.runWithEnvStdin(ctx, env, c.Message, args...)
	if err != nil {
		return CommitID{}, fmt.Errorf("signed commit-tree: %w", err)
	}
	return NewCommitID(out), nil
}
