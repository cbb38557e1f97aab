package gitio

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"stacktool.dev/stk/internal/stackerrors"
)

// BranchRef mirrors spec.md's BranchRef entity: a local branch name, its
// tip, and the tips of that branch on each configured remote.
type BranchRef struct {
	Name       string
	Local      CommitID
	RemoteTips map[string]CommitID // remote name -> tip
	Upstream   string              // "origin/main", empty if untracked
}

// RemoteRef is a read-only remote-tracking ref.
type RemoteRef struct {
	Remote string
	Branch string
	ID     CommitID
}

// Repo is the Repo Abstraction described in spec.md §4.1. It composes a
// go-git repository (for object-graph reads) with a git-binary runner (for
// rebase/push/hooks, which go-git does not implement).
type Repo struct {
	gogit *gogit.Repository
	run   *runner
	root  string
	gitDir string
}

// Open opens the repository rooted at path (or any directory beneath it).
func Open(path string) (*Repo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	repo, err := gogit.PlainOpenWithOptions(absPath, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	wt, err := repo.Worktree()
	root := absPath
	if err == nil {
		root = wt.Filesystem.Root()
	}

	r := &runner{dir: root}
	gitDirOut, err := r.run(context.Background(), "rev-parse", "--git-dir")
	if err != nil {
		return nil, fmt.Errorf("resolve git dir: %w", err)
	}
	gitDir := gitDirOut
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(root, gitDir)
	}

	return &Repo{gogit: repo, run: r, root: root, gitDir: gitDir}, nil
}

// Root returns the working tree root.
func (r *Repo) Root() string { return r.root }

// GitDir returns the repository metadata directory (usually <root>/.git).
func (r *Repo) GitDir() string { return r.gitDir }

// Head returns the commit HEAD points at, and the branch name if HEAD is
// attached (empty string if detached).
func (r *Repo) Head() (CommitID, string, error) {
	head, err := r.gogit.Head()
	if err != nil {
		return CommitID{}, "", fmt.Errorf("resolve HEAD: %w", err)
	}
	branch := ""
	if head.Name().IsBranch() {
		branch = head.Name().Short()
	}
	return CommitID{hash: head.Hash()}, branch, nil
}

// Resolve resolves a branch, remote-tracking branch, tag, or commit-ish to
// a CommitID. This backs --base/--onto (spec.md §6).
func (r *Repo) Resolve(rev string) (CommitID, error) {
	hash, err := r.gogit.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return CommitID{}, fmt.Errorf("%w: %s", stackerrors.ErrUnknownRef, rev)
	}
	return CommitID{hash: *hash}, nil
}

// Commit reads a single commit object.
func (r *Repo) Commit(id CommitID) (Commit, error) {
	oc, err := r.gogit.CommitObject(id.hash)
	if err != nil {
		return Commit{}, fmt.Errorf("%w: %s", stackerrors.ErrUnknownRef, id)
	}
	return fromObjectCommit(oc), nil
}

// Parents returns the parent commits of id.
func (r *Repo) Parents(id CommitID) ([]CommitID, error) {
	c, err := r.Commit(id)
	if err != nil {
		return nil, err
	}
	return c.Parents, nil
}

// MergeBase returns the (first) merge base of a and b.
func (r *Repo) MergeBase(a, b CommitID) (CommitID, error) {
	ca, err := r.gogit.CommitObject(a.hash)
	if err != nil {
		return CommitID{}, fmt.Errorf("merge-base: %w", err)
	}
	cb, err := r.gogit.CommitObject(b.hash)
	if err != nil {
		return CommitID{}, fmt.Errorf("merge-base: %w", err)
	}
	bases, err := ca.MergeBase(cb)
	if err != nil {
		return CommitID{}, fmt.Errorf("merge-base: %w", err)
	}
	if len(bases) == 0 {
		return CommitID{}, fmt.Errorf("no merge base between %s and %s", a, b)
	}
	return CommitID{hash: bases[0].Hash}, nil
}

// IsAncestor reports whether ancestor is an ancestor of (or equal to)
// descendant.
func (r *Repo) IsAncestor(ctx context.Context, ancestor, descendant CommitID) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	_, err := r.run.run(ctx, "merge-base", "--is-ancestor", ancestor.String(), descendant.String())
	if err == nil {
		return true, nil
	}
	var gitErr *stackerrors.GitCommandError
	if ok := asGitCommandError(err, &gitErr); ok {
		return false, nil
	}
	return false, err
}

func asGitCommandError(err error, target **stackerrors.GitCommandError) bool {
	ge, ok := err.(*stackerrors.GitCommandError)
	if ok {
		*target = ge
	}
	return ok
}

// ReachableFrom walks commits reachable from start, stopping at any commit
// in the boundary set (exclusive) or once horizon commits have been
// visited, whichever comes first. This bounds reachability cost on very
// large repositories per spec.md §4.2.
func (r *Repo) ReachableFrom(start CommitID, boundary map[CommitID]bool, horizon int) ([]CommitID, bool, error) {
	visited := make(map[CommitID]bool)
	order := make([]CommitID, 0, 64)
	queue := []CommitID{start}
	truncated := false

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] || boundary[id] {
			continue
		}
		visited[id] = true
		order = append(order, id)
		if horizon > 0 && len(order) >= horizon {
			truncated = len(queue) > 0
			break
		}
		parents, err := r.Parents(id)
		if err != nil {
			return nil, false, err
		}
		queue = append(queue, parents...)
	}
	return order, truncated, nil
}

// LocalBranches lists all local branch refs with their tips.
func (r *Repo) LocalBranches() ([]BranchRef, error) {
	iter, err := r.gogit.Branches()
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	var out []BranchRef
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		upstream, _ := r.upstreamOf(name)
		out = append(out, BranchRef{
			Name:       name,
			Local:      CommitID{hash: ref.Hash()},
			RemoteTips: map[string]CommitID{},
			Upstream:   upstream,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate branches: %w", err)
	}
	return out, nil
}

// RemoteBranches lists remote-tracking refs for the given remote.
func (r *Repo) RemoteBranches(remote string) ([]RemoteRef, error) {
	iter, err := r.gogit.References()
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	prefix := "refs/remotes/" + remote + "/"
	var out []RemoteRef
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := string(ref.Name())
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		branch := strings.TrimPrefix(name, prefix)
		if branch == "HEAD" {
			return nil
		}
		out = append(out, RemoteRef{Remote: remote, Branch: branch, ID: CommitID{hash: ref.Hash()}})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate refs: %w", err)
	}
	return out, nil
}

// Remotes lists configured remote names.
func (r *Repo) Remotes() ([]string, error) {
	remotes, err := r.gogit.Remotes()
	if err != nil {
		return nil, fmt.Errorf("list remotes: %w", err)
	}
	names := make([]string, 0, len(remotes))
	for _, rem := range remotes {
		names = append(names, rem.Config().Name)
	}
	return names, nil
}

func (r *Repo) upstreamOf(branch string) (string, error) {
	remote, err := r.run.run(context.Background(), "config", "branch."+branch+".remote")
	if err != nil || remote == "" {
		return "", nil //nolint:nilerr // untracked branches are normal
	}
	mergeRef, err := r.run.run(context.Background(), "config", "branch."+branch+".merge")
	if err != nil || mergeRef == "" {
		return "", nil //nolint:nilerr
	}
	short := strings.TrimPrefix(mergeRef, "refs/heads/")
	return remote + "/" + short, nil
}

// SetBranch moves (or creates) a local branch to point at id.
func (r *Repo) SetBranch(ctx context.Context, name string, id CommitID) error {
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), id.hash)
	if err := r.gogit.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("set branch %s: %w", name, err)
	}
	return nil
}

// DeleteBranch removes a local branch ref.
func (r *Repo) DeleteBranch(ctx context.Context, name string) error {
	if err := r.gogit.Storer.RemoveReference(plumbing.NewBranchReferenceName(name)); err != nil {
		return fmt.Errorf("delete branch %s: %w", name, err)
	}
	return nil
}

// commitObject exposes the underlying object.Commit to other files in this
// package (e.g. patch-id diffing) without leaking go-git types out of it.
func (r *Repo) commitObject(id CommitID) (*object.Commit, error) {
	return r.gogit.CommitObject(id.hash)
}
