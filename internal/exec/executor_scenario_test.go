package exec_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stacktool.dev/stk/internal/config"
	stkexec "stacktool.dev/stk/internal/exec"
	"stacktool.dev/stk/internal/gitio"
	"stacktool.dev/stk/internal/graph"
	"stacktool.dev/stk/internal/plan"
	"stacktool.dev/stk/internal/protect"
	"stacktool.dev/stk/internal/snapshot"
	"stacktool.dev/stk/internal/stackmodel"
	"stacktool.dev/stk/internal/testutil"
)

// runGit runs a git subcommand for remote-fixture setup this test needs
// that testutil.GitRepo doesn't wrap (bare init, clone, multi-remote push).
func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoErrorf(t, err, "git %v: %s", args, out)
}

// gitShowOutput returns a committed blob's content without touching the
// working tree, since rewrites in this design never check one out.
func gitShowOutput(t *testing.T, dir, rev string) string {
	t.Helper()
	cmd := exec.Command("git", "show", rev)
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err)
	return string(out)
}

func writeAndCommit(t *testing.T, dir, message string) {
	t.Helper()
	path := filepath.Join(dir, "trunk.txt")
	require.NoError(t, os.WriteFile(path, []byte(message), 0o644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", message)
}

// buildStack is a small harness shared by these scenario tests: it opens
// the fixture, builds the graph, classifies protection, and discovers
// stacks, returning everything a rebase plan needs.
func buildStack(t *testing.T, dir string, cfg config.Config) (*gitio.Repo, *graph.Graph, []stackmodel.Stack) {
	t.Helper()
	repo, err := gitio.Open(dir)
	require.NoError(t, err)

	g, err := graph.Build(context.Background(), repo, graph.BuildOptions{
		PullRemote: cfg.PullRemote,
		PushRemote: cfg.PushRemote,
	})
	require.NoError(t, err)

	head, _, err := repo.Head()
	require.NoError(t, err)
	headIdx := g.IndexOf(head)

	protect.Classify(g, headIdx, protect.Rules{
		ProtectedBranchGlobs: cfg.ProtectedBranchGlobs,
		ForeignProtection:    cfg.ForeignProtection,
		Now:                  time.Now(),
	})

	stacks := stackmodel.Discover(g, stackmodel.Options{
		ProtectedBranchGlobs: cfg.ProtectedBranchGlobs,
		PullRemote:           cfg.PullRemote,
	})
	return repo, g, stacks
}

// TestRebasePlan_MovesStackOntoUpdatedTrunk covers spec.md §8's base
// scenario: trunk moves, the feature stack's base is stale, rebase
// produces rewrites and the branch ref lands on the new tip.
func TestRebasePlan_MovesStackOntoUpdatedTrunk(t *testing.T) {
	dir := t.TempDir()
	repo, err := testutil.NewGitRepo(dir)
	require.NoError(t, err)

	require.NoError(t, repo.CreateChangeAndCommit("base", ""))
	require.NoError(t, repo.CreateAndCheckoutBranch("feature"))
	require.NoError(t, repo.CreateChangeAndCommit("feature work", "f1"))
	require.NoError(t, repo.CheckoutBranch("main"))

	// spec.md §4.4 step 3 resolves onto to the remote tip of the base
	// branch, not the local tip, so the scenario needs a real remote
	// that advances independently of this clone.
	bareDir := t.TempDir()
	runGit(t, "", "init", "--bare", bareDir)
	require.NoError(t, repo.RunGitCommand("remote", "add", "origin", bareDir))
	require.NoError(t, repo.RunGitCommand("push", "origin", "main", "feature"))

	otherDir := t.TempDir()
	runGit(t, "", "clone", bareDir, otherDir)
	runGit(t, otherDir, "config", "user.name", "Other User")
	runGit(t, otherDir, "config", "user.email", "other@example.com")
	writeAndCommit(t, otherDir, "trunk moves on")
	runGit(t, otherDir, "push", "origin", "main")

	require.NoError(t, repo.RunGitCommand("fetch", "origin"))

	cfg := config.Defaults()
	gitRepo, g, stacks := buildStack(t, dir, cfg)
	require.Len(t, stacks, 1)
	require.Equal(t, []string{"feature"}, stacks[0].Branches)
	require.NotEqual(t, stacks[0].Base, stacks[0].Onto, "onto must resolve to the advanced remote tip")

	p, err := plan.BuildRebasePlanForStack(g, stacks[0], cfg)
	require.NoError(t, err)
	require.False(t, p.IsEmpty())

	store := snapshot.Open(gitRepo.GitDir())
	ex := stkexec.New(gitRepo, store, false)
	res, err := ex.Apply(context.Background(), p, "test-rebase")
	require.NoError(t, err)
	require.Nil(t, res.Failed)
	require.NotEmpty(t, res.PreSnapshot)
	require.NotEmpty(t, res.PostSnapshot)

	featureTip, err := gitRepo.Resolve("feature")
	require.NoError(t, err)
	isDescendant, err := gitRepo.IsAncestor(context.Background(), stacks[0].Onto, featureTip)
	require.NoError(t, err)
	require.True(t, isDescendant, "feature must descend from the advanced remote trunk after rebase")
}

// TestRebasePlan_SquashesFixupIntoTarget covers spec.md §4.5's squash
// auto-fixup mode: a `fixup!` commit is dropped from the chain and its
// diff merged into its target, rather than replayed as its own commit.
func TestRebasePlan_SquashesFixupIntoTarget(t *testing.T) {
	dir := t.TempDir()
	repo, err := testutil.NewGitRepo(dir)
	require.NoError(t, err)

	require.NoError(t, repo.CreateChangeAndCommit("base", ""))
	require.NoError(t, repo.CreateAndCheckoutBranch("feature"))
	require.NoError(t, repo.CreateChangeAndCommit("feature work", "f1"))
	require.NoError(t, repo.CreateFixupCommit("feature work", "fixup content", "f2"))

	bareDir := t.TempDir()
	runGit(t, "", "init", "--bare", bareDir)
	require.NoError(t, repo.RunGitCommand("remote", "add", "origin", bareDir))
	require.NoError(t, repo.RunGitCommand("push", "origin", "main", "feature"))

	otherDir := t.TempDir()
	runGit(t, "", "clone", bareDir, otherDir)
	runGit(t, otherDir, "config", "user.name", "Other User")
	runGit(t, otherDir, "config", "user.email", "other@example.com")
	writeAndCommit(t, otherDir, "trunk moves on")
	runGit(t, otherDir, "push", "origin", "main")
	require.NoError(t, repo.RunGitCommand("fetch", "origin"))

	cfg := config.Defaults()
	cfg.AutoFixup = config.AutoFixupSquash
	gitRepo, g, stacks := buildStack(t, dir, cfg)
	require.Len(t, stacks, 1)

	p, err := plan.BuildRebasePlanForStack(g, stacks[0], cfg)
	require.NoError(t, err)
	require.False(t, p.IsEmpty())

	var rewrites int
	for _, a := range p.Actions {
		if a.Kind == plan.ActionRewriteCommit {
			rewrites++
		}
	}
	require.Equal(t, 1, rewrites, "the fixup and its target replay as a single rewrite")

	store := snapshot.Open(gitRepo.GitDir())
	ex := stkexec.New(gitRepo, store, false)
	res, err := ex.Apply(context.Background(), p, "test-squash")
	require.NoError(t, err)
	require.Nil(t, res.Failed)

	featureTip, err := gitRepo.Resolve("feature")
	require.NoError(t, err)
	parents, err := gitRepo.Parents(featureTip)
	require.NoError(t, err)
	require.Len(t, parents, 1, "the squashed result has a single parent onto the new base, no separate fixup commit above it")

	content := gitShowOutput(t, dir, featureTip.String()+":f2_test.txt")
	require.Equal(t, "fixup content", content, "the fixup's change must survive the squash")
}

// TestRebasePlan_PreservesMergeWithinStack covers spec.md §4.5: a merge
// commit whose merged-in side is itself within the stack (not protected)
// must be replayed via three-way merge onto the moved base, keeping both
// parents, rather than flattened onto its first-parent line alone.
func TestRebasePlan_PreservesMergeWithinStack(t *testing.T) {
	dir := t.TempDir()
	repo, err := testutil.NewGitRepo(dir)
	require.NoError(t, err)

	require.NoError(t, repo.CreateChangeAndCommit("base", ""))
	require.NoError(t, repo.CreateAndCheckoutBranch("feature"))
	require.NoError(t, repo.CreateChangeAndCommit("feature work", "f1"))
	require.NoError(t, repo.CheckoutBranch("main"))
	require.NoError(t, repo.CreateAndCheckoutBranch("side"))
	require.NoError(t, repo.CreateChangeAndCommit("side work", "s1"))
	require.NoError(t, repo.MergeBranch("feature", "side"))

	bareDir := t.TempDir()
	runGit(t, "", "init", "--bare", bareDir)
	require.NoError(t, repo.RunGitCommand("remote", "add", "origin", bareDir))
	require.NoError(t, repo.RunGitCommand("push", "origin", "main", "feature", "side"))

	otherDir := t.TempDir()
	runGit(t, "", "clone", bareDir, otherDir)
	runGit(t, otherDir, "config", "user.name", "Other User")
	runGit(t, otherDir, "config", "user.email", "other@example.com")
	writeAndCommit(t, otherDir, "trunk moves on")
	runGit(t, otherDir, "push", "origin", "main")
	require.NoError(t, repo.RunGitCommand("fetch", "origin"))

	cfg := config.Defaults()
	gitRepo, g, stacks := buildStack(t, dir, cfg)
	require.Len(t, stacks, 1)
	require.ElementsMatch(t, []string{"feature", "side"}, stacks[0].Branches)

	p, err := plan.BuildRebasePlanForStack(g, stacks[0], cfg)
	require.NoError(t, err)
	require.False(t, p.IsEmpty())

	var mergeActions int
	for _, a := range p.Actions {
		if a.Kind == plan.ActionRewriteCommit && a.IsMerge {
			mergeActions++
		}
	}
	require.Equal(t, 1, mergeActions, "the merge commit must replay as its own merge rewrite")

	store := snapshot.Open(gitRepo.GitDir())
	ex := stkexec.New(gitRepo, store, false)
	res, err := ex.Apply(context.Background(), p, "test-merge")
	require.NoError(t, err)
	require.Nil(t, res.Failed)

	featureTip, err := gitRepo.Resolve("feature")
	require.NoError(t, err)
	parents, err := gitRepo.Parents(featureTip)
	require.NoError(t, err)
	require.Len(t, parents, 2, "the rebased merge commit keeps both parents")

	sideTip, err := gitRepo.Resolve("side")
	require.NoError(t, err)
	require.Contains(t, parents, sideTip, "the merge's second parent must be the rebased side branch, not the stale original")

	content := gitShowOutput(t, dir, featureTip.String()+":s1_test.txt")
	require.Equal(t, "side work", content, "the merged-in side's content must survive the rebase")
}

// TestRebasePlan_IsIdempotentWhenNothingMoved covers spec.md §8's
// idempotence requirement: re-planning an already up-to-date stack
// produces an empty plan (no snapshot, no rewrites).
func TestRebasePlan_IsIdempotentWhenNothingMoved(t *testing.T) {
	dir := t.TempDir()
	repo, err := testutil.NewGitRepo(dir)
	require.NoError(t, err)

	require.NoError(t, repo.CreateChangeAndCommit("base", ""))
	require.NoError(t, repo.CreateAndCheckoutBranch("feature"))
	require.NoError(t, repo.CreateChangeAndCommit("feature work", "f1"))

	cfg := config.Defaults()
	_, g, stacks := buildStack(t, dir, cfg)
	require.Len(t, stacks, 1)

	p, err := plan.BuildRebasePlanForStack(g, stacks[0], cfg)
	require.NoError(t, err)
	require.True(t, p.IsEmpty(), "nothing changed, plan must be empty")
}
