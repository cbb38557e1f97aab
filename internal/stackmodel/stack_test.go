package stackmodel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"stacktool.dev/stk/internal/gitio"
	"stacktool.dev/stk/internal/graph"
	"stacktool.dev/stk/internal/protect"
	"stacktool.dev/stk/internal/stackmodel"
	"stacktool.dev/stk/internal/testutil"
)

func buildClassifiedGraph(t *testing.T, dir string, globs []string) (*gitio.Repo, *graph.Graph) {
	t.Helper()
	repo, err := gitio.Open(dir)
	require.NoError(t, err)
	g, err := graph.Build(context.Background(), repo, graph.BuildOptions{PullRemote: "origin", PushRemote: "origin"})
	require.NoError(t, err)
	head, _, err := repo.Head()
	require.NoError(t, err)
	protect.Classify(g, g.IndexOf(head), protect.Rules{ProtectedBranchGlobs: globs})
	return repo, g
}

// TestDiscover_SingleBranchStack covers spec.md §4.4's basic case: one
// development branch above main groups into one stack whose base is main's
// tip and whose onto falls back to base (no remote tracking ref to follow).
func TestDiscover_SingleBranchStack(t *testing.T) {
	dir := t.TempDir()
	repo, err := testutil.NewGitRepo(dir)
	require.NoError(t, err)
	require.NoError(t, repo.CreateChangeAndCommit("base", ""))
	require.NoError(t, repo.CreateAndCheckoutBranch("feature"))
	require.NoError(t, repo.CreateChangeAndCommit("feature work", "f1"))

	_, g := buildClassifiedGraph(t, dir, []string{"main"})
	stacks := stackmodel.Discover(g, stackmodel.Options{ProtectedBranchGlobs: []string{"main"}})

	require.Len(t, stacks, 1)
	require.Equal(t, []string{"feature"}, stacks[0].Branches)
	require.Equal(t, stacks[0].Base, stacks[0].Onto, "no tracked remote tip, onto falls back to base")
	require.Equal(t, g.Nodes[g.Branches["main"]].ID, stacks[0].Base)
}

// TestDiscover_StackedBranchesShareOneStack covers spec.md §4.4's chained
// case: branch2 built on branch1 built on main groups into a single stack
// containing both branches, sharing one base.
func TestDiscover_StackedBranchesShareOneStack(t *testing.T) {
	dir := t.TempDir()
	repo, err := testutil.NewGitRepo(dir)
	require.NoError(t, err)
	require.NoError(t, repo.CreateChangeAndCommit("base", ""))
	require.NoError(t, repo.CreateAndCheckoutBranch("branch1"))
	require.NoError(t, repo.CreateChangeAndCommit("b1 work", "b1"))
	require.NoError(t, repo.CreateAndCheckoutBranch("branch2"))
	require.NoError(t, repo.CreateChangeAndCommit("b2 work", "b2"))

	_, g := buildClassifiedGraph(t, dir, []string{"main"})
	stacks := stackmodel.Discover(g, stackmodel.Options{ProtectedBranchGlobs: []string{"main"}})

	require.Len(t, stacks, 1)
	require.ElementsMatch(t, []string{"branch1", "branch2"}, stacks[0].Branches)
	require.Equal(t, g.Nodes[g.Branches["main"]].ID, stacks[0].Base)
}

// TestDiscover_SiblingBranchesSplitIntoSeparateStacks covers spec.md §4.4
// step 4: two branches sharing the same base but diverging from each other
// (neither an ancestor of the other) form distinct stacks.
func TestDiscover_SiblingBranchesSplitIntoSeparateStacks(t *testing.T) {
	dir := t.TempDir()
	repo, err := testutil.NewGitRepo(dir)
	require.NoError(t, err)
	require.NoError(t, repo.CreateChangeAndCommit("base", ""))
	require.NoError(t, repo.CreateAndCheckoutBranch("siblingA"))
	require.NoError(t, repo.CreateChangeAndCommit("a work", "a1"))
	require.NoError(t, repo.CheckoutBranch("main"))
	require.NoError(t, repo.CreateAndCheckoutBranch("siblingB"))
	require.NoError(t, repo.CreateChangeAndCommit("b work", "b1"))

	_, g := buildClassifiedGraph(t, dir, []string{"main"})
	stacks := stackmodel.Discover(g, stackmodel.Options{ProtectedBranchGlobs: []string{"main"}})

	require.Len(t, stacks, 2)
	var names []string
	for _, s := range stacks {
		names = append(names, s.Branches...)
	}
	require.ElementsMatch(t, []string{"siblingA", "siblingB"}, names)
}

// TestDiscover_ExplicitOntoOverridesBaseFallback covers spec.md §4.4 step
// 3's first clause: with no tracked remote tip, onto would fall back to the
// base, and an explicit --onto wins over that fallback.
func TestDiscover_ExplicitOntoOverridesBaseFallback(t *testing.T) {
	dir := t.TempDir()
	repo, err := testutil.NewGitRepo(dir)
	require.NoError(t, err)
	require.NoError(t, repo.CreateChangeAndCommit("base", ""))
	require.NoError(t, repo.CreateAndCheckoutBranch("feature"))
	require.NoError(t, repo.CreateChangeAndCommit("feature work", "f1"))
	require.NoError(t, repo.CheckoutBranch("main"))
	require.NoError(t, repo.CreateChangeAndCommit("explicit target", ""))

	gitRepo, g := buildClassifiedGraph(t, dir, []string{"main"})
	explicitOnto, err := gitRepo.Resolve("main")
	require.NoError(t, err)

	stacks := stackmodel.Discover(g, stackmodel.Options{
		ProtectedBranchGlobs: []string{"main"},
		ExplicitOnto:         explicitOnto,
	})
	require.Len(t, stacks, 1)
	require.Equal(t, explicitOnto, stacks[0].Onto)
}
