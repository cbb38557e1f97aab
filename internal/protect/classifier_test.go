package protect_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stacktool.dev/stk/internal/gitio"
	"stacktool.dev/stk/internal/graph"
	"stacktool.dev/stk/internal/protect"
	"stacktool.dev/stk/internal/testutil"
)

func buildGraph(t *testing.T, dir string) (*gitio.Repo, *graph.Graph) {
	t.Helper()
	repo, err := gitio.Open(dir)
	require.NoError(t, err)
	g, err := graph.Build(context.Background(), repo, graph.BuildOptions{PullRemote: "origin", PushRemote: "origin"})
	require.NoError(t, err)
	return repo, g
}

// TestClassify_ProtectsMainAndItsHistory covers spec.md §4.3 rules 1-2: a
// branch matching a protected glob, and everything reachable from its tip,
// are marked protected.
func TestClassify_ProtectsMainAndItsHistory(t *testing.T) {
	dir := t.TempDir()
	repo, err := testutil.NewGitRepo(dir)
	require.NoError(t, err)
	require.NoError(t, repo.CreateChangeAndCommit("base", ""))
	require.NoError(t, repo.CreateAndCheckoutBranch("feature"))
	require.NoError(t, repo.CreateChangeAndCommit("feature work", "f1"))
	require.NoError(t, repo.CheckoutBranch("main"))

	gitRepo, g := buildGraph(t, dir)
	head, _, err := gitRepo.Head()
	require.NoError(t, err)
	headIdx := g.IndexOf(head)

	protect.Classify(g, headIdx, protect.Rules{ProtectedBranchGlobs: []string{"main"}})

	mainIdx := g.Branches["main"]
	require.True(t, g.Nodes[mainIdx].Protected)

	featureIdx := g.Branches["feature"]
	require.False(t, g.Nodes[featureIdx].Protected, "feature's own commit must stay mutable")
	require.True(t, g.Nodes[g.Nodes[featureIdx].Parents[0]].Protected, "feature's base commit is shared with main and stays protected")
}

// TestClassify_ForeignCommitsAreProtectedByDefault covers spec.md §4.3
// rule 3: a commit authored by someone else is protected unless the branch
// was explicitly user-selected, and HEAD itself is always exempt.
func TestClassify_ForeignCommitsAreProtectedByDefault(t *testing.T) {
	dir := t.TempDir()
	repo, err := testutil.NewGitRepo(dir)
	require.NoError(t, err)
	require.NoError(t, repo.CreateChangeAndCommit("base", ""))

	gitRepo, g := buildGraph(t, dir)
	head, _, err := gitRepo.Head()
	require.NoError(t, err)
	headIdx := g.IndexOf(head)

	// Simulate a foreign-authored commit: AnnotateWIPAndForeign sets Foreign
	// by comparing against the local identity, so directly flag it here the
	// way graph.Build's caller would after running that pass.
	g.Nodes[headIdx].Foreign = true

	protect.Classify(g, headIdx, protect.Rules{ForeignProtection: true})
	require.False(t, g.Nodes[headIdx].Protected, "rule 3 never applies to HEAD")

	require.NoError(t, repo.CreateAndCheckoutBranch("feature"))
	require.NoError(t, repo.CreateChangeAndCommit("feature work", "f1"))
	_, g2 := buildGraph(t, dir)
	featureIdx := g2.Branches["feature"]
	baseIdx := g2.Nodes[featureIdx].Parents[0]
	g2.Nodes[baseIdx].Foreign = true

	protect.Classify(g2, g2.Branches["feature"], protect.Rules{ForeignProtection: true})
	require.True(t, g2.Nodes[baseIdx].Protected)
}

// TestClassify_ProtectCommitAge covers spec.md §4.3 rule 4: a commit older
// than the configured threshold is protected.
func TestClassify_ProtectCommitAge(t *testing.T) {
	dir := t.TempDir()
	repo, err := testutil.NewGitRepo(dir)
	require.NoError(t, err)
	require.NoError(t, repo.CreateChangeAndCommit("base", ""))
	require.NoError(t, repo.CreateAndCheckoutBranch("feature"))
	require.NoError(t, repo.CreateChangeAndCommit("feature work", "f1"))

	_, g := buildGraph(t, dir)
	featureIdx := g.Branches["feature"]

	protect.Classify(g, featureIdx, protect.Rules{
		ProtectCommitAge: time.Hour,
		Now:              time.Now().Add(48 * time.Hour),
	})
	require.True(t, g.Nodes[featureIdx].Protected, "commit older than the threshold must be protected")
}

// TestClassify_UserSelectedBranchExemptFromRules3Through5 covers spec.md
// §4.3's exemption: rules 3-5 never apply to a branch the user explicitly
// named, even if it would otherwise qualify.
func TestClassify_UserSelectedBranchExemptFromRules3Through5(t *testing.T) {
	dir := t.TempDir()
	repo, err := testutil.NewGitRepo(dir)
	require.NoError(t, err)
	require.NoError(t, repo.CreateChangeAndCommit("base", ""))
	require.NoError(t, repo.CreateAndCheckoutBranch("feature"))
	require.NoError(t, repo.CreateChangeAndCommit("feature work", "f1"))

	_, g := buildGraph(t, dir)
	featureIdx := g.Branches["feature"]
	g.Nodes[featureIdx].Foreign = true

	protect.Classify(g, -1, protect.Rules{
		ForeignProtection:    true,
		UserSelectedBranches: map[string]bool{"feature": true},
	})
	require.False(t, g.Nodes[featureIdx].Protected, "user-selected branch is exempt from rule 3")
}

// TestClassify_ProtectCommitCountProtectsWholeTailNotJustTip covers spec.md
// §4.3 rule 5: every commit at or beyond the configured distance from a
// branch's tip is protected, not only the tip commit itself (Node.Branches
// is only populated at a branch's tip, so rule 5 cannot rely on it).
func TestClassify_ProtectCommitCountProtectsWholeTailNotJustTip(t *testing.T) {
	dir := t.TempDir()
	repo, err := testutil.NewGitRepo(dir)
	require.NoError(t, err)
	require.NoError(t, repo.CreateChangeAndCommit("base", ""))
	require.NoError(t, repo.CreateAndCheckoutBranch("feature"))
	require.NoError(t, repo.CreateChangeAndCommit("feature work 1", "f1"))
	require.NoError(t, repo.CreateChangeAndCommit("feature work 2", "f2"))
	require.NoError(t, repo.CreateChangeAndCommit("feature work 3", "f3"))

	_, g := buildGraph(t, dir)
	featureIdx := g.Branches["feature"]

	protect.Classify(g, -1, protect.Rules{ProtectCommitCount: 2})

	tipIdx := featureIdx
	midIdx := g.Nodes[tipIdx].Parents[0]
	oldIdx := g.Nodes[midIdx].Parents[0]

	require.False(t, g.Nodes[tipIdx].Protected, "tip itself is within the unprotected window")
	require.True(t, g.Nodes[midIdx].Protected, "commit at the threshold distance must be protected")
	require.True(t, g.Nodes[oldIdx].Protected, "commits beyond the threshold distance must stay protected too")
}

func TestMatchesAnyGlob(t *testing.T) {
	require.True(t, protect.MatchesAnyGlob("main", []string{"main", "release/*"}))
	require.True(t, protect.MatchesAnyGlob("release/1.0", []string{"main", "release/*"}))
	require.False(t, protect.MatchesAnyGlob("feature/x", []string{"main", "release/*"}))
}

func TestMostSpecificGlob(t *testing.T) {
	best, ok := protect.MostSpecificGlob("release/1.0", []string{"release/*", "release/1.*"})
	require.True(t, ok)
	require.Equal(t, "release/1.*", best)
}
