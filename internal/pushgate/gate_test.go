package pushgate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"stacktool.dev/stk/internal/gitio"
	"stacktool.dev/stk/internal/graph"
	"stacktool.dev/stk/internal/protect"
	"stacktool.dev/stk/internal/pushgate"
	"stacktool.dev/stk/internal/stackmodel"
	"stacktool.dev/stk/internal/testutil"
)

func discoverOne(t *testing.T, dir string) (*gitio.Repo, *graph.Graph, stackmodel.Stack) {
	t.Helper()
	repo, err := gitio.Open(dir)
	require.NoError(t, err)
	g, err := graph.Build(context.Background(), repo, graph.BuildOptions{PullRemote: "origin", PushRemote: "origin"})
	require.NoError(t, err)
	head, _, err := repo.Head()
	require.NoError(t, err)
	protect.Classify(g, g.IndexOf(head), protect.Rules{ProtectedBranchGlobs: []string{"main"}})
	g.AnnotateWIPAndForeign("", g.IndexOf(head))
	stacks := stackmodel.Discover(g, stackmodel.Options{ProtectedBranchGlobs: []string{"main"}})
	require.Len(t, stacks, 1)
	return repo, g, stacks[0]
}

// TestEvaluate_ReadyWhenLeafAndNotPushed covers spec.md §4.7: a development
// branch with no stacked child, no WIP commits, and nothing pushed yet is
// ready.
func TestEvaluate_ReadyWhenLeafAndNotPushed(t *testing.T) {
	dir := t.TempDir()
	repo, err := testutil.NewGitRepo(dir)
	require.NoError(t, err)
	require.NoError(t, repo.CreateChangeAndCommit("base", ""))
	require.NoError(t, repo.CreateAndCheckoutBranch("feature"))
	require.NoError(t, repo.CreateChangeAndCommit("feature work", "f1"))

	_, g, stack := discoverOne(t, dir)
	readiness := pushgate.Evaluate(g, stack, "origin")
	require.Len(t, readiness, 1)
	require.True(t, readiness[0].Ready)
	require.False(t, readiness[0].HasChild)
	require.False(t, readiness[0].HasWIP)
}

// TestEvaluate_NotReadyWhenChildStacked covers spec.md §4.7's second
// condition: a branch with a dependent branch stacked on top isn't ready,
// because pushing it would orphan the PR graph.
func TestEvaluate_NotReadyWhenChildStacked(t *testing.T) {
	dir := t.TempDir()
	repo, err := testutil.NewGitRepo(dir)
	require.NoError(t, err)
	require.NoError(t, repo.CreateChangeAndCommit("base", ""))
	require.NoError(t, repo.CreateAndCheckoutBranch("branch1"))
	require.NoError(t, repo.CreateChangeAndCommit("b1 work", "b1"))
	require.NoError(t, repo.CreateAndCheckoutBranch("branch2"))
	require.NoError(t, repo.CreateChangeAndCommit("b2 work", "b2"))

	_, g, stack := discoverOne(t, dir)
	readiness := pushgate.Evaluate(g, stack, "origin")

	byName := map[string]pushgate.Readiness{}
	for _, r := range readiness {
		byName[r.Branch] = r
	}
	require.True(t, byName["branch1"].HasChild)
	require.False(t, byName["branch1"].Ready)
	require.True(t, byName["branch2"].Ready)
}

// TestEvaluate_NotReadyWithWIPCommit covers spec.md §4.7's third condition.
func TestEvaluate_NotReadyWithWIPCommit(t *testing.T) {
	dir := t.TempDir()
	repo, err := testutil.NewGitRepo(dir)
	require.NoError(t, err)
	require.NoError(t, repo.CreateChangeAndCommit("base", ""))
	require.NoError(t, repo.CreateAndCheckoutBranch("feature"))
	require.NoError(t, repo.CreateChangeAndCommit("WIP: in progress", "f1"))

	_, g, stack := discoverOne(t, dir)
	readiness := pushgate.Evaluate(g, stack, "origin")
	require.Len(t, readiness, 1)
	require.True(t, readiness[0].HasWIP)
	require.False(t, readiness[0].Ready)
}

// TestBuildPushPlan_OnlyEmitsReadyBranches covers the plan-construction
// side: BuildPushPlan must skip not-ready branches and carry the zero
// CommitID as the lease baseline for a branch never pushed before.
func TestBuildPushPlan_OnlyEmitsReadyBranches(t *testing.T) {
	dir := t.TempDir()
	repo, err := testutil.NewGitRepo(dir)
	require.NoError(t, err)
	require.NoError(t, repo.CreateChangeAndCommit("base", ""))
	require.NoError(t, repo.CreateAndCheckoutBranch("branch1"))
	require.NoError(t, repo.CreateChangeAndCommit("b1 work", "b1"))
	require.NoError(t, repo.CreateAndCheckoutBranch("branch2"))
	require.NoError(t, repo.CreateChangeAndCommit("b2 work", "b2"))

	_, g, stack := discoverOne(t, dir)
	p := pushgate.BuildPushPlan(g, stack, "origin")
	require.Len(t, p.Actions, 1)
	require.Equal(t, "branch2", p.Actions[0].Branch)
	require.True(t, p.Actions[0].ExpectedRemote.IsZero())
}
