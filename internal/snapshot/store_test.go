package snapshot_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"stacktool.dev/stk/internal/snapshot"
)

// TestStore_WriteListLatestByLabel covers spec.md §4.8's append-only log:
// writes accumulate, List returns them oldest first, Latest returns the
// newest, and ByLabel finds the newest entry matching a given label.
func TestStore_WriteListLatestByLabel(t *testing.T) {
	dir := t.TempDir()
	store := snapshot.Open(filepath.Join(dir, ".git"))

	first, err := store.Write("pull:pre", "headA", []snapshot.Entry{{Branch: "main", Commit: "aaa"}})
	require.NoError(t, err)

	second, err := store.Write("pull:post", "headB", []snapshot.Entry{{Branch: "main", Commit: "bbb"}})
	require.NoError(t, err)

	all, err := store.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, first.Label, all[0].Label)
	require.Equal(t, second.Label, all[1].Label)

	latest, err := store.Latest()
	require.NoError(t, err)
	require.Equal(t, second.Label, latest.Label)

	byLabel, err := store.ByLabel("pull:pre")
	require.NoError(t, err)
	require.Equal(t, "headA", byLabel.Head)
	require.Equal(t, []snapshot.Entry{{Branch: "main", Commit: "aaa"}}, byLabel.Entries)
}

// TestStore_LatestOnEmptyStoreErrors covers the "no snapshots recorded yet"
// edge case an undo collaborator must surface rather than panic on.
func TestStore_LatestOnEmptyStoreErrors(t *testing.T) {
	dir := t.TempDir()
	store := snapshot.Open(filepath.Join(dir, ".git"))
	_, err := store.Latest()
	require.Error(t, err)
}

// TestStore_SameSecondCollisionDoesNotOverwrite covers the append-only
// guarantee: two writes with the same label in the same second never lose
// one to the other.
func TestStore_SameSecondCollisionDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	store := snapshot.Open(filepath.Join(dir, ".git"))

	a, err := store.Write("rebase:pre", "headA", nil)
	require.NoError(t, err)
	b, err := store.Write("rebase:pre", "headB", nil)
	require.NoError(t, err)

	all, err := store.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NotEqual(t, a.Head, b.Head)
}

// TestStore_PruneRemovesOldestBeyondMaxDepth covers the bounded-history
// behavior mirrored from the teacher's enforceMaxStackDepth.
func TestStore_PruneRemovesOldestBeyondMaxDepth(t *testing.T) {
	dir := t.TempDir()
	store := snapshot.Open(filepath.Join(dir, ".git"))

	for i := 0; i < 5; i++ {
		_, err := store.Write("op", "head", nil)
		require.NoError(t, err)
	}

	require.NoError(t, store.Prune(2))
	all, err := store.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
}
