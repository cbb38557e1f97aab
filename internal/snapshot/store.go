// Package snapshot implements the Snapshot Store Contract (spec.md §4.8):
// an append-only, label-keyed log of branch-to-commit mappings the
// Executor writes before and after every mutating operation. Restoration
// itself is an external `undo` collaborator's job (spec.md §1); this
// package only writes and reads.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Dir is where snapshots live under the Git metadata directory, the way
// the teacher keeps undo state under ".git/stackit/undo" (internal/engine/undo.go).
const Dir = "stk/snapshots"

// DefaultMaxDepth mirrors the teacher's DefaultMaxUndoStackDepth.
const DefaultMaxDepth = 10

// Entry is one branch's recorded position.
type Entry struct {
	Branch string `yaml:"branch"`
	Commit string `yaml:"commit"`
}

// Snapshot is one append-only record.
type Snapshot struct {
	Label     string    `yaml:"label"`
	Timestamp time.Time `yaml:"timestamp"`
	Head      string    `yaml:"head"`
	Entries   []Entry   `yaml:"entries"`
}

// Store is bound to a single repository's Git metadata directory.
type Store struct {
	dir string
}

// Open returns a Store rooted at gitDir, creating its directory lazily on
// first write.
func Open(gitDir string) *Store {
	return &Store{dir: filepath.Join(gitDir, Dir)}
}

// Write appends a new snapshot labeled label and returns it. The label is
// stored as given (the Executor passes e.g. "pull:pre"); the write time is
// recorded in Timestamp and in the file name.
func (s *Store) Write(label string, head string, entries []Entry) (Snapshot, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return Snapshot{}, fmt.Errorf("create snapshot dir: %w", err)
	}

	snap := Snapshot{Label: label, Timestamp: time.Now(), Head: head, Entries: entries}
	data, err := yaml.Marshal(snap)
	if err != nil {
		return Snapshot{}, fmt.Errorf("marshal snapshot: %w", err)
	}

	path := s.filenameFor(snap)
	if err := writeAtomic(path, data); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// filenameFor builds "<timestamp>_<label>.yaml" with a millisecond-precision
// timestamp, disambiguating a collision with an existing file (same label in
// the same millisecond) with a short uuid suffix rather than overwriting the earlier
// snapshot (append-only means never silently replacing a prior entry).
func (s *Store) filenameFor(snap Snapshot) string {
	base := fmt.Sprintf("%s_%s.yaml", snap.Timestamp.Format("20060102150405.000"), sanitizeLabel(snap.Label))
	path := filepath.Join(s.dir, base)
	if _, err := os.Stat(path); err == nil {
		base = fmt.Sprintf("%s_%s_%s.yaml", snap.Timestamp.Format("20060102150405.000"), sanitizeLabel(snap.Label), uuid.NewString()[:8])
		path = filepath.Join(s.dir, base)
	}
	return path
}

func sanitizeLabel(label string) string {
	return strings.NewReplacer("/", "-", ":", "-", " ", "_").Replace(label)
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize snapshot: %w", err)
	}
	return nil
}

// List returns every snapshot, oldest first.
func (s *Store) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names) // timestamp-prefixed names sort chronologically

	out := make([]Snapshot, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		var snap Snapshot
		if err := yaml.Unmarshal(data, &snap); err != nil {
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}

// Latest returns the most recently written snapshot.
func (s *Store) Latest() (Snapshot, error) {
	all, err := s.List()
	if err != nil {
		return Snapshot{}, err
	}
	if len(all) == 0 {
		return Snapshot{}, fmt.Errorf("no snapshots recorded")
	}
	return all[len(all)-1], nil
}

// ByLabel returns the most recent snapshot with the given label.
func (s *Store) ByLabel(label string) (Snapshot, error) {
	all, err := s.List()
	if err != nil {
		return Snapshot{}, err
	}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Label == label {
			return all[i], nil
		}
	}
	return Snapshot{}, fmt.Errorf("no snapshot labeled %q", label)
}

// Prune removes the oldest snapshots beyond maxDepth, mirroring the
// teacher's enforceMaxStackDepth.
func (s *Store) Prune(maxDepth int) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read snapshot dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= maxDepth {
		return nil
	}
	sort.Strings(names)

	toDelete := len(names) - maxDepth
	for i := 0; i < toDelete; i++ {
		_ = os.Remove(filepath.Join(s.dir, names[i])) // best-effort, same as the teacher
	}
	return nil
}
