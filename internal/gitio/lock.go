package gitio

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"stacktool.dev/stk/internal/stackerrors"
)

// Lock is the advisory, exclusive-create lock an Executor holds for the
// whole of each Apply call (spec.md §5). One invocation owns the repository; a
// concurrent invocation fails fast with ErrRepoBusy rather than blocking.
type Lock struct {
	path string
}

// AcquireLock creates the lock file under the repository's git dir. It
// fails immediately (no waiting/retrying) if the lock already exists.
func (r *Repo) AcquireLock() (*Lock, error) {
	path := filepath.Join(r.gitDir, "stk.lock")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if os.IsExist(err) {
			return nil, stackerrors.ErrRepoBusy
		}
		return nil, fmt.Errorf("create lock file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write lock file: %w", err)
	}

	return &Lock{path: path}, nil
}

// Release removes the lock file. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
