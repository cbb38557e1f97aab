// Package stackerrors defines the sentinel and typed errors produced by the
// stack engine. Use errors.Is()/errors.As() to discriminate between kinds;
// never match on error strings.
package stackerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions that carry no extra payload.
var (
	// ErrRepoBusy indicates another invocation holds the repository lock.
	ErrRepoBusy = errors.New("repository is locked by another stk invocation")

	// ErrNotFastForward indicates a push or a protected-branch update was
	// rejected because the remote moved under us.
	ErrNotFastForward = errors.New("remote has moved, not a fast-forward")

	// ErrDirtyTree indicates uncommitted changes block an operation that
	// requires a clean working tree.
	ErrDirtyTree = errors.New("working tree has uncommitted changes")

	// ErrDetached indicates HEAD is detached in a context that requires a
	// branch.
	ErrDetached = errors.New("HEAD is detached")

	// ErrAmbiguous indicates a user-supplied rev or a fixup target could
	// not be resolved to a single unambiguous commit.
	ErrAmbiguous = errors.New("ambiguous reference")

	// ErrUnknownRef indicates a user-supplied rev does not resolve.
	ErrUnknownRef = errors.New("unknown reference")

	// ErrProtectedWrite indicates the planner asked to rewrite a protected
	// commit. This is a bug in the planner, not a user error.
	ErrProtectedWrite = errors.New("refusing to rewrite a protected commit")
)

// ConfigError wraps a malformed or missing required configuration value.
type ConfigError struct {
	Key     string
	Reason  string
	Wrapped error
}

func (e *ConfigError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config %s: invalid", e.Key)
}

func (e *ConfigError) Unwrap() error { return e.Wrapped }

// NewConfigError builds a ConfigError.
func NewConfigError(key, reason string, wrapped error) *ConfigError {
	return &ConfigError{Key: key, Reason: reason, Wrapped: wrapped}
}

// ConflictError represents a rewrite that would require manual conflict
// resolution. It is fatal for the plan and never auto-resolved.
type ConflictError struct {
	Commit string
	Branch string
	Detail string
}

func (e *ConflictError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("conflict replaying %s onto branch %s: %s", e.Commit, e.Branch, e.Detail)
	}
	return fmt.Sprintf("conflict replaying %s onto branch %s", e.Commit, e.Branch)
}

// HookFailedError propagates a non-zero exit from a Git hook verbatim.
type HookFailedError struct {
	Name   string
	Status int
	Output string
}

func (e *HookFailedError) Error() string {
	return fmt.Sprintf("hook %q failed with status %d: %s", e.Name, e.Status, e.Output)
}

// GitCommandError represents a failed invocation of the git binary.
type GitCommandError struct {
	Args   []string
	Stdout string
	Stderr string
	Err    error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git %v failed", e.Args)
	if e.Stderr != "" {
		msg += fmt.Sprintf(": %s", e.Stderr)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (%v)", e.Err)
	}
	return msg
}

func (e *GitCommandError) Unwrap() error { return e.Err }

// NewGitCommandError builds a GitCommandError.
func NewGitCommandError(args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{Args: args, Stdout: stdout, Stderr: stderr, Err: err}
}
