package config

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"stacktool.dev/stk/internal/gitio"
	"stacktool.dev/stk/internal/stackerrors"
)

// Loader reads stack.* keys from Git config via the repo's own `git
// config` resolution (system/global/local/worktree precedence), the way
// the teacher resolves branch.<name>.remote with `git config
// --get-regexp` rather than re-implementing scope precedence itself.
type Loader struct {
	repo *gitio.Repo
}

// NewLoader builds a Loader bound to repo.
func NewLoader(repo *gitio.Repo) *Loader {
	return &Loader{repo: repo}
}

// Load reads the full Config, falling back to Defaults() for any key
// that's unset.
func (l *Loader) Load(ctx context.Context) (Config, error) {
	cfg := Defaults()

	if v := l.repo.ConfigGetAll(ctx, "stack.protected-branch"); len(v) > 0 {
		cfg.ProtectedBranchGlobs = v
	}
	if v, ok := l.repo.ConfigGet(ctx, "stack.protect-commit-count"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, stackerrors.NewConfigError("stack.protect-commit-count", "not an integer", err)
		}
		cfg.ProtectCommitCount = n
	}
	if v, ok := l.repo.ConfigGet(ctx, "stack.protect-commit-age"); ok {
		d, err := parseDuration(v)
		if err != nil {
			return Config{}, stackerrors.NewConfigError("stack.protect-commit-age", "not a duration", err)
		}
		cfg.ProtectCommitAge = d
	}
	if v, ok := l.repo.ConfigGet(ctx, "stack.auto-base-commit-count"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, stackerrors.NewConfigError("stack.auto-base-commit-count", "not an integer", err)
		}
		cfg.AutoBaseCommitCount = n
	}
	if v, ok := l.repo.ConfigGet(ctx, "stack.stack"); ok {
		sel := StackSelector(v)
		switch sel {
		case StackCurrent, StackDependents, StackDescendants, StackAll:
			cfg.Stack = sel
		default:
			return Config{}, stackerrors.NewConfigError("stack.stack", "must be one of current, dependents, descendants, all", nil)
		}
	}
	if v, ok := l.repo.ConfigGet(ctx, "stack.push-remote"); ok {
		cfg.PushRemote = v
	}
	if v, ok := l.repo.ConfigGet(ctx, "stack.pull-remote"); ok {
		cfg.PullRemote = v
	}
	if v, ok := l.repo.ConfigGet(ctx, "stack.show-format"); ok {
		cfg.ShowFormat = ShowFormat(v)
	}
	if v, ok := l.repo.ConfigGet(ctx, "stack.show-stacked"); ok {
		cfg.ShowStacked = v == "true"
	}
	if v, ok := l.repo.ConfigGet(ctx, "stack.auto-fixup"); ok {
		mode := AutoFixupMode(v)
		switch mode {
		case AutoFixupIgnore, AutoFixupMove, AutoFixupSquash:
			cfg.AutoFixup = mode
		default:
			return Config{}, stackerrors.NewConfigError("stack.auto-fixup", "must be one of ignore, move, squash", nil)
		}
	}
	if v, ok := l.repo.ConfigGet(ctx, "stack.auto-repair"); ok {
		cfg.AutoRepair = v == "true"
	}
	if v, ok := l.repo.ConfigGet(ctx, "stack.gpgSign"); ok {
		cfg.GPGSign = v == "true"
	}

	return cfg, nil
}

// parseDuration parses durations like "10days" in addition to Go's native
// suffixes, per spec.md §6's example.
func parseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	for _, unit := range []struct {
		suffix string
		factor time.Duration
	}{
		{"days", 24 * time.Hour},
		{"day", 24 * time.Hour},
		{"weeks", 7 * 24 * time.Hour},
		{"week", 7 * 24 * time.Hour},
	} {
		if n, ok := trimSuffixNumber(s, unit.suffix); ok {
			return time.Duration(n) * unit.factor, nil
		}
	}
	return 0, fmt.Errorf("unrecognized duration %q", s)
}

func trimSuffixNumber(s, suffix string) (int, bool) {
	if len(s) <= len(suffix) || s[len(s)-len(suffix):] != suffix {
		return 0, false
	}
	n, err := strconv.Atoi(s[:len(s)-len(suffix)])
	if err != nil {
		return 0, false
	}
	return n, true
}
