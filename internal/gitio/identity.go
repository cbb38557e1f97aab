package gitio

import (
	"context"
	"fmt"
)

// LocalIdentity returns the Git user's configured name and email, obtained
// fresh from git config each call (spec.md §9: "there is no process-wide
// cache").
func (r *Repo) LocalIdentity(ctx context.Context) (name, email string, err error) {
	name, err = r.run.run(ctx, "config", "user.name")
	if err != nil {
		return "", "", fmt.Errorf("read user.name: %w", err)
	}
	email, err = r.run.run(ctx, "config", "user.email")
	if err != nil {
		return "", "", fmt.Errorf("read user.email: %w", err)
	}
	return name, email, nil
}

// GPGSignEnabled reports whether commits should be signed, honoring
// stack.gpgSign overriding commit.gpgSign (spec.md §4.1, §6).
func (r *Repo) GPGSignEnabled(ctx context.Context) bool {
	if v, ok := r.configBool(ctx, "stack.gpgSign"); ok {
		return v
	}
	v, _ := r.configBool(ctx, "commit.gpgSign")
	return v
}

func (r *Repo) configBool(ctx context.Context, key string) (bool, bool) {
	out, err := r.run.run(ctx, "config", "--type=bool", key)
	if err != nil || out == "" {
		return false, false
	}
	return out == "true", true
}

// ConfigGet reads a single-valued git config key; ok is false if unset.
func (r *Repo) ConfigGet(ctx context.Context, key string) (value string, ok bool) {
	out, err := r.run.run(ctx, "config", "--get", key)
	if err != nil || out == "" {
		return "", false
	}
	return out, true
}

// ConfigGetAll reads a multi-valued git config key (e.g. a list of globs).
func (r *Repo) ConfigGetAll(ctx context.Context, key string) []string {
	out, err := r.run.runRaw(ctx, "config", "--get-all", key)
	if err != nil || out == "" {
		return nil
	}
	return splitLines(out)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
