package gitio

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// execHook runs a hook executable directly (hooks are arbitrary scripts,
// not git subcommands, so this bypasses the git-command runner).
func execHook(ctx context.Context, path string, args []string, stdin, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = dir
	cmd.Stdin = strings.NewReader(stdin)

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	err := cmd.Run()
	return combined.String(), err
}

func exitStatus(err error) int {
	var exitErr *exec.ExitError
	if ok := errorsAs(err, &exitErr); ok {
		return exitErr.ExitCode()
	}
	return 1
}

func errorsAs(err error, target **exec.ExitError) bool {
	ee, ok := err.(*exec.ExitError)
	if ok {
		*target = ee
	}
	return ok
}
