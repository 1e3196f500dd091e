package repository

import (
	"context"
	"os/exec"

	"github.com/cowmonk/tinypkg/pkg/errors"
)

// ExecGitRunner runs the system git binary.
type ExecGitRunner struct{}

// Run executes git with the given arguments and returns the combined output.
func (ExecGitRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, errors.Wrapf(err, "git %v: %s", args, tail(out))
	}
	return out, nil
}

// tail returns the last few hundred bytes of command output, enough for the
// proximate cause without flooding the error chain.
func tail(out []byte) string {
	const limit = 400
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return string(out)
}
