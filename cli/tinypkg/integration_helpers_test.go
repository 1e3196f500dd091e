//go:build integration

package main

import (
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cowmonk/tinypkg/test/testutil"
)

// buildTestBinary compiles the tinypkg binary into a temp dir once per test.
func buildTestBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "tinypkg")
	if runtime.GOOS == "windows" {
		binaryPath += ".exe"
	}

	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", out)
	return binaryPath
}

// runCommand executes the binary against the environment's config and
// returns combined output and exit code.
func runCommand(t *testing.T, binary string, env *testutil.Env, args ...string) (string, int) {
	t.Helper()

	full := append([]string{"--config", env.ConfigPath}, args...)
	cmd := exec.Command(binary, full...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if ok := asExitError(err, &exitErr); ok {
			return string(out), exitErr.ExitCode()
		}
		t.Fatalf("command %v failed to run: %v", args, err)
	}
	return string(out), 0
}

func asExitError(err error, target **exec.ExitError) bool {
	e, ok := err.(*exec.ExitError)
	if ok {
		*target = e
	}
	return ok
}
