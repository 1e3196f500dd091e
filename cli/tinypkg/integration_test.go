//go:build integration

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cowmonk/tinypkg/pkg/model"
	"github.com/cowmonk/tinypkg/test/testutil"
)

// helloMakefile installs a shell script under the prefix. Recipe lines
// must be tab-indented.
const helloMakefile = "all:\n\t@true\n\ninstall:\n\tmkdir -p $(DESTDIR)/usr/local/bin\n\tcp hello.sh $(DESTDIR)/usr/local/bin/hello\n"

func addHelloPackage(t *testing.T, env *testutil.Env, version string) {
	archive := env.AddSourceArchive(t, "hello-"+version, map[string]string{
		"Makefile": helloMakefile,
		"hello.sh": "#!/bin/sh\necho hello " + version + "\n",
	})
	env.AddPackage(t, &model.Package{
		Name:    "hello",
		Version: version,
		Source:  archive,
		Files:   []string{"usr/local/bin/hello"},
	})
}

func TestVersionCommand(t *testing.T) {
	binary := buildTestBinary(t)
	env := testutil.NewEnv(t)

	out, code := runCommand(t, binary, env, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "tinypkg version")
}

func TestListNothingInstalled(t *testing.T) {
	binary := buildTestBinary(t)
	env := testutil.NewEnv(t)

	out, code := runCommand(t, binary, env, "list")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "No packages installed")
}

func TestInstallListRemoveLifecycle(t *testing.T) {
	binary := buildTestBinary(t)
	env := testutil.NewEnv(t)
	addHelloPackage(t, env, "1.0")

	out, code := runCommand(t, binary, env, "install", "hello")
	require.Equal(t, 0, code, "install output: %s", out)

	installed := filepath.Join(env.Root, "usr", "local", "bin", "hello")
	assert.FileExists(t, installed)

	out, code = runCommand(t, binary, env, "list")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "1.0")

	out, code = runCommand(t, binary, env, "remove", "--yes", "hello")
	require.Equal(t, 0, code, "remove output: %s", out)
	assert.NoFileExists(t, installed)

	out, code = runCommand(t, binary, env, "list")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "No packages installed")
}

func TestInstallUnknownPackage(t *testing.T) {
	binary := buildTestBinary(t)
	env := testutil.NewEnv(t)

	out, code := runCommand(t, binary, env, "install", "ghost")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "ghost")
}

func TestSearchAndInfo(t *testing.T) {
	binary := buildTestBinary(t)
	env := testutil.NewEnv(t)
	addHelloPackage(t, env, "1.0")

	out, code := runCommand(t, binary, env, "search", "hello")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "hello 1.0")

	out, code = runCommand(t, binary, env, "info", "hello")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Name:         hello")
	assert.Contains(t, out, "not installed")
}

func TestListAvailable(t *testing.T) {
	binary := buildTestBinary(t)
	env := testutil.NewEnv(t)
	addHelloPackage(t, env, "2.1")

	out, code := runCommand(t, binary, env, "list", "--available")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "2.1")
}

func TestUpdateLifecycle(t *testing.T) {
	binary := buildTestBinary(t)
	env := testutil.NewEnv(t)
	addHelloPackage(t, env, "1.0")

	out, code := runCommand(t, binary, env, "install", "hello")
	require.Equal(t, 0, code, "install output: %s", out)

	// Same catalog version: update is a no-op.
	out, code = runCommand(t, binary, env, "update", "hello")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "up to date")

	// Publish a newer version and update again.
	addHelloPackage(t, env, "2.0")
	out, code = runCommand(t, binary, env, "update", "hello")
	require.Equal(t, 0, code, "update output: %s", out)

	installed := filepath.Join(env.Root, "usr", "local", "bin", "hello")
	content, err := os.ReadFile(installed)
	require.NoError(t, err)
	assert.Contains(t, string(content), "2.0")

	out, code = runCommand(t, binary, env, "list")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "2.0")
}
