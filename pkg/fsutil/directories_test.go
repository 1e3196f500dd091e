package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a", "b", "c")

	require.NoError(t, EnsureDir(target))
	assert.DirExists(t, target)

	// Idempotent on existing directories.
	require.NoError(t, EnsureDir(target))
}

func TestEnsureFileDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "x", "y", "file.txt")

	require.NoError(t, EnsureFileDir(file))
	assert.DirExists(t, filepath.Join(dir, "x", "y"))
}

func TestDirSize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), make([]byte, 100), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b"), make([]byte, 50), 0o644))

	size, err := DirSize(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(150), size)
}

func TestSortByDepth(t *testing.T) {
	paths := []string{
		"/root/a",
		"/root/a/b/c/file",
		"/root/a/b",
	}

	SortByDepth(paths)

	assert.Equal(t, []string{"/root/a/b/c/file", "/root/a/b", "/root/a"}, paths)
}

func TestPruneEmptyDirs(t *testing.T) {
	root := t.TempDir()
	empty := filepath.Join(root, "usr", "share", "doc")
	require.NoError(t, os.MkdirAll(empty, 0o755))

	occupied := filepath.Join(root, "usr", "bin")
	require.NoError(t, os.MkdirAll(occupied, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(occupied, "tool"), []byte("#!"), 0o755))

	PruneEmptyDirs(root, []string{empty, occupied})

	assert.NoDirExists(t, empty)
	// usr/share became empty after doc was pruned.
	assert.NoDirExists(t, filepath.Join(root, "usr", "share"))
	assert.DirExists(t, occupied)
	// Root itself is never removed.
	assert.DirExists(t, root)
}
