package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cowmonk/tinypkg/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeDefinition writes a package definition JSON under dir/packages.
func writeDefinition(t *testing.T, dir, name, body string) {
	t.Helper()
	pkgDir := filepath.Join(dir, "packages")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, name+".json"), []byte(body), 0o644))
}

func TestLookup(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "zlib", `{
		"name": "zlib",
		"version": "1.3.1",
		"description": "compression library",
		"source": "https://example.org/zlib-1.3.1.tar.gz",
		"dependencies": []
	}`)

	mgr := NewManager([]Source{{Name: "core", Dir: dir}})

	pkg, err := mgr.Lookup("zlib")
	require.NoError(t, err)
	assert.Equal(t, "zlib", pkg.Name)
	assert.Equal(t, "1.3.1", pkg.Version)

	_, err = mgr.Lookup("missing")
	assert.ErrorIs(t, err, errors.ErrPackageNotFound)
}

func TestLookup_FlatRepositoryFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flat.json"), []byte(`{
		"name": "flat", "version": "1.0.0", "source": "https://example.org/flat.tar.gz"
	}`), 0o644))

	mgr := NewManager([]Source{{Name: "core", Dir: dir}})
	pkg, err := mgr.Lookup("flat")
	require.NoError(t, err)
	assert.Equal(t, "flat", pkg.Name)
}

func TestLookup_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{
			name:    "missing version",
			body:    `{"name": "bad", "source": "https://example.org/bad.tar.gz"}`,
			wantErr: errors.ErrInvalidPackage,
		},
		{
			name:    "missing source",
			body:    `{"name": "bad", "version": "1.0.0"}`,
			wantErr: errors.ErrInvalidPackage,
		},
		{
			name:    "unparseable version",
			body:    `{"name": "bad", "version": "latest-and-greatest!", "source": "https://example.org/b.tar.gz"}`,
			wantErr: errors.ErrInvalidVersion,
		},
		{
			name:    "wrong field type",
			body:    `{"name": "bad", "version": 1, "source": "https://example.org/b.tar.gz"}`,
			wantErr: errors.ErrInvalidPackage,
		},
		{
			name:    "unknown build system",
			body:    `{"name": "bad", "version": "1.0.0", "source": "https://example.org/b.tar.gz", "build_system": "scons"}`,
			wantErr: errors.ErrInvalidPackage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeDefinition(t, dir, "bad", tt.body)
			mgr := NewManager([]Source{{Name: "core", Dir: dir}})
			_, err := mgr.Lookup("bad")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLookup_PriorityOrder(t *testing.T) {
	highDir := t.TempDir()
	lowDir := t.TempDir()
	writeDefinition(t, highDir, "tool", `{"name": "tool", "version": "2.0.0", "source": "https://high.example.org/tool.tar.gz"}`)
	writeDefinition(t, lowDir, "tool", `{"name": "tool", "version": "1.0.0", "source": "https://low.example.org/tool.tar.gz"}`)

	mgr := NewManager([]Source{{Name: "high", Dir: highDir}, {Name: "low", Dir: lowDir}})
	pkg, err := mgr.Lookup("tool")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", pkg.Version, "first source wins")
}

func TestResolve_ProvidesFallback(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "mariadb", `{
		"name": "mariadb",
		"version": "11.4.0",
		"source": "https://example.org/mariadb.tar.gz",
		"provides": ["mysql"]
	}`)

	mgr := NewManager([]Source{{Name: "core", Dir: dir}})

	pkg, err := mgr.Resolve("mysql")
	require.NoError(t, err)
	assert.Equal(t, "mariadb", pkg.Name)

	_, err = mgr.Resolve("postgres")
	assert.ErrorIs(t, err, errors.ErrPackageNotFound)
}

func TestSearch(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "zlib", `{"name": "zlib", "version": "1.3.1", "description": "compression library", "source": "https://example.org/z.tar.gz"}`)
	writeDefinition(t, dir, "openssl", `{"name": "openssl", "version": "3.3.0", "description": "TLS toolkit", "source": "https://example.org/o.tar.gz"}`)

	mgr := NewManager([]Source{{Name: "core", Dir: dir}})

	byName := mgr.Search("ZLIB")
	require.Len(t, byName, 1)
	assert.Equal(t, "zlib", byName[0].Name)

	byDesc := mgr.Search("toolkit")
	require.Len(t, byDesc, 1)
	assert.Equal(t, "openssl", byDesc[0].Name)

	assert.Empty(t, mgr.Search("nonexistent"))
}

func TestAll_SkipsMalformedAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "zlib", `{"name": "zlib", "version": "1.3.1", "source": "https://example.org/z.tar.gz"}`)
	writeDefinition(t, dir, "attr", `{"name": "attr", "version": "2.5.2", "source": "https://example.org/a.tar.gz"}`)
	writeDefinition(t, dir, "broken", `{"name": "broken"}`)

	mgr := NewManager([]Source{{Name: "core", Dir: dir}})
	all := mgr.All()
	require.Len(t, all, 2)
	assert.Equal(t, "attr", all[0].Name)
	assert.Equal(t, "zlib", all[1].Name)
}

func TestParseDefinition_DeduplicatesLists(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "dup", `{
		"name": "dup",
		"version": "1.0.0",
		"source": "https://example.org/d.tar.gz",
		"dependencies": ["a", "b", "a"],
		"provides": ["x", "x"]
	}`)

	mgr := NewManager([]Source{{Name: "core", Dir: dir}})
	pkg, err := mgr.Lookup("dup")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, pkg.Dependencies)
	assert.Equal(t, []string{"x"}, pkg.Provides)
}
