// Package testutil builds self-contained tinypkg environments for
// integration tests: a config file, an installation root, a local
// catalog and source archives, all under temporary directories.
package testutil

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cowmonk/tinypkg/pkg/config"
	"github.com/cowmonk/tinypkg/pkg/model"
)

// RepoName is the catalog repository every Env is configured with.
const RepoName = "local"

// Env is a complete tinypkg environment rooted in temporary directories.
type Env struct {
	Root       string // installation root
	ConfigPath string
	CacheDir   string
	SourceDir  string // where source archives are written

	catalogDir string
}

// NewEnv creates a fresh environment with one enabled catalog repository
// whose checkout directory is pre-created, so tests can add package
// definitions without running a sync.
func NewEnv(t *testing.T) *Env {
	t.Helper()
	base := t.TempDir()

	env := &Env{
		Root:       filepath.Join(base, "root"),
		ConfigPath: filepath.Join(base, "config.yaml"),
		CacheDir:   filepath.Join(base, "cache"),
		SourceDir:  filepath.Join(base, "dist"),
	}
	env.catalogDir = filepath.Join(env.CacheDir, "repos", RepoName, "packages")
	for _, dir := range []string{env.Root, env.CacheDir, env.SourceDir, env.catalogDir} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}

	cfg := config.DefaultConfig()
	cfg.Settings.RootDir = env.Root
	cfg.Settings.InstallPrefix = "/usr/local"
	cfg.Settings.CacheDir = env.CacheDir
	cfg.Settings.LogLevel = "error"
	require.NoError(t, cfg.AddRepository(RepoName, "https://example.invalid/catalog.git", true))
	require.NoError(t, cfg.SaveConfig(env.ConfigPath))

	return env
}

// AddPackage writes a package definition into the local catalog.
func (e *Env) AddPackage(t *testing.T, pkg *model.Package) {
	t.Helper()
	data, err := json.MarshalIndent(pkg, "", "  ")
	require.NoError(t, err)
	path := filepath.Join(e.catalogDir, pkg.Name+".json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// AddSourceArchive writes a gzipped tarball with a single top-level
// directory into the source area and returns its path, usable as a
// package's source URL.
func (e *Env) AddSourceArchive(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	path := filepath.Join(e.SourceDir, name+".tar.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	for file, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name + "/" + file,
			Mode: 0o755,
			Size: int64(len(content)),
		}))
		_, err = tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())
	return path
}

// ServeSources starts an HTTP server over the source area, for packages
// whose definitions use http URLs. The server stops with the test.
func (e *Env) ServeSources(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.FileServer(http.Dir(e.SourceDir)))
	t.Cleanup(server.Close)
	return server.URL
}

// DatabasePath returns where the environment's installed database lives.
func (e *Env) DatabasePath() string {
	return filepath.Join(e.Root, "var", "lib", "tinypkg", "installed.db")
}
