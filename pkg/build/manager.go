// Package build drives the download, extract, configure, compile and
// install pipeline for one package at a time. All external tools run
// through a Runner so the pipeline is testable without a toolchain.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/cowmonk/tinypkg/internal/logger"
	"github.com/cowmonk/tinypkg/pkg/download"
	"github.com/cowmonk/tinypkg/pkg/errors"
	"github.com/cowmonk/tinypkg/pkg/fsutil"
	"github.com/cowmonk/tinypkg/pkg/model"
)

// Downloader is the subset of the download manager used by the builder.
type Downloader interface {
	Fetch(ctx context.Context, item download.Item, opts download.Options) (string, error)
	FetchAll(ctx context.Context, items []download.Item, opts download.Options) (map[string]string, error)
}

// Manager defines the builder interface consumed by the orchestrator.
type Manager interface {
	// Prefetch downloads the source archives for pkgs into the cache so
	// the per-package download stages find them locally.
	Prefetch(ctx context.Context, pkgs []*model.Package) error

	// Build runs download, extract, configure and compile for one package.
	Build(ctx context.Context, pkg *model.Package) error

	// Install stages the built package into a DESTDIR, merges it into the
	// root and returns the installed size in bytes. It requires a prior
	// successful Build in the same process.
	Install(ctx context.Context, pkg *model.Package) (int64, error)

	// Status reports the pipeline stage of an in-flight build.
	Status(name string) (Status, bool)
}

// Options configure a build manager.
type Options struct {
	BuildDir        string // root of per-package work trees
	SourceCacheDir  string // where fetched archives are kept
	RootDir         string // installation root the staged tree merges into
	InstallPrefix   string // prefix handed to configure/cmake
	Jobs            int    // parallel compile jobs; 0 = NumCPU
	KeepBuildDir    bool   // keep work trees after successful installs
	VerifyChecksums bool
}

// ManagerImpl implements Manager.
type ManagerImpl struct {
	dl       Downloader
	runner   Runner
	registry *Registry
	opts     Options
}

// NewManager creates a build manager. A nil runner defaults to ExecRunner.
func NewManager(dl Downloader, runner Runner, opts Options) *ManagerImpl {
	if runner == nil {
		runner = ExecRunner{}
	}
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.NumCPU()
	}
	return &ManagerImpl{
		dl:       dl,
		runner:   runner,
		registry: NewRegistry(),
		opts:     opts,
	}
}

// Status reports the pipeline stage of an in-flight build.
func (m *ManagerImpl) Status(name string) (Status, bool) {
	return m.registry.Status(name)
}

// Active returns the currently tracked build contexts.
func (m *ManagerImpl) Active() []*Context {
	return m.registry.Active()
}

// workDir returns the per-package work tree root.
func (m *ManagerImpl) workDir(pkg *model.Package) string {
	return filepath.Join(m.opts.BuildDir, fmt.Sprintf("%s-%s", pkg.Name, pkg.Version))
}

// Prefetch fetches the source archives for pkgs concurrently. A hit in the
// source cache later satisfies each package's own download stage.
func (m *ManagerImpl) Prefetch(ctx context.Context, pkgs []*model.Package) error {
	items := make([]download.Item, 0, len(pkgs))
	for _, pkg := range pkgs {
		items = append(items, download.Item{
			Name:     pkg.Name,
			URL:      pkg.Source,
			Checksum: pkg.Checksum,
		})
	}
	if len(items) == 0 {
		return nil
	}
	_, err := m.dl.FetchAll(ctx, items, download.Options{
		Dir:    m.opts.SourceCacheDir,
		Verify: m.opts.VerifyChecksums,
	})
	return err
}

// Build runs the download → extract → configure → compile stages.
func (m *ManagerImpl) Build(ctx context.Context, pkg *model.Package) error {
	work := m.workDir(pkg)
	bctx := &Context{
		Name:      pkg.Name,
		Version:   pkg.Version,
		Status:    StatusInit,
		StartedAt: time.Now(),
		WorkDir:   work,
		SourceDir: filepath.Join(work, "src"),
		StageDir:  filepath.Join(work, "stage"),
	}
	if !m.registry.Register(bctx) {
		logger.Debugf("Build registry full; %s proceeds untracked", pkg.Name)
	}

	if err := m.runBuildStages(ctx, pkg, bctx); err != nil {
		m.registry.SetStatus(pkg.Name, StatusFailed)
		return err
	}
	return nil
}

func (m *ManagerImpl) runBuildStages(ctx context.Context, pkg *model.Package, bctx *Context) error {
	// A left-over work tree from a previous attempt would confuse the
	// build system detection.
	if err := os.RemoveAll(bctx.WorkDir); err != nil {
		return errors.Wrapf(errors.ErrBuildFailed, "%s: could not clear work dir: %v", pkg.Name, err)
	}
	for _, dir := range []string{bctx.SourceDir, bctx.StageDir} {
		if err := fsutil.EnsureDir(dir); err != nil {
			return errors.Wrapf(errors.ErrBuildFailed, "%s: %v", pkg.Name, err)
		}
	}

	m.registry.SetStatus(pkg.Name, StatusDownloading)
	archivePath, err := m.dl.Fetch(ctx, download.Item{
		Name:     pkg.Name,
		URL:      pkg.Source,
		Checksum: pkg.Checksum,
	}, download.Options{Dir: m.opts.SourceCacheDir, Verify: m.opts.VerifyChecksums})
	if err != nil {
		return errors.Wrapf(errors.ErrBuildFailed, "%s: download stage: %v", pkg.Name, err)
	}

	m.registry.SetStatus(pkg.Name, StatusExtracting)
	if err := extractArchive(ctx, archivePath, bctx.SourceDir); err != nil {
		return errors.Wrapf(errors.ErrBuildFailed, "%s: extract stage: %v", pkg.Name, err)
	}

	system, err := m.detectBuildSystem(pkg, bctx.SourceDir)
	if err != nil {
		return err
	}
	logger.DebugfWithFields(logger.Fields{"package": pkg.Name}, "Using %s build system", system)

	m.registry.SetStatus(pkg.Name, StatusConfiguring)
	if err := m.configure(ctx, pkg, bctx, system); err != nil {
		return err
	}

	m.registry.SetStatus(pkg.Name, StatusBuilding)
	return m.compile(ctx, pkg, bctx, system)
}

// Install stages the built tree into a DESTDIR, measures it, and merges it
// into the installation root.
func (m *ManagerImpl) Install(ctx context.Context, pkg *model.Package) (int64, error) {
	work := m.workDir(pkg)
	bctx := &Context{
		Name:      pkg.Name,
		Version:   pkg.Version,
		WorkDir:   work,
		SourceDir: filepath.Join(work, "src"),
		StageDir:  filepath.Join(work, "stage"),
	}
	if _, err := os.Stat(bctx.SourceDir); err != nil {
		return 0, errors.Wrapf(errors.ErrBuildFailed, "%s: not built in this run (missing %s)", pkg.Name, bctx.SourceDir)
	}

	size, err := m.runInstallStage(ctx, pkg, bctx)
	if err != nil {
		m.registry.SetStatus(pkg.Name, StatusFailed)
		return 0, err
	}

	m.registry.SetStatus(pkg.Name, StatusComplete)
	m.registry.Done(pkg.Name)

	if !m.opts.KeepBuildDir {
		if err := os.RemoveAll(bctx.WorkDir); err != nil {
			logger.Warnf("Could not remove work tree %s: %v", bctx.WorkDir, err)
		}
	}
	return size, nil
}

func (m *ManagerImpl) runInstallStage(ctx context.Context, pkg *model.Package, bctx *Context) (int64, error) {
	system, err := m.detectBuildSystem(pkg, bctx.SourceDir)
	if err != nil {
		return 0, err
	}

	m.registry.SetStatus(pkg.Name, StatusInstalling)

	installDir := bctx.SourceDir
	if system == model.BuildSystemCMake {
		installDir = filepath.Join(bctx.SourceDir, "build")
	}
	out, err := m.runner.Run(ctx, installDir, "make", "DESTDIR="+bctx.StageDir, "install")
	if err != nil {
		return 0, errors.Wrapf(errors.ErrBuildFailed, "%s: install stage: %v: %s", pkg.Name, err, tail(out))
	}

	size, err := fsutil.DirSize(bctx.StageDir)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrBuildFailed, "%s: could not measure staged tree: %v", pkg.Name, err)
	}

	if err := mergeTree(bctx.StageDir, m.opts.RootDir); err != nil {
		return 0, errors.Wrapf(errors.ErrBuildFailed, "%s: merging staged tree: %v", pkg.Name, err)
	}
	return size, nil
}

// detectBuildSystem returns the declared build system, or autodetects from
// the source tree: CMakeLists.txt wins over a configure script, which wins
// over a bare Makefile.
func (m *ManagerImpl) detectBuildSystem(pkg *model.Package, sourceDir string) (string, error) {
	if pkg.BuildSystem != "" {
		return pkg.BuildSystem, nil
	}
	switch {
	case fileExists(filepath.Join(sourceDir, "CMakeLists.txt")):
		return model.BuildSystemCMake, nil
	case fileExists(filepath.Join(sourceDir, "configure")):
		return model.BuildSystemAutotools, nil
	case fileExists(filepath.Join(sourceDir, "Makefile")):
		return model.BuildSystemMake, nil
	}
	return "", errors.Wrapf(errors.ErrBuildFailed, "%s: no recognizable build system in %s", pkg.Name, sourceDir)
}

func (m *ManagerImpl) configure(ctx context.Context, pkg *model.Package, bctx *Context, system string) error {
	switch system {
	case model.BuildSystemCMake:
		out, err := m.runner.Run(ctx, bctx.SourceDir, "cmake",
			"-S", ".", "-B", "build",
			"-DCMAKE_INSTALL_PREFIX="+m.opts.InstallPrefix)
		if err != nil {
			return errors.Wrapf(errors.ErrBuildFailed, "%s: configure stage: %v: %s", pkg.Name, err, tail(out))
		}
	case model.BuildSystemAutotools:
		out, err := m.runner.Run(ctx, bctx.SourceDir, "./configure", "--prefix="+m.opts.InstallPrefix)
		if err != nil {
			return errors.Wrapf(errors.ErrBuildFailed, "%s: configure stage: %v: %s", pkg.Name, err, tail(out))
		}
	case model.BuildSystemMake:
		// Nothing to configure.
	}
	return nil
}

func (m *ManagerImpl) compile(ctx context.Context, pkg *model.Package, bctx *Context, system string) error {
	var out []byte
	var err error
	if system == model.BuildSystemCMake {
		out, err = m.runner.Run(ctx, bctx.SourceDir, "cmake", "--build", "build", "-j", strconv.Itoa(m.opts.Jobs))
	} else {
		out, err = m.runner.Run(ctx, bctx.SourceDir, "make", fmt.Sprintf("-j%d", m.opts.Jobs))
	}
	if err != nil {
		return errors.Wrapf(errors.ErrBuildFailed, "%s: compile stage: %v: %s", pkg.Name, err, tail(out))
	}
	return nil
}

// mergeTree moves every file from the staged tree into root, creating
// directories as needed and replacing existing files.
func mergeTree(stageDir, root string) error {
	return filepath.WalkDir(stageDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(stageDir, path)
		if err != nil || rel == "." {
			return err
		}
		target := filepath.Join(root, rel)
		if d.IsDir() {
			return fsutil.EnsureDir(target)
		}
		// Replace, never merge, individual files.
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return err
		}
		return fsutil.Move(path, target)
	})
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// tail returns the last portion of command output for error reporting.
func tail(out []byte) string {
	const limit = 800
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return string(out)
}
