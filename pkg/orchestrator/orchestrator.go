// Package orchestrator drives the package lifecycle: it resolves
// dependencies through the resolver, builds and installs through the
// build manager, and records results in the installed database.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
	version "github.com/hashicorp/go-version"

	"github.com/cowmonk/tinypkg/internal/logger"
	"github.com/cowmonk/tinypkg/pkg/errors"
	"github.com/cowmonk/tinypkg/pkg/fsutil"
	"github.com/cowmonk/tinypkg/pkg/hooks"
	"github.com/cowmonk/tinypkg/pkg/model"
	"github.com/cowmonk/tinypkg/pkg/resolve"
)

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// interrupted reports a cancelled context as ErrInterrupted. It is polled
// between packages so a signal never leaves a half-installed package.
func interrupted(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return errors.Wrapf(errors.ErrInterrupted, "%v", ctx.Err())
	default:
		return nil
	}
}

// Install resolves name, builds its missing dependencies in dependency
// order, and installs them. Already-installed dependencies are skipped;
// the named package itself is rebuilt when opts.Force is set. Every
// package that is about to be installed, dependencies included, is
// checked against the conflict declarations of the installed set.
func (o *Orchestrator) Install(ctx context.Context, name string, opts Options) error {
	if err := o.DB.Load(); err != nil {
		return err
	}

	pkg, err := o.Catalog.Resolve(name)
	if err != nil {
		return err
	}

	if o.DB.IsInstalled(pkg.Name) && !opts.Force {
		emit(o.Hooks, Event{Phase: "done", Package: pkg.Name, Msg: "already installed"})
		return nil
	}

	order := resolve.InstallOrder{pkg.Name}
	if !opts.SkipDependencies {
		emit(o.Hooks, Event{Phase: "resolving", Package: pkg.Name})
		order, err = o.Resolver.Resolve(pkg.Name)
		if err != nil {
			return err
		}
	}

	pending := make([]*model.Package, 0, len(order))
	for _, entry := range order {
		if o.DB.IsInstalled(entry) && !(opts.Force && entry == pkg.Name) {
			continue
		}
		p, err := o.Catalog.Resolve(entry)
		if err != nil {
			return err
		}
		pending = append(pending, p)
	}

	if len(pending) > 1 {
		emit(o.Hooks, Event{Phase: "fetching", Package: pkg.Name})
		if err := o.Builder.Prefetch(ctx, pending); err != nil {
			return err
		}
	}

	for _, p := range pending {
		if err := interrupted(ctx); err != nil {
			return err
		}
		if err := o.installOne(ctx, p); err != nil {
			return err
		}
	}

	emit(o.Hooks, Event{Phase: "done", Package: pkg.Name})
	return nil
}

// InstallMany installs the named packages in order, stopping at the first
// failure.
func (o *Orchestrator) InstallMany(ctx context.Context, names []string, opts Options) error {
	for _, name := range names {
		if err := o.Install(ctx, name, opts); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) installOne(ctx context.Context, pkg *model.Package) error {
	if err := o.checkConflicts(pkg); err != nil {
		return err
	}
	hctx := hooks.Context{
		PackageName:    pkg.Name,
		PackageVersion: pkg.Version,
		InstallRoot:    o.RootDir,
	}

	if err := o.runHook(hooks.PreInstall, pkg, hctx, false); err != nil {
		return err
	}

	emit(o.Hooks, Event{Phase: "building", Package: pkg.Name, Msg: pkg.Version})
	o.markTransient(pkg.Name, model.StateBuilding)
	if err := o.Builder.Build(ctx, pkg); err != nil {
		o.markFailed(pkg.Name)
		return err
	}

	emit(o.Hooks, Event{Phase: "installing", Package: pkg.Name, Msg: pkg.Version})
	o.markTransient(pkg.Name, model.StateInstalling)
	size, err := o.Builder.Install(ctx, pkg)
	if err != nil {
		o.markFailed(pkg.Name)
		return err
	}

	if err := o.DB.AddOrReplace(&model.InstalledPackage{
		Name:          pkg.Name,
		Version:       pkg.Version,
		Description:   pkg.Description,
		InstalledSize: size,
		State:         model.StateInstalled,
	}); err != nil {
		return err
	}

	o.runHook(hooks.PostInstall, pkg, hctx, true)
	return nil
}

// markTransient records an in-flight state for packages that already have
// a database record, so an interrupted run stays visible in `list`. First
// installs leave no record behind until they finish.
func (o *Orchestrator) markTransient(name string, state model.InstallState) {
	if o.DB.Find(name) == nil {
		return
	}
	if err := o.DB.SetState(name, state); err != nil {
		logger.Debugf("Could not record %s state for %s: %v", state, name, err)
	}
}

// markFailed flips an existing database record to the failed state. A
// package that never made it into the database leaves no record behind.
func (o *Orchestrator) markFailed(name string) {
	if o.DB.Find(name) == nil {
		return
	}
	if err := o.DB.SetState(name, model.StateFailed); err != nil {
		logger.Warnf("Could not record failed state for %s: %v", name, err)
	}
}

// checkConflicts rejects an install when the candidate declares a conflict
// with an installed package, or an installed package declares one with it.
func (o *Orchestrator) checkConflicts(pkg *model.Package) error {
	for _, rec := range o.DB.All() {
		if !rec.IsInstalled() || rec.Name == pkg.Name {
			continue
		}
		if slices.Contains(pkg.Conflicts, rec.Name) {
			return errors.Wrapf(errors.ErrConflictDetected, "%s conflicts with installed package %s", pkg.Name, rec.Name)
		}
		other, err := o.Catalog.Lookup(rec.Name)
		if err != nil {
			logger.Debugf("No catalog definition for installed package %s: %v", rec.Name, err)
			continue
		}
		if slices.Contains(other.Conflicts, pkg.Name) {
			return errors.Wrapf(errors.ErrConflictDetected, "installed package %s conflicts with %s", rec.Name, pkg.Name)
		}
	}
	return nil
}

// Remove deletes an installed package's files and database record. Without
// opts.Force the operation is refused while other installed packages
// depend on it.
func (o *Orchestrator) Remove(ctx context.Context, name string, opts Options) error {
	if err := o.DB.Load(); err != nil {
		return err
	}
	if err := interrupted(ctx); err != nil {
		return err
	}

	rec := o.DB.Find(name)
	if rec == nil {
		logger.Warnf("%s is not installed", name)
		emit(o.Hooks, Event{Phase: "done", Package: name, Msg: "not installed"})
		return nil
	}

	if !opts.Force {
		if dependents := o.dependentsOf(name); len(dependents) > 0 {
			return errors.Wrapf(errors.ErrDependentsExist, "%s is required by %s", name, strings.Join(dependents, ", "))
		}
	}

	pkg, err := o.Catalog.Lookup(name)
	if err != nil {
		logger.Warnf("No catalog definition for %s; removing database record only: %v", name, err)
		pkg = nil
	}

	hctx := hooks.Context{PackageName: name, PackageVersion: rec.Version, InstallRoot: o.RootDir}
	if pkg != nil {
		if err := o.runHook(hooks.PreRemove, pkg, hctx, opts.Force); err != nil {
			return err
		}
	}

	emit(o.Hooks, Event{Phase: "removing", Package: name, Msg: rec.Version})
	if pkg != nil {
		o.removeFiles(pkg)
	}

	if err := o.DB.Remove(name); err != nil {
		return err
	}
	if err := o.DB.Save(); err != nil {
		return err
	}

	if pkg != nil {
		o.runHook(hooks.PostRemove, pkg, hctx, true)
	}
	emit(o.Hooks, Event{Phase: "done", Package: name})
	return nil
}

// RemoveMany removes the named packages in order, stopping at the first
// failure.
func (o *Orchestrator) RemoveMany(ctx context.Context, names []string, opts Options) error {
	for _, name := range names {
		if err := o.Remove(ctx, name, opts); err != nil {
			return err
		}
	}
	return nil
}

// dependentsOf lists installed packages whose dependency lists mention
// name. Packages without a catalog definition cannot be checked and are
// skipped.
func (o *Orchestrator) dependentsOf(name string) []string {
	var dependents []string
	for _, rec := range o.DB.All() {
		if rec.Name == name || !rec.IsInstalled() {
			continue
		}
		pkg, err := o.Catalog.Lookup(rec.Name)
		if err != nil {
			logger.Debugf("Skipping dependent check for %s: %v", rec.Name, err)
			continue
		}
		if pkg.DependsOn(name) {
			dependents = append(dependents, rec.Name)
		}
	}
	return dependents
}

// removeFiles deletes a package's files deepest-first and prunes the
// directories this empties. Missing files are tolerated.
func (o *Orchestrator) removeFiles(pkg *model.Package) {
	paths := make([]string, 0, len(pkg.Files))
	for _, rel := range pkg.Files {
		paths = append(paths, filepath.Join(o.RootDir, rel))
	}
	fsutil.SortByDepth(paths)

	dirs := make([]string, 0, len(paths))
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warnf("Could not remove %s: %v", path, err)
			continue
		}
		dirs = append(dirs, filepath.Dir(path))
	}
	fsutil.PruneEmptyDirs(o.RootDir, dirs)
}

// Update brings an installed package to the catalog version. A package
// that is not installed is installed instead, and an installed version
// that is already current is left alone unless opts.Force is set.
func (o *Orchestrator) Update(ctx context.Context, name string, opts Options) error {
	if err := o.DB.Load(); err != nil {
		return err
	}

	rec := o.DB.Find(name)
	if rec == nil || !rec.IsInstalled() {
		return o.Install(ctx, name, opts)
	}

	pkg, err := o.Catalog.Resolve(name)
	if err != nil {
		return err
	}

	if !opts.Force && !versionNewer(pkg.Version, rec.Version) {
		emit(o.Hooks, Event{Phase: "done", Package: name, Msg: "up to date"})
		return nil
	}

	emit(o.Hooks, Event{Phase: "updating", Package: name, Msg: rec.Version + " -> " + pkg.Version})

	backups, err := o.backupConfigFiles(pkg)
	if err != nil {
		return err
	}

	if err := o.Remove(ctx, name, Options{Force: true}); err != nil {
		return err
	}
	if err := o.Install(ctx, name, Options{SkipDependencies: opts.SkipDependencies}); err != nil {
		// Backups stay in place so a manual recovery can reach them.
		return err
	}

	o.restoreConfigFiles(backups)
	return nil
}

// UpdateAll updates every installed package, collecting per-package
// failures instead of stopping at the first one.
func (o *Orchestrator) UpdateAll(ctx context.Context, opts Options) error {
	if err := o.DB.Load(); err != nil {
		return err
	}

	// Snapshot up front; updates mutate the database underneath.
	installed := make([]string, 0)
	for _, rec := range o.DB.All() {
		if rec.IsInstalled() {
			installed = append(installed, rec.Name)
		}
	}

	var merr *multierror.Error
	for _, name := range installed {
		if err := interrupted(ctx); err != nil {
			merr = multierror.Append(merr, err)
			break
		}
		if err := o.Update(ctx, name, opts); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", name, err))
		}
	}
	return merr.ErrorOrNil()
}

// versionNewer reports whether candidate is strictly newer than installed.
// An unparseable version sorts below every parseable one.
func versionNewer(candidate, installed string) bool {
	cv, cerr := version.NewVersion(candidate)
	iv, ierr := version.NewVersion(installed)
	switch {
	case cerr != nil:
		return false
	case ierr != nil:
		return true
	default:
		return cv.GreaterThan(iv)
	}
}

// backupConfigFiles copies a package's config files that exist on disk
// into the backup area, returning backup path by install path.
func (o *Orchestrator) backupConfigFiles(pkg *model.Package) (map[string]string, error) {
	backups := make(map[string]string, len(pkg.ConfigFiles))
	for _, rel := range pkg.ConfigFiles {
		src := filepath.Join(o.RootDir, rel)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dst := filepath.Join(o.BackupDir, pkg.Name, rel)
		if err := fsutil.Copy(src, dst); err != nil {
			return nil, fmt.Errorf("backing up %s: %w", src, err)
		}
		backups[src] = dst
	}
	return backups, nil
}

// restoreConfigFiles puts backed-up config files back over the freshly
// installed ones and drops the backups.
func (o *Orchestrator) restoreConfigFiles(backups map[string]string) {
	for installed, backup := range backups {
		if err := fsutil.Copy(backup, installed); err != nil {
			logger.Warnf("Could not restore config file %s: %v", installed, err)
			continue
		}
		if err := os.Remove(backup); err != nil {
			logger.Debugf("Could not remove backup %s: %v", backup, err)
		}
	}
}

// runHook executes one lifecycle script. With swallow set a failure is
// logged and discarded, otherwise it aborts the operation.
func (o *Orchestrator) runHook(hookType hooks.HookType, pkg *model.Package, hctx hooks.Context, swallow bool) error {
	if o.HookRunner == nil {
		return nil
	}
	if err := o.HookRunner.Run(hookType, pkg, hctx); err != nil {
		if swallow {
			logger.Warnf("Hook %s for %s failed: %v", hookType, pkg.Name, err)
			return nil
		}
		return err
	}
	return nil
}
