//go:generate mockgen -destination=./mocks/orchestrator.go -package=mocks . Catalog,Resolver,Builder,Database,HookRunner

package orchestrator

import (
	"context"

	"github.com/cowmonk/tinypkg/pkg/hooks"
	"github.com/cowmonk/tinypkg/pkg/model"
	"github.com/cowmonk/tinypkg/pkg/resolve"
)

// Catalog is the subset of the catalog manager used by the orchestrator.
type Catalog interface {
	Lookup(name string) (*model.Package, error)
	Resolve(name string) (*model.Package, error)
}

// Resolver produces a dependency-first installation order for a package.
type Resolver interface {
	Resolve(root string) (resolve.InstallOrder, error)
}

// Builder is the subset of the build manager used by the orchestrator.
type Builder interface {
	Prefetch(ctx context.Context, pkgs []*model.Package) error
	Build(ctx context.Context, pkg *model.Package) error
	Install(ctx context.Context, pkg *model.Package) (int64, error)
}

// Database is the subset of the installed database used by the orchestrator.
type Database interface {
	Load() error
	Find(name string) *model.InstalledPackage
	IsInstalled(name string) bool
	AddOrReplace(pkg *model.InstalledPackage) error
	SetState(name string, state model.InstallState) error
	Remove(name string) error
	All() []*model.InstalledPackage
	Save() error
}

// HookRunner executes a package's lifecycle scripts.
type HookRunner interface {
	Run(hookType hooks.HookType, pkg *model.Package, ctx hooks.Context) error
}

// Orchestrator ties catalog, resolver, builder and database together for
// the package lifecycle operations.
type Orchestrator struct {
	Catalog    Catalog
	Resolver   Resolver
	Builder    Builder
	DB         Database
	HookRunner HookRunner
	Hooks      Hooks // Hooks for progress and event notifications

	RootDir   string // installation root files are removed from
	BackupDir string // where config files are parked across updates
}

// Event represents a simple progress notification.
type Event struct {
	Phase   string // resolving|building|installing|removing|updating|done|error
	Package string
	Msg     string
}

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
}

// Options control orchestrator execution.
type Options struct {
	Force            bool // reinstall, downgrade, or remove despite dependents
	SkipDependencies bool // operate on the named package only
}

// New constructs an Orchestrator from existing managers. Hooks can be the
// zero value if no event handling is needed.
func New(catalog Catalog, resolver Resolver, builder Builder, db Database, hookRunner HookRunner, hooks Hooks) *Orchestrator {
	return &Orchestrator{
		Catalog:    catalog,
		Resolver:   resolver,
		Builder:    builder,
		DB:         db,
		HookRunner: hookRunner,
		Hooks:      hooks,
	}
}
