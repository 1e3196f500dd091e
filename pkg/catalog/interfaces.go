//go:generate mockgen -destination=mocks/catalog.go . Manager
package catalog

import "github.com/cowmonk/tinypkg/pkg/model"

// Manager defines the read-only package catalog consumed by the resolver,
// the orchestrator and the CLI.
type Manager interface {
	// Lookup returns the definition for the exactly named package, or
	// ErrPackageNotFound.
	Lookup(name string) (*model.Package, error)

	// Resolve behaves like Lookup but falls back to scanning for a
	// package whose Provides list contains the name.
	Resolve(name string) (*model.Package, error)

	// Search returns definitions whose name or description contains the
	// term, case-insensitively.
	Search(term string) []*model.Package

	// All returns every resolvable definition, deduplicated by repository
	// priority and sorted by name.
	All() []*model.Package
}
