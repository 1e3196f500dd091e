//go:generate mockgen -destination=mocks/repository.go . Manager,GitRunner
package repository

import "context"

// Manager defines the interface for synchronizing package repositories.
type Manager interface {
	// Sync brings one named repository checkout up to date, cloning it
	// if necessary.
	Sync(ctx context.Context, name string) error

	// SyncAll syncs every enabled repository, continuing past individual
	// failures and reporting them together.
	SyncAll(ctx context.Context) error

	// Revision returns the short commit hash of a repository checkout.
	Revision(name string) (string, error)
}

// GitRunner executes git commands. The exec-backed implementation is the
// only one used in production; tests substitute their own.
type GitRunner interface {
	// Run executes git with the given arguments in dir (empty dir means
	// the process working directory) and returns the combined output.
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
}
