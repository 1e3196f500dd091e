// Package repository keeps local checkouts of the configured package
// repositories in sync with their git remotes.
package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cowmonk/tinypkg/internal/logger"
	"github.com/cowmonk/tinypkg/pkg/config"
	"github.com/cowmonk/tinypkg/pkg/errors"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// ManagerImpl implements Manager on top of a GitRunner.
type ManagerImpl struct {
	repos       []*config.RepositoryConfig
	baseDir     string
	concurrency int
	git         GitRunner
}

// NewManager creates a repository manager. baseDir is the directory
// checkouts are created under, one subdirectory per repository name.
func NewManager(repos []*config.RepositoryConfig, baseDir string, concurrency int, git GitRunner) *ManagerImpl {
	if git == nil {
		git = ExecGitRunner{}
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &ManagerImpl{
		repos:       repos,
		baseDir:     baseDir,
		concurrency: concurrency,
		git:         git,
	}
}

// Sync brings the named repository checkout up to date.
func (m *ManagerImpl) Sync(ctx context.Context, name string) error {
	repo := m.find(name)
	if repo == nil {
		return errors.Wrapf(errors.ErrRepositoryNotFound, "%s", name)
	}
	return m.syncRepo(ctx, repo)
}

// SyncAll syncs every enabled repository with bounded concurrency. Failures
// are collected per repository; syncing continues past them.
func (m *ManagerImpl) SyncAll(ctx context.Context) error {
	var mu sync.Mutex
	var merr *multierror.Error

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(m.concurrency)

	for _, repo := range m.repos {
		if !repo.Enabled {
			continue
		}
		group.Go(func() error {
			if err := m.syncRepo(ctx, repo); err != nil {
				mu.Lock()
				merr = multierror.Append(merr, errors.Wrapf(err, "repository %s", repo.Name))
				mu.Unlock()
			}
			return nil
		})
	}

	_ = group.Wait()
	return merr.ErrorOrNil()
}

// Revision returns the short commit hash of the checkout for name.
func (m *ManagerImpl) Revision(name string) (string, error) {
	repo := m.find(name)
	if repo == nil {
		return "", errors.Wrapf(errors.ErrRepositoryNotFound, "%s", name)
	}
	dir := m.repoDir(repo.Name)
	out, err := m.git.Run(context.Background(), dir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", errors.Wrapf(errors.ErrRepositorySync, "%s: %v", name, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (m *ManagerImpl) find(name string) *config.RepositoryConfig {
	for _, repo := range m.repos {
		if repo.Name == name {
			return repo
		}
	}
	return nil
}

func (m *ManagerImpl) repoDir(name string) string {
	return filepath.Join(m.baseDir, name)
}

func (m *ManagerImpl) syncRepo(ctx context.Context, repo *config.RepositoryConfig) error {
	dir := m.repoDir(repo.Name)

	if !isGitCheckout(dir) {
		// Either a fresh sync or a directory left in a broken state;
		// start over.
		if err := os.RemoveAll(dir); err != nil {
			return errors.Wrapf(errors.ErrRepositorySync, "could not clear %s: %v", dir, err)
		}
		return m.clone(ctx, repo, dir)
	}
	return m.update(ctx, repo, dir)
}

func (m *ManagerImpl) clone(ctx context.Context, repo *config.RepositoryConfig, dir string) error {
	logger.InfofWithFields(logger.Fields{"repo": repo.Name}, "Cloning %s", repo.URL)
	_, err := m.git.Run(ctx, "", "clone", "--depth=1", "--branch", repo.Branch, repo.URL, dir)
	if err != nil {
		return errors.Wrapf(errors.ErrRepositorySync, "clone of %s failed: %v", repo.Name, err)
	}
	return nil
}

// update fast-forwards an existing checkout, falling back to a hard reset
// against the remote branch when the local history has diverged.
func (m *ManagerImpl) update(ctx context.Context, repo *config.RepositoryConfig, dir string) error {
	logger.DebugfWithFields(logger.Fields{"repo": repo.Name}, "Updating checkout %s", dir)
	if _, err := m.git.Run(ctx, dir, "pull", "--ff-only"); err == nil {
		return nil
	}

	if _, err := m.git.Run(ctx, dir, "fetch", "origin"); err != nil {
		return errors.Wrapf(errors.ErrRepositorySync, "fetch of %s failed: %v", repo.Name, err)
	}
	if _, err := m.git.Run(ctx, dir, "reset", "--hard", "origin/"+repo.Branch); err != nil {
		return errors.Wrapf(errors.ErrRepositorySync, "reset of %s failed: %v", repo.Name, err)
	}
	return nil
}

func isGitCheckout(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}
