// Package download fetches package source archives into the local cache,
// de-duplicating by URL and verifying checksums when configured.
package download

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/cowmonk/tinypkg/internal/logger"
	pkgerrors "github.com/cowmonk/tinypkg/pkg/errors"
	"github.com/cowmonk/tinypkg/pkg/fsutil"
	tinypkghttp "github.com/cowmonk/tinypkg/pkg/http"
	"github.com/cowmonk/tinypkg/pkg/integrity"
)

// ManagerImpl is an HTTP-backed source fetcher with cache reuse and optional
// checksum verification. Local source paths are verified in place and never
// copied into the cache.
type ManagerImpl struct {
	client tinypkghttp.Client
}

// NewManager creates a new download manager on top of the given transfer
// client.
func NewManager(client tinypkghttp.Client) *ManagerImpl {
	return &ManagerImpl{client: client}
}

// Fetch downloads a single item and returns the path to the fetched file.
func (m *ManagerImpl) Fetch(ctx context.Context, item Item, opts Options) (string, error) {
	if opts.Dir == "" || !filepath.IsAbs(opts.Dir) {
		return "", pkgerrors.Wrapf(pkgerrors.ErrDownloadFailed, "download dir must be absolute: %s", opts.Dir)
	}
	if err := fsutil.EnsureDir(opts.Dir); err != nil {
		return "", pkgerrors.Wrap(err, "could not create download dir")
	}
	return m.fetchOne(ctx, item, opts)
}

// FetchAll downloads multiple items concurrently and returns a map of item
// names to fetched file paths.
func (m *ManagerImpl) FetchAll(ctx context.Context, items []Item, opts Options) (map[string]string, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = max(2, runtime.NumCPU()/2)
	}
	if opts.Dir == "" || !filepath.IsAbs(opts.Dir) {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrDownloadFailed, "download dir must be absolute: %s", opts.Dir)
	}
	if err := fsutil.EnsureDir(opts.Dir); err != nil {
		return nil, pkgerrors.Wrap(err, "could not create download dir")
	}

	byURL, err := buildURLIndex(items)
	if err != nil {
		return nil, err
	}
	results, err := m.runDownloadWorkers(ctx, items, byURL, opts)
	if err != nil {
		return nil, err
	}
	return mapResultsByName(items, results), nil
}

func buildURLIndex(items []Item) (map[string][]int, error) {
	byURL := make(map[string][]int)
	for i, it := range items {
		if it.URL == "" {
			return nil, pkgerrors.Wrapf(pkgerrors.ErrEmptyURL, "item %s has no source", it.Name)
		}
		byURL[it.URL] = append(byURL[it.URL], i)
	}
	return byURL, nil
}

func mapResultsByName(items []Item, results []string) map[string]string {
	out := make(map[string]string, len(items))
	for i, it := range items {
		out[it.Name] = results[i]
	}
	return out
}

func (m *ManagerImpl) runDownloadWorkers(ctx context.Context, items []Item, byURL map[string][]int, opts Options) ([]string, error) {
	results := make([]string, len(items))
	var firstErr error
	var mu sync.Mutex

	tasks := make(chan string)
	var wg sync.WaitGroup

	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for urlStr := range tasks {
				idx := byURL[urlStr][0]
				path, err := m.fetchOne(ctx, items[idx], opts)
				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					continue
				}
				for _, i := range byURL[urlStr] {
					results[i] = path
				}
				mu.Unlock()
			}
		}()
	}

	for urlStr := range byURL {
		tasks <- urlStr
	}
	close(tasks)
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

func (m *ManagerImpl) fetchOne(ctx context.Context, item Item, opts Options) (string, error) {
	if item.URL == "" {
		return "", pkgerrors.Wrapf(pkgerrors.ErrEmptyURL, "item %s has no source", item.Name)
	}
	if isLocalSource(item.URL) {
		return m.useLocalSource(item, opts)
	}

	absPath := filepath.Join(opts.Dir, selectFilename(item))
	if reuse, ok := tryReuseExisting(absPath, item.Checksum); ok {
		logger.Debugf("Reusing cached source for %s", item.Name)
		return reuse, nil
	}
	// A cache entry that exists but does not verify is stale. Drop it now
	// so the finalize step below only ever sees a file written by a
	// concurrent fetch.
	if _, err := os.Stat(absPath); err == nil {
		logger.Warnf("Stale cached source for %s; refetching", item.Name)
		_ = os.Remove(absPath)
	}

	tmpPath := absPath + ".part"
	if err := m.client.DownloadFile(ctx, item.URL, tmpPath); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to fetch %s", item.Name)
	}
	if err := m.checkDigest(tmpPath, item, opts); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	// A concurrent run may have finished the same download first. Its copy
	// wins when it verifies; it is never overwritten.
	if _, err := os.Stat(absPath); err == nil {
		_ = os.Remove(tmpPath)
		if reuse, ok := tryReuseExisting(absPath, item.Checksum); ok {
			return reuse, nil
		}
		return "", pkgerrors.Wrapf(pkgerrors.ErrDestinationExists, "%s appeared during download and fails verification", absPath)
	}
	if err := fsutil.Move(tmpPath, absPath); err != nil {
		return "", pkgerrors.Wrap(err, "could not finalize download")
	}
	return absPath, nil
}

// useLocalSource verifies a source that is already on disk instead of
// downloading it.
func (m *ManagerImpl) useLocalSource(item Item, opts Options) (string, error) {
	path := strings.TrimPrefix(item.URL, "file://")
	if _, err := os.Stat(path); err != nil {
		return "", pkgerrors.Wrapf(pkgerrors.ErrDownloadFailed, "local source %s: %v", path, err)
	}
	if err := m.checkDigest(path, item, opts); err != nil {
		return "", err
	}
	return path, nil
}

func (m *ManagerImpl) checkDigest(path string, item Item, opts Options) error {
	if !opts.Verify {
		return nil
	}
	if item.Checksum == "" {
		logger.Warnf("No checksum declared for %s; skipping verification", item.Name)
		return nil
	}
	return integrity.Verify(path, item.Checksum)
}

func isLocalSource(rawURL string) bool {
	if strings.HasPrefix(rawURL, "file://") {
		return true
	}
	u, err := url.Parse(rawURL)
	return err != nil || u.Scheme == ""
}

func selectFilename(item Item) string {
	if base := path.Base(item.URL); base != "" && base != "." && base != "/" {
		return base
	}
	return fmt.Sprintf("%s.src", item.Name)
}

func tryReuseExisting(absPath, checksum string) (string, bool) {
	st, err := os.Stat(absPath)
	if err != nil || st.Size() == 0 {
		return "", false
	}
	if checksum != "" {
		if err := integrity.Verify(absPath, checksum); err != nil {
			return "", false
		}
	}
	return absPath, true
}
