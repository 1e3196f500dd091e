//go:generate mockgen -destination=mocks/download.go . Manager
package download

import "context"

// Manager defines the interface for fetching package source archives. It
// replaces ad-hoc HTTP downloading with a higher-level, testable API that
// supports batching, de-duplication and integrity verification.
type Manager interface {
	// FetchAll downloads all items, respecting Options (e.g., concurrency
	// and cache dir). It returns a map from Item.Name to absolute local
	// file path.
	FetchAll(ctx context.Context, items []Item, opts Options) (map[string]string, error)

	// Fetch downloads a single item to a deterministic location within
	// opts.Dir and returns the absolute local file path.
	Fetch(ctx context.Context, item Item, opts Options) (string, error)
}

// Item represents one source archive to fetch.
type Item struct {
	Name     string // package name; must be unique within a batch
	URL      string // source locator: http(s) URL or absolute local path
	Checksum string // optional hex digest (md5/sha1/sha256 by length)
}

// Options control the behavior of the download manager.
type Options struct {
	Dir         string // destination directory (cache). Must be absolute.
	Concurrency int    // number of parallel downloads; if <=0, a sane default is used
	Verify      bool   // verify checksums; items without one are logged
}
