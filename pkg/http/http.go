// Package http provides the low-level HTTP transfer client used to fetch
// package source archives.
package http

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cowmonk/tinypkg/pkg/auth"
	"github.com/cowmonk/tinypkg/pkg/errors"
	"github.com/cowmonk/tinypkg/pkg/fsutil"
)

// UserAgent is sent with every request.
const UserAgent = "tinypkg/1.0"

// ClientImpl streams remote files to disk with an optional per-host
// Authenticator applied to each request.
type ClientImpl struct {
	client *http.Client
	auth   map[string]auth.Authenticator // keyed by URL host
}

// NewClient creates a new transfer client with the given timeout. The
// authenticators map may be nil.
func NewClient(timeout time.Duration, authenticators map[string]auth.Authenticator) *ClientImpl {
	return &ClientImpl{
		client: &http.Client{Timeout: timeout},
		auth:   authenticators,
	}
}

// DownloadFile downloads rawURL into dest. The destination file is created
// (or truncated) with default permissions; partially written files are
// removed on failure.
func (c *ClientImpl) DownloadFile(ctx context.Context, rawURL, dest string) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return errors.Wrapf(err, "failed to create request for %s", rawURL)
	}
	req.Header.Set("User-Agent", UserAgent)

	if authenticator, ok := c.auth[req.URL.Host]; ok {
		if err := authenticator.Apply(req); err != nil {
			return errors.Wrapf(err, "failed to authenticate request for %s", rawURL)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(errors.ErrDownloadFailed, "%s: %v", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return errors.Wrapf(errors.ErrHTTPStatus, "%s returned %d", rawURL, resp.StatusCode)
	}

	if err := fsutil.EnsureFileDir(dest); err != nil {
		return errors.Wrap(err, "could not create destination directory")
	}
	file, err := fsutil.CreateFilePerm(dest, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(err, "could not create destination file")
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "could not close destination file")
		}
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return errors.Wrapf(err, "failed to write %s", dest)
	}
	if err := file.Sync(); err != nil {
		return errors.Wrapf(err, "failed to sync %s", dest)
	}

	return nil
}
