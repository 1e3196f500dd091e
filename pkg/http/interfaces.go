//go:generate mockgen -destination=mocks/http.go . Client
package http

import "context"

// Client defines the interface for HTTP file transfers.
type Client interface {
	// DownloadFile streams the resource at rawURL into the file at dest.
	// It returns an error if the transfer fails or the server responds
	// with a non-2xx status.
	DownloadFile(ctx context.Context, rawURL, dest string) error
}
