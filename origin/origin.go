// Package origin abstracts where media assets are fetched from.
//
// Origin is the media cache's only outward boundary: on a cache miss the
// payload is fetched from the origin and stored across the cache tiers.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - HTTP: plain HTTP GET against asset URLs (the default)
//   - s3.Origin: assets hosted in an S3 bucket
//   - minio.Origin: assets hosted in MinIO or other S3-compatible storage
package origin

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when the origin has no object for the URL.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`.
var ErrNotFound = errors.New("media not found at origin")

// StatusError reports a non-2xx HTTP response from the origin.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("origin returned status %d for %s", e.StatusCode, e.URL)
}

// Origin fetches the binary payload of a media asset by URL.
type Origin interface {
	// Fetch downloads the asset. A nil error means the full payload was
	// received; callers own the returned slice.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Func adapts a plain function to the Origin interface.
type Func func(ctx context.Context, url string) ([]byte, error)

// Fetch implements Origin.
func (f Func) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}
