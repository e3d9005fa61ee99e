package origin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxBodyBytes bounds a single fetched payload. Exercise animations
// are a few MiB at most; anything larger is a misconfigured asset.
const DefaultMaxBodyBytes = 64 << 20

// HTTP fetches assets with plain HTTP GET. Any 2xx response with a binary
// body is accepted; no custom headers or protocol beyond standard HTTP
// semantics are required of the backend.
type HTTP struct {
	client    *http.Client
	maxBody   int64
	userAgent string
}

// HTTPOption configures the HTTP origin.
type HTTPOption func(*HTTP)

// WithClient sets the underlying http.Client. The default client has a
// 30s total-request timeout.
func WithClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

// WithMaxBodyBytes caps the accepted payload size. Responses larger than
// the cap fail the fetch.
func WithMaxBodyBytes(n int64) HTTPOption {
	return func(h *HTTP) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// WithUserAgent sets the User-Agent header on outbound requests.
func WithUserAgent(ua string) HTTPOption {
	return func(h *HTTP) {
		h.userAgent = ua
	}
}

// NewHTTP creates an HTTP origin.
func NewHTTP(opts ...HTTPOption) *HTTP {
	h := &HTTP{
		client:  &http.Client{Timeout: 30 * time.Second},
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Fetch implements Origin.
func (h *HTTP) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}
	if int64(len(body)) > h.maxBody {
		return nil, fmt.Errorf("payload of %s exceeds %d bytes", url, h.maxBody)
	}

	return body, nil
}
