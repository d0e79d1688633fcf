// Package fetch retrieves BIMI evidence (VMC bundles and indicator
// images) over HTTP with size limits.
//
// Transport failures are marked temporary so callers can distinguish
// retryable conditions from permanent validation failures.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fetch errors.
var (
	// ErrTransport indicates a network or HTTP failure that is plausibly
	// resolved by retrying later.
	ErrTransport = errors.New("fetch: transport error")

	// ErrSizeExceeded indicates the response body exceeds the configured
	// size limit.
	ErrSizeExceeded = errors.New("fetch: size limit exceeded")
)

// IsTemporary reports whether err is a transient transport condition.
func IsTemporary(err error) bool {
	return errors.Is(err, ErrTransport)
}

// Fetcher retrieves the raw bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher is a size-limited Fetcher backed by net/http.
type HTTPFetcher struct {
	// Client is the HTTP client to use. Nil means a client with a
	// 30 second timeout.
	Client *http.Client

	// UserAgent is sent as the User-Agent header when non-empty.
	UserAgent string

	// MaxSize caps the response body in bytes. Zero means unlimited.
	MaxSize int64
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher returns a fetcher with a 30 second timeout and no
// size limit.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch retrieves the URL, enforcing the size limit both against the
// declared Content-Length and the streamed body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: invalid url %q: %v", url, err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %s for %s", ErrTransport, resp.Status, url)
	}

	if f.MaxSize > 0 && resp.ContentLength > f.MaxSize {
		return nil, fmt.Errorf("%w: declared size %d exceeds limit %d bytes", ErrSizeExceeded, resp.ContentLength, f.MaxSize)
	}

	var body io.Reader = resp.Body
	if f.MaxSize > 0 {
		body = io.LimitReader(resp.Body, f.MaxSize+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrTransport, err)
	}
	if f.MaxSize > 0 && int64(len(data)) > f.MaxSize {
		return nil, fmt.Errorf("%w: body exceeds limit %d bytes", ErrSizeExceeded, f.MaxSize)
	}

	return data, nil
}
