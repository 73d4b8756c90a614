// Package fetcher handles retrieval of marketplace pages.
package fetcher

import (
	"context"
	"fmt"
	"time"
)

// Browser-identifying defaults. The marketplace serves a stripped page to
// clients without a plausible User-Agent.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)" +
	" AppleWebKit/537.36 (KHTML, like Gecko)" +
	" Chrome/74.0.3729.169 Safari/537.36"

// Fetcher abstracts page fetching strategies.
type Fetcher interface {
	// Fetch retrieves the raw HTML for a URL.
	Fetch(ctx context.Context, url string) (string, error)

	// Close releases any resources (browser instances, etc.).
	Close() error

	// Type returns "static" or "dynamic".
	Type() string
}

// Config holds common fetcher configuration.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent: defaultUserAgent,
		Timeout:   15 * time.Second,
	}
}

// FetchError reports a transport-level failure (timeout, DNS, non-2xx
// status) for a single URL. Callers log it and move on; there are no
// retries.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
