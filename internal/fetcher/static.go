package fetcher

import (
	"context"
	"fmt"

	"github.com/gocolly/colly/v2"
)

// Static fetches pages over plain HTTP using Colly.
type Static struct {
	config Config
}

// NewStatic creates a new static fetcher.
func NewStatic(cfg Config) *Static {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Static{config: cfg}
}

// Fetch retrieves the raw HTML for a URL.
func (f *Static) Fetch(ctx context.Context, targetURL string) (string, error) {
	// A fresh collector per request keeps fetches independent; Colly
	// otherwise refuses to revisit a URL within one collector.
	c := colly.NewCollector(
		colly.UserAgent(f.config.UserAgent),
	)
	c.SetRequestTimeout(f.config.Timeout)

	c.OnRequest(func(r *colly.Request) {
		select {
		case <-ctx.Done():
			r.Abort()
		default:
		}
		r.Headers.Set("Accept", "text/html,application/xhtml+xml")
		r.Headers.Set("Accept-Language", "en-CA,en;q=0.9")
	})

	var html string
	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		html = string(r.Body)
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			err = fmt.Errorf("status %d: %w", r.StatusCode, err)
		}
		fetchErr = err
	})

	if err := c.Visit(targetURL); err != nil {
		return "", &FetchError{URL: targetURL, Err: err}
	}
	if fetchErr != nil {
		return "", &FetchError{URL: targetURL, Err: fetchErr}
	}
	if err := ctx.Err(); err != nil {
		return "", &FetchError{URL: targetURL, Err: err}
	}

	return html, nil
}

// Close releases resources.
func (f *Static) Close() error {
	return nil
}

// Type returns the fetcher type.
func (f *Static) Type() string {
	return "static"
}
