// Package pipeline orchestrates the search, fetch, extract and cache steps
// into one accumulated set of listings.
package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carhound/carhound/internal/cache"
	"github.com/carhound/carhound/internal/fetcher"
	"github.com/carhound/carhound/internal/logger"
	"github.com/carhound/carhound/internal/marketplace"
)

// Config holds pipeline settings.
type Config struct {
	BaseURL     string        // marketplace root, overridable for tests
	SearchDelay time.Duration // pause between search terms
	MaxResults  int           // result-count parameter per search
	Concurrency int           // parallel listing-page fetches per term
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:     marketplace.BaseURL,
		SearchDelay: 2 * time.Second,
		MaxResults:  100,
		Concurrency: 1,
	}
}

// Pipeline runs searches and accumulates extracted listings.
type Pipeline struct {
	fetcher   fetcher.Fetcher
	store     *cache.Store
	extractor *marketplace.Extractor
	cfg       Config
}

// New creates a Pipeline.
func New(f fetcher.Fetcher, store *cache.Store, cfg Config) *Pipeline {
	if cfg.BaseURL == "" {
		cfg.BaseURL = marketplace.BaseURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultConfig().MaxResults
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Pipeline{
		fetcher:   f,
		store:     store,
		extractor: marketplace.NewExtractor(),
		cfg:       cfg,
	}
}

// ParseFailures returns how many listing pages could not be parsed so far.
// Silent extraction decay is the main way this pipeline rots; callers
// surface the count at the end of a run.
func (p *Pipeline) ParseFailures() int64 {
	return p.extractor.Failures()
}

// Run executes every search term and returns the accumulated listings,
// deduplicated by URL across terms. Per-term and per-listing failures are
// logged and skipped; only criteria validation aborts.
func (p *Pipeline) Run(ctx context.Context, c Criteria) ([]marketplace.ListingRecord, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var records []marketplace.ListingRecord

	for i, term := range c.SearchTerms {
		mk, md := marketplace.ParseSearchTerm(term)
		logger.Info("searching marketplace",
			"make", mk, "model", md, "postal_code", c.PostalCode, "radius_km", c.RadiusKM)

		urls := p.discover(ctx, mk, md, c, seen)
		if len(urls) == 0 {
			logger.Warn("no listings found for term", "term", term)
		} else {
			collected := p.collect(ctx, urls)
			records = append(records, collected...)
			logger.Info("term complete", "term", term, "listings", len(collected))
		}

		if ctx.Err() != nil {
			return records, ctx.Err()
		}

		// Cooperative rate limiting between searches, not between
		// individual listing fetches.
		if i < len(c.SearchTerms)-1 && p.cfg.SearchDelay > 0 {
			select {
			case <-time.After(p.cfg.SearchDelay):
			case <-ctx.Done():
				return records, ctx.Err()
			}
		}
	}

	return records, nil
}

// discover runs one search and returns the listing URLs not yet seen in
// this run.
func (p *Pipeline) discover(ctx context.Context, mk, md string, c Criteria, seen map[string]bool) []string {
	query := marketplace.SearchQuery{
		Make:       mk,
		Model:      md,
		PostalCode: c.PostalCode,
		RadiusKM:   c.RadiusKM,
		MaxResults: p.cfg.MaxResults,
	}

	html, err := p.fetcher.Fetch(ctx, query.URL(p.cfg.BaseURL))
	if err != nil {
		logger.Error("search page fetch failed", "make", mk, "model", md, "error", err)
		return nil
	}

	var fresh []string
	for _, u := range marketplace.ListingLinks(html, p.cfg.BaseURL) {
		if !seen[u] {
			seen[u] = true
			fresh = append(fresh, u)
		}
	}
	return fresh
}

// collect resolves every listing URL to a record, via the cache when
// possible, fanning fetches out across a bounded worker pool.
func (p *Pipeline) collect(ctx context.Context, urls []string) []marketplace.ListingRecord {
	results := make([]marketplace.ListingRecord, len(urls))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for i, u := range urls {
		g.Go(func() error {
			results[i] = p.lookup(gCtx, u)
			return nil
		})
	}
	// Workers never return errors; per-listing failures are logged in
	// lookup and leave a zero record behind.
	_ = g.Wait()

	out := results[:0]
	for _, rec := range results {
		if !rec.Empty() {
			out = append(out, rec)
		}
	}
	return out
}

// lookup returns the record for one listing URL, a zero record on any
// failure.
func (p *Pipeline) lookup(ctx context.Context, url string) marketplace.ListingRecord {
	if rec, ok := p.store.Read(url); ok {
		logger.Debug("cache hit", "url", url)
		return rec
	}

	html, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		logger.Error("listing fetch failed", "url", url, "error", err)
		return marketplace.ListingRecord{}
	}

	rec := p.extractor.Extract(html, url)
	if rec.Empty() {
		return rec
	}

	if err := p.store.Write(url, rec); err != nil {
		logger.Warn("cache write failed", "url", url, "error", err)
	}
	return rec
}
