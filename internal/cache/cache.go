// Package cache stores extracted listings on disk, one JSON file per URL,
// with an mtime-based TTL.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/carhound/carhound/internal/logger"
	"github.com/carhound/carhound/internal/marketplace"
)

// DefaultTTL is how long a cached listing stays fresh.
const DefaultTTL = 7 * 24 * time.Hour

var nonWordRe = regexp.MustCompile(`[^\w]`)

// Store is a flat file cache keyed by listing URL.
//
// There is no locking: within a run each URL is written at most once, and
// across runs a race simply means last write wins.
type Store struct {
	dir string
	ttl time.Duration
}

// New creates a Store rooted at dir, creating it if needed.
func New(dir string, ttl time.Duration) (*Store, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir, ttl: ttl}, nil
}

// HasValid reports whether a fresh cache entry exists for the URL.
func (s *Store) HasValid(url string) bool {
	info, err := os.Stat(s.path(url))
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < s.ttl
}

// Read returns the cached record for the URL. A missing, stale or corrupt
// entry reads as a miss; corruption is logged but never propagated.
func (s *Store) Read(url string) (marketplace.ListingRecord, bool) {
	if !s.HasValid(url) {
		return marketplace.ListingRecord{}, false
	}

	data, err := os.ReadFile(s.path(url))
	if err != nil {
		return marketplace.ListingRecord{}, false
	}

	var rec marketplace.ListingRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		logger.Warn("corrupt cache entry, refetching", "url", url, "error", err)
		return marketplace.ListingRecord{}, false
	}

	return rec, true
}

// Write stores the record for the URL, overwriting any previous entry.
func (s *Store) Write(url string, rec marketplace.ListingRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(url), data, 0o644)
}

// path derives the filesystem-safe cache file name for a URL. Collisions
// are tolerated, not prevented; distinct URLs that sanitize identically
// share an entry.
func (s *Store) path(url string) string {
	return filepath.Join(s.dir, nonWordRe.ReplaceAllString(url, "_")+".json")
}
