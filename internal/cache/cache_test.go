package cache

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/carhound/carhound/internal/marketplace"
)

const testURL = "https://www.autotrader.ca/a/mazda/cx-5/toronto/on/5_111"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), DefaultTTL)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

// --- Write / Read Tests ---

func TestWriteRead_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	want := marketplace.ListingRecord{
		URL:     testURL,
		Make:    "Mazda",
		Model:   "CX-5",
		Year:    2021,
		Price:   "32998",
		Mileage: "45000",
	}
	if err := s.Write(testURL, want); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, ok := s.Read(testURL)
	if !ok {
		t.Fatal("Read() miss after Write()")
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Read() = %+v, want %+v", got, want)
	}
}

func TestRead_MissingEntry(t *testing.T) {
	s := newTestStore(t)

	if _, ok := s.Read(testURL); ok {
		t.Error("Read() should miss for unknown URL")
	}
}

func TestWrite_Overwrites(t *testing.T) {
	s := newTestStore(t)

	_ = s.Write(testURL, marketplace.ListingRecord{URL: testURL, Price: "30000"})
	_ = s.Write(testURL, marketplace.ListingRecord{URL: testURL, Price: "29000"})

	got, ok := s.Read(testURL)
	if !ok {
		t.Fatal("Read() miss")
	}
	if got.Price != "29000" {
		t.Errorf("Price = %q, want last write to win", got.Price)
	}
}

// --- TTL Tests ---

func TestHasValid_FreshEntry(t *testing.T) {
	s := newTestStore(t)
	_ = s.Write(testURL, marketplace.ListingRecord{URL: testURL})

	// One day old, TTL is seven days.
	backdate(t, s, testURL, 24*time.Hour)

	if !s.HasValid(testURL) {
		t.Error("entry 1 day old should be valid with 7 day TTL")
	}
}

func TestHasValid_ExpiredEntry(t *testing.T) {
	s := newTestStore(t)
	_ = s.Write(testURL, marketplace.ListingRecord{URL: testURL})

	backdate(t, s, testURL, 8*24*time.Hour)

	if s.HasValid(testURL) {
		t.Error("entry 8 days old should be invalid with 7 day TTL")
	}
	if _, ok := s.Read(testURL); ok {
		t.Error("Read() should miss on an expired entry")
	}
}

func TestHasValid_MissingEntry(t *testing.T) {
	s := newTestStore(t)
	if s.HasValid(testURL) {
		t.Error("HasValid() should be false for unknown URL")
	}
}

// --- Corruption Tests ---

func TestRead_CorruptEntry_IsMiss(t *testing.T) {
	s := newTestStore(t)
	_ = s.Write(testURL, marketplace.ListingRecord{URL: testURL})

	if err := os.WriteFile(s.path(testURL), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.Read(testURL); ok {
		t.Error("Read() should treat a corrupt entry as a miss")
	}
}

// --- Key Tests ---

func TestPath_SanitizesNonWordCharacters(t *testing.T) {
	s := newTestStore(t)

	p := s.path(testURL)
	name := filepath.Base(p)

	if !strings.HasSuffix(name, ".json") {
		t.Errorf("cache file should end in .json: %q", name)
	}
	base := strings.TrimSuffix(name, ".json")
	for _, r := range base {
		valid := r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !valid {
			t.Errorf("unsanitized character %q in cache file name %q", r, name)
		}
	}
}

func backdate(t *testing.T, s *Store, url string, age time.Duration) {
	t.Helper()
	past := time.Now().Add(-age)
	if err := os.Chtimes(s.path(url), past, past); err != nil {
		t.Fatal(err)
	}
}
