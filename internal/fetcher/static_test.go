package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// --- Static Fetch Tests ---

func TestStatic_Fetch_ReturnsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	f := NewStatic(Config{})
	html, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if !strings.Contains(html, "hello") {
		t.Errorf("expected body content, got %q", html)
	}
}

func TestStatic_Fetch_SendsBrowserHeaders(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	f := NewStatic(Config{})
	if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if !strings.Contains(gotUA, "Mozilla/5.0") {
		t.Errorf("expected browser user agent, got %q", gotUA)
	}
}

func TestStatic_Fetch_Non2xx_ReturnsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewStatic(Config{})
	_, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 403 response")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fe.URL != srv.URL {
		t.Errorf("FetchError.URL = %q, want %q", fe.URL, srv.URL)
	}
}

func TestStatic_Fetch_UnreachableHost_ReturnsFetchError(t *testing.T) {
	f := NewStatic(Config{Timeout: 2 * time.Second})
	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1/nope")
	if err == nil {
		t.Fatal("expected error for unreachable host")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
}

func TestStatic_Type(t *testing.T) {
	f := NewStatic(Config{})
	if f.Type() != "static" {
		t.Errorf("Type() = %q, want static", f.Type())
	}
}
