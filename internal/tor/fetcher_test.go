package tor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetcherFetch(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><title>" + r.Header.Get("User-Agent") + "</title></html>"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/page", http.StatusFound)
	})
	mux.HandleFunc("/slow", func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})
	mux.HandleFunc("/latin1", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte{'c', 'a', 'f', 0xE9})
	})
	mux.HandleFunc("/large", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	fetcher := NewFetcher(srv.Client())
	headers := map[string]string{"User-Agent": "onioncrawl-test"}

	t.Run("returns content of a successful response", func(t *testing.T) {
		t.Parallel()

		result := fetcher.Fetch(context.Background(), srv.URL+"/page", headers, 5*time.Second)
		if result.Status != http.StatusOK {
			t.Errorf("expected status 200, got %d", result.Status)
		}
		if result.Error != "" {
			t.Errorf("expected no error, got %q", result.Error)
		}
		if !strings.Contains(result.Content, "onioncrawl-test") {
			t.Errorf("expected custom headers to be sent, got %q", result.Content)
		}
		if !result.OK() {
			t.Error("expected OK result")
		}
		if result.Headers.Get("Content-Type") == "" {
			t.Error("expected response headers")
		}
	})

	t.Run("reports non-200 status without error", func(t *testing.T) {
		t.Parallel()

		result := fetcher.Fetch(context.Background(), srv.URL+"/missing", headers, 5*time.Second)
		if result.Status != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", result.Status)
		}
		if result.Error != "" {
			t.Errorf("expected no error, got %q", result.Error)
		}
		if result.OK() {
			t.Error("expected non-OK result")
		}
	})

	t.Run("follows redirects and records the final URL", func(t *testing.T) {
		t.Parallel()

		result := fetcher.Fetch(context.Background(), srv.URL+"/old", headers, 5*time.Second)
		if result.FinalURL != srv.URL+"/page" {
			t.Errorf("expected final URL %s/page, got %s", srv.URL, result.FinalURL)
		}
		if result.Status != http.StatusOK {
			t.Errorf("expected status 200, got %d", result.Status)
		}
	})

	t.Run("reports Timeout", func(t *testing.T) {
		t.Parallel()

		result := fetcher.Fetch(context.Background(), srv.URL+"/slow", headers, 50*time.Millisecond)
		if result.Error != ErrorTimeout {
			t.Errorf("expected %q, got %q", ErrorTimeout, result.Error)
		}
		if result.Status != 0 {
			t.Errorf("expected status 0, got %d", result.Status)
		}
		if result.FinalURL != srv.URL+"/slow" {
			t.Errorf("expected final URL to fall back to the request URL, got %s", result.FinalURL)
		}
	})

	t.Run("decodes declared charset", func(t *testing.T) {
		t.Parallel()

		result := fetcher.Fetch(context.Background(), srv.URL+"/latin1", headers, 5*time.Second)
		if result.Content != "café" {
			t.Errorf("expected %q, got %q", "café", result.Content)
		}
	})

	t.Run("limits the body size", func(t *testing.T) {
		t.Parallel()

		limited := NewFetcher(srv.Client(), WithMaxBodySize(10))
		result := limited.Fetch(context.Background(), srv.URL+"/large", headers, 5*time.Second)
		if len(result.Content) != 10 {
			t.Errorf("expected 10 bytes, got %d", len(result.Content))
		}
	})
}

func TestFetcherFailures(t *testing.T) {
	t.Parallel()

	fetcher := NewFetcher(&http.Client{})

	t.Run("connection refused is a client error", func(t *testing.T) {
		t.Parallel()

		result := fetcher.Fetch(context.Background(), "http://"+closedAddress(t)+"/", nil, 5*time.Second)
		if !strings.HasPrefix(result.Error, clientErrorPrefix) {
			t.Errorf("expected %q prefix, got %q", clientErrorPrefix, result.Error)
		}
		if result.Status != 0 {
			t.Errorf("expected status 0, got %d", result.Status)
		}
	})

	t.Run("malformed URL is an exception", func(t *testing.T) {
		t.Parallel()

		result := fetcher.Fetch(context.Background(), "://missing-scheme", nil, 5*time.Second)
		if !strings.HasPrefix(result.Error, exceptionPrefix) {
			t.Errorf("expected %q prefix, got %q", exceptionPrefix, result.Error)
		}
		if result.FinalURL != "://missing-scheme" {
			t.Errorf("expected final URL to be the request URL, got %s", result.FinalURL)
		}
	})

	t.Run("cancelled context is not a timeout", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result := fetcher.Fetch(ctx, "http://"+closedAddress(t)+"/", nil, 0)
		if result.Error == "" || result.Error == ErrorTimeout {
			t.Errorf("expected a client error, got %q", result.Error)
		}
	})
}

func TestFetcherClose(t *testing.T) {
	t.Parallel()

	fetcher := NewFetcher(&http.Client{})
	if err := fetcher.Close(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}
