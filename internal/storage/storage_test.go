package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/nao1215/onioncrawl/internal/model"
)

func sampleRecord(url string, errMsg string, links ...string) *model.PageRecord {
	if links == nil {
		links = []string{}
	}
	return &model.PageRecord{
		URL:         url,
		FinalURL:    url,
		HTTPStatus:  200,
		Depth:       1,
		Timestamp:   time.Date(2025, 1, 2, 3, 4, 5, 6000, time.UTC),
		Title:       "title of " + url,
		TextPreview: "preview",
		Meta:        map[string]string{"description": "desc"},
		Links:       links,
		Error:       model.StringPtr(errMsg),
	}
}

// fileBackends opens each file-based backend in the given directory.
func fileBackends() map[string]func(t *testing.T, dir string) Store {
	return map[string]func(t *testing.T, dir string) Store{
		"jsonl": func(t *testing.T, dir string) Store {
			t.Helper()
			s, err := Open(context.Background(), Config{Type: TypeJSONL, OutputDir: dir})
			if err != nil {
				t.Fatalf("failed to open jsonl store: %v", err)
			}
			return s
		},
		"sqlite": func(t *testing.T, dir string) Store {
			t.Helper()
			s, err := Open(context.Background(), Config{Type: TypeSQLite, OutputDir: dir})
			if err != nil {
				t.Fatalf("failed to open sqlite store: %v", err)
			}
			return s
		},
	}
}

func TestStoreContract(t *testing.T) {
	t.Parallel()

	for name, open := range fileBackends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			dir := t.TempDir()

			store := open(t, dir)

			ok := sampleRecord("http://a.onion/", "", "http://a.onion/x", "http://b.onion/")
			failed := sampleRecord("http://a.onion/x", "Timeout")
			failed.HTTPStatus = 0
			failed.Title = ""
			failed.Meta = map[string]string{}

			for _, r := range []*model.PageRecord{ok, failed} {
				if err := store.Save(ctx, r); err != nil {
					t.Fatalf("Save failed: %v", err)
				}
			}

			stats, err := store.Stats(ctx)
			if err != nil {
				t.Fatalf("Stats failed: %v", err)
			}
			want := model.Stats{TotalPages: 2, Successful: 1, Errors: 1, TotalLinks: 2}
			if stats != want {
				t.Errorf("expected %+v, got %+v", want, stats)
			}

			records, err := store.Records(ctx)
			if err != nil {
				t.Fatalf("Records failed: %v", err)
			}
			if len(records) != 2 {
				t.Fatalf("expected 2 records, got %d", len(records))
			}
			if !reflect.DeepEqual(records[0], ok) {
				t.Errorf("round trip mismatch:\nexpected %+v\ngot      %+v", ok, records[0])
			}
			if !reflect.DeepEqual(records[1], failed) {
				t.Errorf("round trip mismatch:\nexpected %+v\ngot      %+v", failed, records[1])
			}

			if err := store.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}

			// Reopening resumes from the same data.
			reopened := open(t, dir)
			defer reopened.Close()

			visited, err := reopened.LoadVisitedURLs(ctx)
			if err != nil {
				t.Fatalf("LoadVisitedURLs failed: %v", err)
			}
			wantVisited := map[string]struct{}{"http://a.onion/": {}, "http://a.onion/x": {}}
			if !reflect.DeepEqual(visited, wantVisited) {
				t.Errorf("expected %v, got %v", wantVisited, visited)
			}
		})
	}
}

func TestStoreIdempotentSave(t *testing.T) {
	t.Parallel()

	for name, open := range fileBackends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			store := open(t, t.TempDir())
			defer store.Close()

			if err := store.Save(ctx, sampleRecord("http://a.onion/", "Timeout")); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			second := sampleRecord("http://a.onion/", "", "http://a.onion/b")
			if err := store.Save(ctx, second); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			stats, err := store.Stats(ctx)
			if err != nil {
				t.Fatalf("Stats failed: %v", err)
			}
			want := model.Stats{TotalPages: 1, Successful: 1, Errors: 0, TotalLinks: 1}
			if stats != want {
				t.Errorf("expected %+v, got %+v", want, stats)
			}

			records, err := store.Records(ctx)
			if err != nil {
				t.Fatalf("Records failed: %v", err)
			}
			if len(records) != 1 || !reflect.DeepEqual(records[0], second) {
				t.Errorf("expected the latest record, got %+v", records)
			}
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{Type: "mongodb", OutputDir: t.TempDir()})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}

	_, err = Open(context.Background(), Config{Type: TypePostgres})
	if !errors.Is(err, ErrMissingDSN) {
		t.Errorf("expected ErrMissingDSN, got %v", err)
	}
}

func TestConfigPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cfg  Config
		want string
	}{
		{Config{Type: TypeJSONL, OutputDir: "data"}, filepath.Join("data", DefaultJSONFilename)},
		{Config{Type: TypeJSONL, OutputDir: "data", JSONFilename: "x.jsonl"}, filepath.Join("data", "x.jsonl")},
		{Config{Type: TypeSQLite, OutputDir: "data"}, filepath.Join("data", DefaultSQLiteFilename)},
		{Config{Type: TypePostgres, OutputDir: "data"}, ""},
	}
	for _, tt := range tests {
		if got := tt.cfg.Path(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestJSONLSkipsMalformedLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pages.jsonl")
	content := `{"url":"http://a.onion/","final_url":"http://a.onion/","status":200,"depth":0,"error":null}
not json at all
{"no_url": true}

{"url":"http://b.onion/","final_url":"http://b.onion/","status":0,"depth":1,"error":"Timeout"}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	store, err := OpenJSONL(path, nil)
	if err != nil {
		t.Fatalf("OpenJSONL failed: %v", err)
	}
	defer store.Close()

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalPages != 2 || stats.Errors != 1 {
		t.Errorf("expected 2 pages with 1 error, got %+v", stats)
	}

	// Appending after a file without trailing newline still yields valid lines.
	if err := store.Save(context.Background(), sampleRecord("http://c.onion/", "")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	records, err := store.Records(context.Background())
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 records, got %d", len(records))
	}
}

func TestJSONLSaveAfterClose(t *testing.T) {
	t.Parallel()

	store, err := OpenJSONL(filepath.Join(t.TempDir(), "p.jsonl"), nil)
	if err != nil {
		t.Fatalf("OpenJSONL failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := store.Save(context.Background(), sampleRecord("http://a.onion/", "")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestRebind(t *testing.T) {
	t.Parallel()

	q := "INSERT INTO links (a, b) VALUES (?, ?)"
	if got := sqliteDialect.rebind(q); got != q {
		t.Errorf("expected sqlite query unchanged, got %q", got)
	}
	if got, want := postgresDialect.rebind(q), "INSERT INTO links (a, b) VALUES ($1, $2)"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestPostgresStore(t *testing.T) {
	t.Parallel()

	dsn := os.Getenv("ONIONCRAWL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ONIONCRAWL_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	store, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenPostgres failed: %v", err)
	}
	defer store.Close()

	url := "http://pg-" + time.Now().Format("150405.000000") + ".onion/"
	if err := store.Save(ctx, sampleRecord(url, "", "http://x.onion/")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	visited, err := store.LoadVisitedURLs(ctx)
	if err != nil {
		t.Fatalf("LoadVisitedURLs failed: %v", err)
	}
	if _, ok := visited[url]; !ok {
		t.Errorf("expected %s in visited set", url)
	}
}
