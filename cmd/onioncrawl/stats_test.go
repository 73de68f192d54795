package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/onioncrawl/internal/model"
	"github.com/nao1215/onioncrawl/internal/storage"
)

// seedStore writes three records into a jsonl store under a new directory
// and returns a config file pointing at it.
func seedStore(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	store, err := storage.OpenJSONL(filepath.Join(dir, storage.DefaultJSONFilename), nil)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	records := []*model.PageRecord{
		{
			URL: "http://" + seedOnion + "/", FinalURL: "http://" + seedOnion + "/",
			HTTPStatus: 200, Depth: 0, Timestamp: now, Title: "Seed",
			TextPreview: "hello", Meta: map[string]string{},
			Links: []string{"http://" + seedOnion + "/a", "http://" + otherOnion + "/b"},
		},
		{
			URL: "http://" + seedOnion + "/a", FinalURL: "http://" + seedOnion + "/a",
			HTTPStatus: 200, Depth: 1, Timestamp: now, Title: "A",
			Meta: map[string]string{}, Links: []string{},
		},
		{
			URL: "http://" + otherOnion + "/b", FinalURL: "http://" + otherOnion + "/b",
			Depth: 1, Timestamp: now, Meta: map[string]string{}, Links: []string{},
			Error: model.StringPtr("Timeout"),
		},
	}
	for _, r := range records {
		if err := store.Save(context.Background(), r); err != nil {
			t.Fatalf("failed to save record: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	return writeConfigFile(t, "storage:\n  storage_type: jsonl\n  output_dir: "+dir+"\n")
}

func executeCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestStatsCmd(t *testing.T) {
	t.Parallel()

	path := seedStore(t)

	t.Run("text", func(t *testing.T) {
		t.Parallel()

		out, _, err := executeCmd(t, "stats", "-c", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{
			"Total pages:  3",
			"Successful:   2",
			"Errors:       1",
			"Total links:  2",
			"TOP DOMAINS",
			seedOnion,
		}
		for _, e := range expected {
			if !strings.Contains(out, e) {
				t.Errorf("expected output to contain %q, got:\n%s", e, out)
			}
		}
		if strings.Contains(out, "FAILED PAGES") {
			t.Errorf("expected failures only with --verbose, got:\n%s", out)
		}
	})

	t.Run("verbose lists failures", func(t *testing.T) {
		t.Parallel()

		out, _, err := executeCmd(t, "stats", "-v", "-c", path, "--top", "0")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "FAILED PAGES") || !strings.Contains(out, "Timeout") {
			t.Errorf("expected failed pages, got:\n%s", out)
		}
		if strings.Contains(out, "TOP DOMAINS") {
			t.Errorf("expected no domain list with --top 0, got:\n%s", out)
		}
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		out, _, err := executeCmd(t, "stats", "-c", path, "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var decoded struct {
			Stats model.Stats `json:"stats"`
		}
		if err := json.Unmarshal([]byte(out), &decoded); err != nil {
			t.Fatalf("expected JSON output, got %v:\n%s", err, out)
		}
		want := model.Stats{TotalPages: 3, Successful: 2, Errors: 1, TotalLinks: 2}
		if decoded.Stats != want {
			t.Errorf("expected %+v, got %+v", want, decoded.Stats)
		}
	})
}

func TestStatsCmdWithoutData(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "empty")
	path := writeConfigFile(t, "storage:\n  output_dir: "+dir+"\n")

	_, _, err := executeCmd(t, "stats", "-c", path)
	if !errors.Is(err, errNoCrawlData) {
		t.Fatalf("expected errNoCrawlData, got %v", err)
	}
	if _, statErr := os.Stat(dir); !os.IsNotExist(statErr) {
		t.Error("expected no store to be created")
	}
}

func TestStatsCmdStorageFlag(t *testing.T) {
	t.Parallel()

	path := seedStore(t)

	// The jsonl data exists, but the sqlite file does not.
	_, _, err := executeCmd(t, "stats", "-c", path, "-s", "sqlite")
	if !errors.Is(err, errNoCrawlData) {
		t.Fatalf("expected errNoCrawlData for sqlite, got %v", err)
	}
	if !strings.Contains(err.Error(), storage.DefaultSQLiteFilename) {
		t.Errorf("expected the sqlite path in the error, got %v", err)
	}
}

func TestReportCmd(t *testing.T) {
	t.Parallel()

	path := seedStore(t)

	t.Run("markdown to stdout", func(t *testing.T) {
		t.Parallel()

		out, _, err := executeCmd(t, "report", "-c", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{
			"# Onion Crawl Report",
			"| Pages | 3 |",
			"```mermaid",
			"## Failures",
			"http://" + otherOnion + "/b",
		}
		for _, e := range expected {
			if !strings.Contains(out, e) {
				t.Errorf("expected output to contain %q", e)
			}
		}
	})

	t.Run("markdown to file", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), "reports", "crawl.md")
		out, errOut, err := executeCmd(t, "report", "-c", path, "-o", outputPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out != "" {
			t.Errorf("expected nothing on stdout, got %q", out)
		}
		if !strings.Contains(errOut, "Report written to") {
			t.Errorf("expected confirmation on stderr, got %q", errOut)
		}

		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.HasPrefix(string(content), "# Onion Crawl Report") {
			t.Errorf("expected a Markdown report, got:\n%s", content)
		}
	})

	t.Run("row limit", func(t *testing.T) {
		t.Parallel()

		out, _, err := executeCmd(t, "report", "-c", path, "--max-rows", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "*2 more page(s) not shown.*") {
			t.Errorf("expected the page table to be cut, got:\n%s", out)
		}
	})

	t.Run("json with pages", func(t *testing.T) {
		t.Parallel()

		out, _, err := executeCmd(t, "report", "-c", path, "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var decoded struct {
			Pages []model.PageRecord `json:"pages"`
		}
		if err := json.Unmarshal([]byte(out), &decoded); err != nil {
			t.Fatalf("expected JSON output, got %v", err)
		}
		if len(decoded.Pages) != 3 {
			t.Errorf("expected 3 pages, got %d", len(decoded.Pages))
		}
	})
}
