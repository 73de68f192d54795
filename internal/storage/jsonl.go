package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/nao1215/onioncrawl/internal/model"
)

// maxLineSize bounds one NDJSON line when replaying the log.
const maxLineSize = 16 * 1024 * 1024

// summary is what the JSONL store keeps in memory per URL.
type summary struct {
	succeeded bool
	links     int
}

// JSONLStore appends one JSON object per line to a file.
//
// Re-saving a URL appends a newer line; readers take the last line for each
// URL, so the log is idempotent by URL without rewriting the file.
type JSONLStore struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	logger *slog.Logger

	order []string
	index map[string]summary
}

// OpenJSONL opens or creates the log at path and replays it to rebuild the
// visited set and statistics. Malformed lines are skipped.
func OpenJSONL(path string, logger *slog.Logger) (*JSONLStore, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	s := &JSONLStore{
		path:   path,
		logger: logger,
		order:  make([]string, 0),
		index:  make(map[string]summary),
	}

	err := s.replay(func(r *model.PageRecord) {
		s.remember(r)
	})
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_APPEND|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := terminateLastLine(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to repair %s: %w", path, err)
	}
	s.file = f

	logger.Debug("opened jsonl store", slog.String("path", path), slog.Int("records", len(s.order)))
	return s, nil
}

// replay calls fn for every well-formed record in the log.
func (s *JSONLStore) replay(fn func(*model.PageRecord)) error {
	f, err := os.Open(filepath.Clean(s.path))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	defer f.Close()

	reader := bufio.NewReaderSize(f, 64*1024)
	lineNo := 0
	for {
		line, err := readLine(reader)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", s.path, err)
		}
		lineNo++

		if len(line) == 0 {
			continue
		}

		var r model.PageRecord
		if err := json.Unmarshal(line, &r); err != nil || r.URL == "" {
			s.logger.Warn("skipping malformed line", slog.String("path", s.path), slog.Int("line", lineNo))
			continue
		}
		fn(&r)
	}
	return nil
}

// readLine returns the next line without its terminator. A final line
// without a newline is returned as well.
func readLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				return line, nil
			}
			return nil, err
		}
		line = append(line, chunk...)
		if len(line) > maxLineSize {
			return nil, fmt.Errorf("line exceeds %d bytes", maxLineSize)
		}
		if !isPrefix {
			return line, nil
		}
	}
}

// terminateLastLine appends a newline when the file does not end with one,
// so the next record starts on its own line.
func terminateLastLine(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	_, err = f.Write([]byte{'\n'})
	return err
}

func (s *JSONLStore) remember(r *model.PageRecord) {
	if _, seen := s.index[r.URL]; !seen {
		s.order = append(s.order, r.URL)
	}
	s.index[r.URL] = summary{succeeded: r.Succeeded(), links: len(r.Links)}
}

// LoadVisitedURLs returns every URL in the log.
func (s *JSONLStore) LoadVisitedURLs(_ context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	visited := make(map[string]struct{}, len(s.index))
	for u := range s.index {
		visited[u] = struct{}{}
	}
	return visited, nil
}

// Save appends record and syncs the file.
func (s *JSONLStore) Save(_ context.Context, record *model.PageRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return ErrClosed
	}
	if _, err := s.file.Write(data); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", s.path, err)
	}

	s.remember(record)
	return nil
}

// Stats counts each URL once, using its latest record.
func (s *JSONLStore) Stats(_ context.Context) (model.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats model.Stats
	for _, sum := range s.index {
		stats.TotalPages++
		if sum.succeeded {
			stats.Successful++
		} else {
			stats.Errors++
		}
		stats.TotalLinks += sum.links
	}
	return stats, nil
}

// Records re-reads the log and returns the latest record per URL.
func (s *JSONLStore) Records(_ context.Context) ([]*model.PageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest := make(map[string]*model.PageRecord, len(s.index))
	order := make([]string, 0, len(s.index))
	err := s.replay(func(r *model.PageRecord) {
		if _, seen := latest[r.URL]; !seen {
			order = append(order, r.URL)
		}
		latest[r.URL] = r
	})
	if err != nil {
		return nil, err
	}

	records := make([]*model.PageRecord, 0, len(order))
	for _, u := range order {
		records = append(records, latest[u])
	}
	return records, nil
}

// Close closes the log file.
func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Path returns the log file path.
func (s *JSONLStore) Path() string {
	return s.path
}
