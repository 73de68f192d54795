package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/nao1215/onioncrawl/internal/model"
)

// Type names a storage backend.
type Type string

const (
	// TypeJSONL is the newline-delimited JSON append log.
	TypeJSONL Type = "jsonl"
	// TypeSQLite is the SQLite database.
	TypeSQLite Type = "sqlite"
	// TypePostgres is the PostgreSQL database.
	TypePostgres Type = "postgres"
)

// Default file names inside the output directory.
const (
	DefaultJSONFilename   = "crawled_pages.jsonl"
	DefaultSQLiteFilename = "crawler.db"
)

var (
	// ErrUnknownBackend is returned by Open for an unsupported storage type.
	ErrUnknownBackend = errors.New("unknown storage backend")
	// ErrMissingDSN is returned when the postgres backend has no DSN.
	ErrMissingDSN = errors.New("postgres storage requires a DSN")
	// ErrClosed is returned when a closed store is used.
	ErrClosed = errors.New("store is closed")
)

// Store persists page records.
type Store interface {
	// LoadVisitedURLs returns every URL that has a stored record.
	LoadVisitedURLs(ctx context.Context) (map[string]struct{}, error)

	// Save stores record, replacing any earlier record for the same URL.
	// The record is durable when Save returns nil.
	Save(ctx context.Context, record *model.PageRecord) error

	// Stats returns aggregate counters over the stored records.
	Stats(ctx context.Context) (model.Stats, error)

	// Records returns the latest record of every URL in first-saved order.
	Records(ctx context.Context) ([]*model.PageRecord, error)

	// Close releases the backend.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	// Type is the backend name.
	Type Type

	// OutputDir holds the jsonl and sqlite files.
	OutputDir string

	// JSONFilename is the jsonl file name inside OutputDir.
	JSONFilename string

	// SQLiteFilename is the sqlite file name inside OutputDir.
	SQLiteFilename string

	// PostgresDSN is the connection string of the postgres backend.
	PostgresDSN string

	// Logger receives warnings such as skipped malformed lines.
	Logger *slog.Logger
}

// Path returns the file backing the configured file-based backend, or an
// empty string for postgres.
func (c Config) Path() string {
	switch c.Type {
	case TypeJSONL:
		name := c.JSONFilename
		if name == "" {
			name = DefaultJSONFilename
		}
		return filepath.Join(c.OutputDir, name)
	case TypeSQLite:
		name := c.SQLiteFilename
		if name == "" {
			name = DefaultSQLiteFilename
		}
		return filepath.Join(c.OutputDir, name)
	default:
		return ""
	}
}

// Open opens the backend named by cfg.Type.
func Open(ctx context.Context, cfg Config) (Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch cfg.Type {
	case TypeJSONL:
		return OpenJSONL(cfg.Path(), logger)
	case TypeSQLite:
		return OpenSQLite(ctx, cfg.Path(), DefaultSQLiteOptions())
	case TypePostgres:
		if cfg.PostgresDSN == "" {
			return nil, ErrMissingDSN
		}
		return OpenPostgres(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Type)
	}
}
