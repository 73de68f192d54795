package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/onioncrawl/internal/model"
)

// dialect captures the differences between the SQL backends.
type dialect struct {
	name string

	// schema creates the tables if they do not exist.
	schema []string

	// numbered reports whether placeholders are $1, $2, ... instead of ?.
	numbered bool
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS pages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL UNIQUE,
			final_url TEXT NOT NULL,
			status INTEGER NOT NULL,
			depth INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			text_preview TEXT NOT NULL DEFAULT '',
			meta TEXT NOT NULL DEFAULT '{}',
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS links (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_url TEXT NOT NULL,
			target_url TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_links_source ON links(source_url)`,
	},
}

var postgresDialect = dialect{
	name:     "postgres",
	numbered: true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS pages (
			id BIGSERIAL PRIMARY KEY,
			url TEXT NOT NULL UNIQUE,
			final_url TEXT NOT NULL,
			status INTEGER NOT NULL,
			depth INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			text_preview TEXT NOT NULL DEFAULT '',
			meta TEXT NOT NULL DEFAULT '{}',
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS links (
			id BIGSERIAL PRIMARY KEY,
			source_url TEXT NOT NULL,
			target_url TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_links_source ON links(source_url)`,
	},
}

// rebind rewrites ? placeholders to $n for dialects that need it.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

const (
	upsertPageQuery = `
	INSERT INTO pages (url, final_url, status, depth, timestamp, title, text_preview, meta, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		final_url = excluded.final_url,
		status = excluded.status,
		depth = excluded.depth,
		timestamp = excluded.timestamp,
		title = excluded.title,
		text_preview = excluded.text_preview,
		meta = excluded.meta,
		error = excluded.error
	`
	deleteLinksQuery = `DELETE FROM links WHERE source_url = ?`
	insertLinkQuery  = `INSERT INTO links (source_url, target_url) VALUES (?, ?)`
	visitedQuery     = `SELECT url FROM pages`
	statsQuery       = `
	SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN error IS NULL THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN error IS NOT NULL THEN 1 ELSE 0 END), 0)
	FROM pages
	`
	linkCountQuery = `SELECT COUNT(*) FROM links`
	recordsQuery   = `
	SELECT url, final_url, status, depth, timestamp, title, text_preview, meta, error
	FROM pages
	ORDER BY id
	`
	allLinksQuery = `SELECT source_url, target_url FROM links ORDER BY id`
)

// SQLStore is the relational backend shared by SQLite and PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: d}
	if err := s.createTables(ctx); err != nil {
		return nil, fmt.Errorf("failed to create %s tables: %w", d.name, err)
	}
	return s, nil
}

func (s *SQLStore) createTables(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// LoadVisitedURLs returns the URL of every stored page.
func (s *SQLStore) LoadVisitedURLs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, visitedQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query visited URLs: %w", err)
	}
	defer rows.Close()

	visited := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan visited URL: %w", err)
		}
		visited[u] = struct{}{}
	}
	return visited, rows.Err()
}

// Save upserts the page and replaces its links in one transaction.
func (s *SQLStore) Save(ctx context.Context, record *model.PageRecord) (err error) {
	meta := record.Meta
	if meta == nil {
		meta = map[string]string{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to serialize meta: %w", err)
	}

	var errValue sql.NullString
	if record.Error != nil {
		errValue = sql.NullString{String: *record.Error, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, s.dialect.rebind(upsertPageQuery),
		record.URL,
		record.FinalURL,
		record.HTTPStatus,
		record.Depth,
		record.Timestamp.UTC().Format(time.RFC3339Nano),
		record.Title,
		record.TextPreview,
		string(metaJSON),
		errValue,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert page: %w", err)
	}

	if _, err = tx.ExecContext(ctx, s.dialect.rebind(deleteLinksQuery), record.URL); err != nil {
		return fmt.Errorf("failed to clear links: %w", err)
	}
	for _, target := range record.Links {
		if _, err = tx.ExecContext(ctx, s.dialect.rebind(insertLinkQuery), record.URL, target); err != nil {
			return fmt.Errorf("failed to insert link: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit page: %w", err)
	}
	return nil
}

// Stats aggregates the pages and links tables.
func (s *SQLStore) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	err := s.db.QueryRowContext(ctx, statsQuery).Scan(&stats.TotalPages, &stats.Successful, &stats.Errors)
	if err != nil {
		return model.Stats{}, fmt.Errorf("failed to query page stats: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, linkCountQuery).Scan(&stats.TotalLinks); err != nil {
		return model.Stats{}, fmt.Errorf("failed to query link count: %w", err)
	}
	return stats, nil
}

// Records returns every page with its links in insertion order.
func (s *SQLStore) Records(ctx context.Context) ([]*model.PageRecord, error) {
	links, err := s.allLinks(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, recordsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	records := make([]*model.PageRecord, 0)
	for rows.Next() {
		var (
			r         model.PageRecord
			timestamp string
			metaJSON  string
			errValue  sql.NullString
		)
		err := rows.Scan(
			&r.URL,
			&r.FinalURL,
			&r.HTTPStatus,
			&r.Depth,
			&timestamp,
			&r.Title,
			&r.TextPreview,
			&metaJSON,
			&errValue,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}

		r.Timestamp = parseTimestamp(timestamp)
		r.Meta = map[string]string{}
		if metaJSON != "" {
			if err := json.Unmarshal([]byte(metaJSON), &r.Meta); err != nil {
				return nil, fmt.Errorf("failed to parse meta of %s: %w", r.URL, err)
			}
		}
		if errValue.Valid {
			r.Error = &errValue.String
		}
		r.Links = links[r.URL]
		if r.Links == nil {
			r.Links = []string{}
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

func (s *SQLStore) allLinks(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, allLinksQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	links := make(map[string][]string)
	for rows.Next() {
		var source, target string
		if err := rows.Scan(&source, &target); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links[source] = append(links[source], target)
	}
	return links, rows.Err()
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}

// timestampFormats contains the timestamp formats a backend may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
