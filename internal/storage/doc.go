// Package storage persists crawled page records.
//
// Three backends implement the Store interface:
//   - jsonl: a newline-delimited JSON append log, one record per line
//   - sqlite: a single-file SQLite database (modernc.org/sqlite, CGO-free)
//   - postgres: a PostgreSQL database through the pgx database/sql driver
//
// The backend is chosen by configuration through Open. Every backend is
// idempotent by URL: saving a record for a URL that is already stored
// replaces it, and statistics count each URL once.
//
// The SQL backends share one schema with two tables, pages and links.
// Meta information is stored as a JSON blob in the pages table.
package storage
