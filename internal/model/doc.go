// Package model defines the data structures shared by the crawler, the
// fetcher and the storage backends.
//
// This package contains the following main types:
//   - PageRecord: The persisted result of visiting one URL
//   - FetchResult: What the network layer returns for one request
//   - ParseResult: What the HTML parser extracts from one document
//   - Stats: Aggregate counters reported by a storage backend
//
// Models live in their own package so that crawler, storage and report can
// share them without import cycles. All of them serialize to JSON.
package model
