// Package report renders summaries of stored crawl results.
//
// Summarize aggregates the records of a storage backend into a Summary:
// counters, a per-domain breakdown, the HTTP status distribution and the
// failed pages. Writers render it:
//   - SimpleWriter: plain text for the terminal (onioncrawl stats)
//   - MarkdownWriter: a GitHub-flavored Markdown report (onioncrawl report)
//   - JSONWriter: a JSON document for tooling
//
// MultiWriter fans one Summary out to several Writers.
package report
