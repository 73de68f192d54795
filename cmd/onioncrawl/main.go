// Package main provides the entry point for the onioncrawl CLI.
//
// onioncrawl is a breadth-first crawler for Tor onion services. It fetches
// pages through a Tor SOCKS5 proxy, follows onion links level by level and
// stores one record per page in a JSONL file, SQLite or PostgreSQL.
//
// Usage:
//
//	onioncrawl init
//	onioncrawl crawl http://example.onion/
//	onioncrawl stats
//	onioncrawl report -o report.md
//
// See --help for all available options.
package main

func main() {
	Execute()
}
