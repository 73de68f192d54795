// Package crawler implements the breadth-first crawl engine for onion
// services.
//
// # Architecture
//
// Engine owns all mutable crawl state: the FIFO frontier, the visited set
// and the per-domain counters. It processes one frontier entry at a time:
// fetch, parse, filter, persist, then enqueue the discovered links one
// level deeper. The network, the HTML parser and the storage backend are
// behind the Fetcher, DocumentParser and Store interfaces so the engine can
// be driven entirely in memory.
//
// # Admission
//
// A popped entry is skipped, without side effects, when its URL was already
// visited, it is deeper than the maximum depth, its domain has used its page
// quota, or an optional Admitter such as RobotsPolicy rejects it.
//
// # Failure handling
//
// Fetch failures become error records and never stop the crawl. A failed
// save is logged and counted, and the crawl continues.
//
// # Usage
//
//	engine := crawler.NewEngine(fetcher, crawler.NewParser(), store,
//		crawler.WithMaxDepth(3),
//		crawler.WithLogger(logger),
//	)
//	if err := engine.Init(ctx); err != nil {
//		return err
//	}
//	if err := engine.Seed("http://example.onion/"); err != nil {
//		return err
//	}
//	return engine.Run(ctx)
package crawler
