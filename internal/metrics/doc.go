// Package metrics records crawl counters with OpenTelemetry.
//
// Setup returns a Provider whose Recorder satisfies crawler.Recorder. With
// export disabled the instruments come from a no-op meter, so recording is
// always safe and costs nothing.
package metrics
