package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// MeterName is the instrumentation scope of every instrument.
const MeterName = "github.com/nao1215/onioncrawl"

// Instrument names.
const (
	PagesProcessedName  = "onioncrawl.pages.processed"
	FetchErrorsName     = "onioncrawl.fetch.errors"
	LinksDiscoveredName = "onioncrawl.links.discovered"
	PagesSkippedName    = "onioncrawl.pages.skipped"
	SaveFailuresName    = "onioncrawl.store.save_failures"
)

// Config controls metric export.
type Config struct {
	// Enabled turns on OTLP/HTTP export.
	Enabled bool

	// Endpoint is the collector host:port.
	Endpoint string

	// Insecure sends metrics over plain HTTP.
	Insecure bool

	// Interval is the export period. Zero uses the SDK default.
	Interval time.Duration

	// ServiceName and ServiceVersion describe this process.
	ServiceName    string
	ServiceVersion string

	// InstanceID identifies the run, typically its run_id.
	InstanceID string
}

// Provider owns the meter provider and the Recorder built on it.
type Provider struct {
	Recorder *Recorder

	meterProvider *sdkmetric.MeterProvider
}

// Setup creates the Provider described by cfg. When export is disabled the
// Recorder is backed by a no-op meter.
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		rec, err := NewRecorder(noop.NewMeterProvider().Meter(MeterName))
		if err != nil {
			return nil, err
		}
		return &Provider{Recorder: rec}, nil
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	rec, err := NewRecorder(mp.Meter(MeterName))
	if err != nil {
		_ = mp.Shutdown(ctx)
		return nil, err
	}
	return &Provider{Recorder: rec, meterProvider: mp}, nil
}

func newExporter(ctx context.Context, cfg Config) (sdkmetric.Exporter, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	return otlpmetrichttp.New(ctx, opts...)
}

func newResource(cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	if cfg.InstanceID != "" {
		attrs = append(attrs, semconv.ServiceInstanceID(cfg.InstanceID))
	}
	return resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
}

// Shutdown flushes pending metrics and stops the exporter. It is a no-op
// when export is disabled.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.meterProvider == nil {
		return nil
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil && !errors.Is(err, sdkmetric.ErrReaderShutdown) {
		return fmt.Errorf("failed to shut down metrics: %w", err)
	}
	return nil
}

// Recorder counts crawl events. Its methods match crawler.Recorder.
type Recorder struct {
	pagesProcessed  metric.Int64Counter
	fetchErrors     metric.Int64Counter
	linksDiscovered metric.Int64Counter
	pagesSkipped    metric.Int64Counter
	saveFailures    metric.Int64Counter
}

// NewRecorder creates the crawl instruments on meter.
func NewRecorder(meter metric.Meter) (*Recorder, error) {
	var errs []error
	counter := func(name, description, unit string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
		if err != nil {
			errs = append(errs, err)
		}
		return c
	}

	r := &Recorder{
		pagesProcessed:  counter(PagesProcessedName, "Pages fetched and recorded, by HTTP status", "{pages}"),
		fetchErrors:     counter(FetchErrorsName, "Fetches that ended without an HTTP response", "{pages}"),
		linksDiscovered: counter(LinksDiscoveredName, "Eligible links extracted from crawled pages", "{links}"),
		pagesSkipped:    counter(PagesSkippedName, "Frontier entries rejected at admission, by reason", "{pages}"),
		saveFailures:    counter(SaveFailuresName, "Page records the store failed to persist", "{pages}"),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("failed to create instruments: %w", err)
	}
	return r, nil
}

// PageProcessed counts a processed page. status is 0 when no response was
// received.
func (r *Recorder) PageProcessed(ctx context.Context, status int) {
	r.pagesProcessed.Add(ctx, 1, metric.WithAttributes(attribute.Int("status", status)))
}

// FetchFailed counts a fetch that produced an error record.
func (r *Recorder) FetchFailed(ctx context.Context) {
	r.fetchErrors.Add(ctx, 1)
}

// LinksDiscovered adds n discovered links.
func (r *Recorder) LinksDiscovered(ctx context.Context, n int) {
	if n > 0 {
		r.linksDiscovered.Add(ctx, int64(n))
	}
}

// PageSkipped counts a rejected frontier entry.
func (r *Recorder) PageSkipped(ctx context.Context, reason string) {
	r.pagesSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// SaveFailed counts a record that could not be saved.
func (r *Recorder) SaveFailed(ctx context.Context) {
	r.saveFailures.Add(ctx, 1)
}
