package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoStartURL is returned when no start URL is configured.
	ErrNoStartURL = errors.New("no start URL: set crawler.start_url, START_URL or --start-url")

	// ErrNotOnion is returned when the start URL is not an http(s) URL on
	// a .onion host.
	ErrNotOnion = errors.New("start URL must be a .onion address")

	// ErrInvalidMaxDepth is returned when max_depth is below 1.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be at least 1")

	// ErrInvalidMaxPages is returned when max_pages is below 1.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be at least 1")

	// ErrInvalidMaxPagesPerDomain is returned when max_pages_per_domain is
	// below 1.
	ErrInvalidMaxPagesPerDomain = errors.New("invalid max pages per domain: must be at least 1")

	// ErrInvalidRequestDelay is returned when request_delay is negative.
	// Use 0 for no delay between requests.
	ErrInvalidRequestDelay = errors.New("invalid request delay: must be non-negative")

	// ErrInvalidTimeout is returned when request_timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid request timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when max_body_size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidProxy is returned when the external proxy host or port is
	// unusable.
	ErrInvalidProxy = errors.New("invalid Tor proxy address")

	// ErrUnknownStorage is returned for a storage_type other than jsonl,
	// sqlite or postgres.
	ErrUnknownStorage = errors.New("storage type must be jsonl, sqlite or postgres")

	// ErrMissingPostgresDSN is returned when postgres storage has no DSN.
	ErrMissingPostgresDSN = errors.New("postgres storage requires storage.postgres_dsn or POSTGRES_DSN")

	// ErrInvalidLogLevel is returned for an unknown log_level.
	ErrInvalidLogLevel = errors.New("log level must be DEBUG, INFO, WARNING or ERROR")

	// ErrMissingTelemetryEndpoint is returned when telemetry is enabled
	// without a collector endpoint.
	ErrMissingTelemetryEndpoint = errors.New("telemetry is enabled but telemetry.endpoint is empty")
)
