package config

import (
	"fmt"
	"net"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/onioncrawl/internal/link"
	"github.com/nao1215/onioncrawl/internal/storage"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "onioncrawl"

	// DefaultProxyHost and DefaultProxyPort address the Tor daemon's SOCKS
	// port. 127.0.0.1 avoids resolving localhost to an IPv6 address.
	DefaultProxyHost = "127.0.0.1"
	DefaultProxyPort = 9050

	// DefaultControlPort is the Tor control port.
	DefaultControlPort = 9051

	// DefaultTorStartupTimeout bounds the embedded daemon's bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	DefaultMaxDepth          = 3
	DefaultMaxPages          = 100
	DefaultMaxPagesPerDomain = 50
	DefaultRequestDelay      = 2 * time.Second

	// DefaultRequestTimeout is generous because every request crosses
	// several relays.
	DefaultRequestTimeout = 30 * time.Second

	DefaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; rv:109.0) Gecko/20100101 Firefox/115.0"
	DefaultMaxRetries = 3

	// DefaultMaxBodySize limits how much of a response is read.
	DefaultMaxBodySize = 5 * 1024 * 1024

	DefaultOutputDir = "./data"

	DefaultLogLevel = "INFO"

	// DefaultTelemetryInterval is the OTLP export interval.
	DefaultTelemetryInterval = 30 * time.Second
)

// Log levels accepted in log_level.
var logLevels = []string{"DEBUG", "INFO", "WARNING", "ERROR"}

// Config is the complete crawler configuration.
//
// It is built once from defaults, the YAML file, the environment and CLI
// flags, in that order of increasing precedence, and then passed down
// explicitly.
type Config struct {
	Tor       TorConfig       `yaml:"tor"`
	Crawler   CrawlerConfig   `yaml:"crawler"`
	Storage   StorageConfig   `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// LogLevel is one of DEBUG, INFO, WARNING or ERROR.
	LogLevel string `yaml:"log_level"`
}

// TorConfig describes how to reach the Tor network.
type TorConfig struct {
	ProxyHost string `yaml:"proxy_host"`
	ProxyPort int    `yaml:"proxy_port"`

	// ControlPort and ControlPassword are kept for configuration files that
	// set them; circuit renewal is not performed.
	ControlPort     int    `yaml:"control_port"`
	ControlPassword string `yaml:"control_password,omitempty"`

	// Embedded starts a private Tor daemon instead of using the proxy at
	// ProxyHost:ProxyPort.
	Embedded bool `yaml:"embedded"`

	// StartupTimeout bounds the embedded daemon's bootstrap.
	StartupTimeout Duration `yaml:"startup_timeout"`
}

// CrawlerConfig holds the crawl policy.
type CrawlerConfig struct {
	StartURL          string `yaml:"start_url"`
	MaxDepth          int    `yaml:"max_depth"`
	MaxPages          int    `yaml:"max_pages"`
	MaxPagesPerDomain int    `yaml:"max_pages_per_domain"`

	// RequestDelay is the pause after each processed page.
	RequestDelay Duration `yaml:"request_delay"`

	// RequestTimeout bounds a single fetch.
	RequestTimeout Duration `yaml:"request_timeout"`

	UserAgent string `yaml:"user_agent"`

	// Headers are sent with every request, for example a session cookie.
	Headers map[string]string `yaml:"headers,omitempty"`

	FollowExternalOnion bool `yaml:"follow_external_onion"`

	// AllowedDomains restricts the crawl to these hosts. Empty allows every
	// onion host.
	AllowedDomains []string `yaml:"allowed_domains,omitempty"`

	// MaxRetries is accepted but not used: failed pages are recorded once.
	MaxRetries int `yaml:"max_retries"`

	// ObeyRobotsTxt enables the robots.txt admission check.
	ObeyRobotsTxt bool `yaml:"obey_robots_txt"`

	// MaxBodySize limits how many bytes of a response are read.
	MaxBodySize int64 `yaml:"max_body_size"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// StorageType is jsonl, sqlite or postgres. "json" is accepted as an
	// alias of jsonl.
	StorageType    string `yaml:"storage_type"`
	OutputDir      string `yaml:"output_dir"`
	JSONFilename   string `yaml:"json_filename"`
	SQLiteFilename string `yaml:"sqlite_filename"`
	PostgresDSN    string `yaml:"postgres_dsn,omitempty"`
}

// TelemetryConfig controls metric export.
type TelemetryConfig struct {
	// Enabled turns on OTLP/HTTP export. Without it metrics are discarded.
	Enabled bool `yaml:"enabled"`

	// Endpoint is the collector host:port.
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure"`

	// Interval is the export period.
	Interval Duration `yaml:"interval"`
}

// NewConfig returns a Config populated with default values. The start URL
// has no default.
func NewConfig() *Config {
	return &Config{
		Tor: TorConfig{
			ProxyHost:      DefaultProxyHost,
			ProxyPort:      DefaultProxyPort,
			ControlPort:    DefaultControlPort,
			StartupTimeout: Duration(DefaultTorStartupTimeout),
		},
		Crawler: CrawlerConfig{
			MaxDepth:            DefaultMaxDepth,
			MaxPages:            DefaultMaxPages,
			MaxPagesPerDomain:   DefaultMaxPagesPerDomain,
			RequestDelay:        Duration(DefaultRequestDelay),
			RequestTimeout:      Duration(DefaultRequestTimeout),
			UserAgent:           DefaultUserAgent,
			FollowExternalOnion: true,
			MaxRetries:          DefaultMaxRetries,
			MaxBodySize:         DefaultMaxBodySize,
		},
		Storage: StorageConfig{
			StorageType:    string(storage.TypeJSONL),
			OutputDir:      DefaultOutputDir,
			JSONFilename:   storage.DefaultJSONFilename,
			SQLiteFilename: storage.DefaultSQLiteFilename,
		},
		Telemetry: TelemetryConfig{
			Endpoint: "localhost:4318",
			Insecure: true,
			Interval: Duration(DefaultTelemetryInterval),
		},
		LogLevel: DefaultLogLevel,
	}
}

// XDGDataDir returns the XDG data directory for onioncrawl.
// On Linux: ~/.local/share/onioncrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for onioncrawl.
// On Linux: ~/.config/onioncrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ProxyAddress returns the external proxy as "host:port".
func (c *Config) ProxyAddress() string {
	return net.JoinHostPort(c.Tor.ProxyHost, strconv.Itoa(c.Tor.ProxyPort))
}

// StorageType returns the configured backend with aliases resolved.
func (c *Config) StorageType() storage.Type {
	t := strings.ToLower(strings.TrimSpace(c.Storage.StorageType))
	if t == "json" {
		return storage.TypeJSONL
	}
	return storage.Type(t)
}

// StoreConfig maps the storage section to storage.Config.
func (c *Config) StoreConfig() storage.Config {
	return storage.Config{
		Type:           c.StorageType(),
		OutputDir:      c.Storage.OutputDir,
		JSONFilename:   c.Storage.JSONFilename,
		SQLiteFilename: c.Storage.SQLiteFilename,
		PostgresDSN:    c.Storage.PostgresDSN,
	}
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	start := strings.TrimSpace(c.Crawler.StartURL)
	if start == "" {
		return ErrNoStartURL
	}
	if !isOnionStartURL(start) {
		return fmt.Errorf("%w: %s", ErrNotOnion, start)
	}
	if c.Crawler.MaxDepth < 1 {
		return ErrInvalidMaxDepth
	}
	if c.Crawler.MaxPages < 1 {
		return ErrInvalidMaxPages
	}
	if c.Crawler.MaxPagesPerDomain < 1 {
		return ErrInvalidMaxPagesPerDomain
	}
	if c.Crawler.RequestDelay < 0 {
		return ErrInvalidRequestDelay
	}
	if c.Crawler.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Crawler.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if !c.Tor.Embedded && (c.Tor.ProxyHost == "" || c.Tor.ProxyPort < 1 || c.Tor.ProxyPort > 65535) {
		return fmt.Errorf("%w: %s", ErrInvalidProxy, c.ProxyAddress())
	}

	switch c.StorageType() {
	case storage.TypeJSONL, storage.TypeSQLite:
	case storage.TypePostgres:
		if c.Storage.PostgresDSN == "" {
			return ErrMissingPostgresDSN
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorage, c.Storage.StorageType)
	}

	if !slices.Contains(logLevels, strings.ToUpper(c.LogLevel)) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return ErrMissingTelemetryEndpoint
	}
	return nil
}

// isOnionStartURL accepts an http(s) URL whose host is an onion host. A
// bare host is read as http.
func isOnionStartURL(raw string) bool {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	return link.IsHTTP(raw) && link.IsOnionURL(raw)
}

// NormalizedStartURL returns the start URL with a scheme, so a bare onion
// host can be given on the command line.
func (c *Config) NormalizedStartURL() string {
	start := strings.TrimSpace(c.Crawler.StartURL)
	if start != "" && !strings.Contains(start, "://") {
		return "http://" + start
	}
	return start
}
