package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/onioncrawl/internal/config"
	"github.com/nao1215/onioncrawl/internal/crawler"
	"github.com/nao1215/onioncrawl/internal/link"
	"github.com/nao1215/onioncrawl/internal/metrics"
	"github.com/nao1215/onioncrawl/internal/storage"
	"github.com/nao1215/onioncrawl/internal/tor"
)

// shutdownTimeout bounds the metric flush after the crawl.
const shutdownTimeout = 10 * time.Second

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [start-url]",
		Short: "Crawl onion services breadth-first from a start URL",
		Long: `Crawl fetches the start URL through Tor and follows onion links level by
level until the page budget, the depth limit or an interrupt stops it.

Values are taken from the defaults, the configuration file, environment
variables and finally the flags below, each overriding the previous.
Pages already in the store are skipped, so an interrupted crawl resumes
where it stopped.

Examples:
  # Crawl through a Tor daemon at 127.0.0.1:9050
  onioncrawl crawl http://exampleonion.onion/

  # Two levels, at most 20 pages, stored in SQLite
  onioncrawl crawl -d 2 -p 20 -s sqlite http://exampleonion.onion/

  # Start a private Tor daemon
  onioncrawl crawl --embedded-tor -u http://exampleonion.onion/`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCrawlCmd,
	}

	addConfigFlags(cmd)
	cmd.Flags().StringP("start-url", "u", "",
		"Start URL on a .onion host (may also be given as an argument)")
	cmd.Flags().IntP("max-depth", "d", config.DefaultMaxDepth,
		"Maximum link depth from the start URL")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to process")
	cmd.Flags().Duration("delay", config.DefaultRequestDelay,
		"Pause between pages")
	cmd.Flags().String("log-level", config.DefaultLogLevel,
		"Log level: DEBUG, INFO, WARNING or ERROR")
	cmd.Flags().Bool("embedded-tor", false,
		"Start a private Tor daemon instead of using the configured proxy")
	cmd.Flags().Bool("json-log", false,
		"Write logs as JSON")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	jsonLog, err := cmd.Flags().GetBool("json-log")
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, jsonLog, slices.Collect(maps.Keys(cfg.Crawler.Headers))...)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger)
}

// buildCrawlConfig applies the crawl flags on top of the loaded
// configuration. Only flags set on the command line override.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if len(args) > 0 {
		cfg.Crawler.StartURL = args[0]
	}
	if flags.Changed("start-url") {
		if len(args) > 0 {
			return nil, errors.New("start URL given both as argument and with --start-url")
		}
		if cfg.Crawler.StartURL, err = flags.GetString("start-url"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-depth") {
		if cfg.Crawler.MaxDepth, err = flags.GetInt("max-depth"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-pages") {
		if cfg.Crawler.MaxPages, err = flags.GetInt("max-pages"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("delay") {
		d, err := flags.GetDuration("delay")
		if err != nil {
			return nil, err
		}
		cfg.Crawler.RequestDelay = config.Duration(d)
	}
	if flags.Changed("log-level") && !getVerboseFlag(cmd) {
		if cfg.LogLevel, err = flags.GetString("log-level"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("embedded-tor") {
		if cfg.Tor.Embedded, err = flags.GetBool("embedded-tor"); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// runCrawl performs one crawl. Interruption through ctx ends the crawl
// normally; only initialization failures are returned.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	runID := uuid.NewString()
	logger = logger.With(slog.String("run_id", runID))

	startURL := cfg.NormalizedStartURL()
	if host, ok := link.ExtractDomain(startURL); ok {
		if kind := tor.ClassifyHost(host); kind != tor.HostV3 {
			logger.Warn("start host is not a valid v3 onion address",
				slog.String("host", host),
				slog.String("kind", kind.String()),
			)
		}
	}

	provider, err := metrics.Setup(ctx, metrics.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Interval:       cfg.Telemetry.Interval.Std(),
		ServiceName:    config.AppName,
		ServiceVersion: getVersion(),
		InstanceID:     runID,
	})
	if err != nil {
		return fmt.Errorf("failed to set up metrics: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(sctx); err != nil {
			logger.Warn("failed to flush metrics", slog.String("error", err.Error()))
		}
	}()

	client, stopTor, err := newTorClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stopTor()

	store, err := openStoreAndCheckProxy(ctx, cfg, client, logger)
	if err != nil {
		return err
	}

	fetcher := tor.NewFetcher(client.NewHTTPClient(), tor.WithMaxBodySize(cfg.Crawler.MaxBodySize))
	opts := []crawler.EngineOption{
		crawler.WithMaxDepth(cfg.Crawler.MaxDepth),
		crawler.WithMaxPages(cfg.Crawler.MaxPages),
		crawler.WithMaxPagesPerDomain(cfg.Crawler.MaxPagesPerDomain),
		crawler.WithRequestDelay(cfg.Crawler.RequestDelay.Std()),
		crawler.WithRequestTimeout(cfg.Crawler.RequestTimeout.Std()),
		crawler.WithUserAgent(cfg.Crawler.UserAgent),
		crawler.WithHeaders(cfg.Crawler.Headers),
		crawler.WithAllowedDomains(cfg.Crawler.AllowedDomains),
		crawler.WithFollowExternalOnion(cfg.Crawler.FollowExternalOnion),
		crawler.WithRecorder(provider.Recorder),
		crawler.WithLogger(logger),
	}
	if cfg.Crawler.ObeyRobotsTxt {
		opts = append(opts, crawler.WithAdmitter(crawler.NewRobotsPolicy(
			fetcher, cfg.Crawler.UserAgent, cfg.Crawler.RequestTimeout.Std(), crawler.DefaultRobotsTTL, logger,
		)))
	}

	engine := crawler.NewEngine(fetcher, crawler.NewParser(), store, opts...)
	if err := engine.Init(ctx); err != nil {
		_ = engine.Close()
		return err
	}
	if err := engine.Seed(startURL); err != nil {
		_ = engine.Close()
		return err
	}
	return engine.Run(ctx)
}

// newTorClient returns a client for the configured proxy, or starts an
// embedded daemon. The returned function stops the daemon, if any.
func newTorClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*tor.Client, func(), error) {
	timeout := cfg.Crawler.RequestTimeout.Std()

	if !cfg.Tor.Embedded {
		client, err := tor.NewClient(cfg.ProxyAddress(), timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
		}
		return client, func() {}, nil
	}

	logger.Info("starting embedded Tor daemon, this may take a few minutes")
	embedded := tor.NewEmbeddedTor(
		tor.WithStartupTimeout(cfg.Tor.StartupTimeout.Std()),
		tor.WithEmbeddedLogger(logger),
	)
	if err := embedded.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}
	stop := func() {
		logger.Info("stopping embedded Tor daemon")
		if err := embedded.Stop(); err != nil {
			logger.Error("failed to stop embedded Tor", slog.String("error", err.Error()))
		}
	}

	client, err := embedded.NewClient(timeout)
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
	}
	return client, stop, nil
}

// openStoreAndCheckProxy opens the store and probes the proxy concurrently.
// Both are required before the crawl starts.
func openStoreAndCheckProxy(ctx context.Context, cfg *config.Config, client *tor.Client, logger *slog.Logger) (storage.Store, error) {
	storeCfg := cfg.StoreConfig()
	storeCfg.Logger = logger

	var store storage.Store
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := storage.Open(gctx, storeCfg)
		if err != nil {
			return fmt.Errorf("failed to open %s storage: %w", storeCfg.Type, err)
		}
		store = s
		logger.Info("storage opened", slog.String("type", string(storeCfg.Type)), slog.String("store", storeSource(storeCfg)))
		return nil
	})
	g.Go(func() error {
		if err := client.CheckConnection(gctx).Error(); err != nil {
			return fmt.Errorf("tor proxy check failed: %w (make sure Tor is running at %s)", err, client.ProxyAddress())
		}
		logger.Info("Tor proxy connection verified", slog.String("proxy", client.ProxyAddress()))
		return nil
	})

	if err := g.Wait(); err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}
	return store, nil
}
