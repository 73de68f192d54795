package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/onioncrawl/internal/link"
	"github.com/nao1215/onioncrawl/internal/model"
)

// Default crawl policy values.
const (
	DefaultMaxDepth          = 3
	DefaultMaxPages          = 100
	DefaultMaxPagesPerDomain = 50
	DefaultRequestDelay      = 2 * time.Second
	DefaultRequestTimeout    = 30 * time.Second
	DefaultUserAgent         = "Mozilla/5.0 (Windows NT 10.0; rv:109.0) Gecko/20100101 Firefox/115.0"

	// progressInterval is how often (in processed pages) progress is logged.
	progressInterval = 10
)

// Skip reasons reported to the metrics recorder.
const (
	SkipVisited     = "visited"
	SkipDepth       = "depth"
	SkipDomainQuota = "domain_quota"
	SkipRobots      = "robots"
)

var (
	// ErrNotSeeded is returned by Run when Seed was not called.
	ErrNotSeeded = errors.New("crawl engine has no seed URL")
	// ErrInvalidSeed is returned by Seed when the start URL cannot be normalized.
	ErrInvalidSeed = errors.New("invalid seed URL")
)

// Fetcher retrieves one URL. Failures are reported inside the result.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string, timeout time.Duration) model.FetchResult
	Close() error
}

// DocumentParser extracts structured data from an HTML document.
type DocumentParser interface {
	Parse(content, baseURL string) model.ParseResult
}

// Store is the persistence port the engine writes to.
type Store interface {
	LoadVisitedURLs(ctx context.Context) (map[string]struct{}, error)
	Save(ctx context.Context, record *model.PageRecord) error
	Stats(ctx context.Context) (model.Stats, error)
	Close() error
}

// Admitter is an optional extra admission check consulted after the
// visited, depth and domain quota checks.
type Admitter interface {
	Allowed(ctx context.Context, url string) bool
}

// Recorder receives crawl counters. See metrics.Recorder.
type Recorder interface {
	PageProcessed(ctx context.Context, status int)
	FetchFailed(ctx context.Context)
	LinksDiscovered(ctx context.Context, n int)
	PageSkipped(ctx context.Context, reason string)
	SaveFailed(ctx context.Context)
}

// Engine is a breadth-first crawler over onion services.
//
// All crawl state (frontier, visited set, per-domain counters) lives in the
// Engine value. An Engine performs a single run: Seed, Init, Run.
type Engine struct {
	fetcher  Fetcher
	parser   DocumentParser
	store    Store
	admitter Admitter
	recorder Recorder
	logger   *slog.Logger

	maxDepth            int
	maxPages            int
	maxPagesPerDomain   int
	requestDelay        time.Duration
	requestTimeout      time.Duration
	allowedDomains      []string
	followExternalOnion bool
	headers             map[string]string

	frontier      *frontier
	visited       map[string]struct{}
	domainCounter map[string]int
	pagesCrawled  int
	startDomain   string
	seeded        bool

	closeOnce sync.Once
	closeErr  error
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxDepth sets the maximum BFS depth. The seed is depth 0.
func WithMaxDepth(depth int) EngineOption {
	return func(e *Engine) {
		e.maxDepth = depth
	}
}

// WithMaxPages sets the number of pages processed before the run stops.
func WithMaxPages(n int) EngineOption {
	return func(e *Engine) {
		e.maxPages = n
	}
}

// WithMaxPagesPerDomain caps the pages attributed to one host in this run.
func WithMaxPagesPerDomain(n int) EngineOption {
	return func(e *Engine) {
		e.maxPagesPerDomain = n
	}
}

// WithRequestDelay sets the pause after each processed page.
func WithRequestDelay(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.requestDelay = d
	}
}

// WithRequestTimeout bounds each fetch.
func WithRequestTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.requestTimeout = d
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) EngineOption {
	return func(e *Engine) {
		e.headers["User-Agent"] = ua
	}
}

// WithHeaders adds extra request headers.
func WithHeaders(headers map[string]string) EngineOption {
	return func(e *Engine) {
		for k, v := range headers {
			e.headers[k] = v
		}
	}
}

// WithAllowedDomains restricts followed links to the given hosts.
func WithAllowedDomains(domains []string) EngineOption {
	return func(e *Engine) {
		e.allowedDomains = append([]string(nil), domains...)
	}
}

// WithFollowExternalOnion controls whether links to other onion hosts are
// followed.
func WithFollowExternalOnion(follow bool) EngineOption {
	return func(e *Engine) {
		e.followExternalOnion = follow
	}
}

// WithAdmitter installs an extra admission check such as robots.txt.
func WithAdmitter(a Admitter) EngineOption {
	return func(e *Engine) {
		e.admitter = a
	}
}

// WithRecorder installs a metrics recorder.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine over the given collaborators.
func NewEngine(fetcher Fetcher, parser DocumentParser, store Store, opts ...EngineOption) *Engine {
	e := &Engine{
		fetcher:             fetcher,
		parser:              parser,
		store:               store,
		recorder:            nopRecorder{},
		logger:              slog.New(slog.DiscardHandler),
		maxDepth:            DefaultMaxDepth,
		maxPages:            DefaultMaxPages,
		maxPagesPerDomain:   DefaultMaxPagesPerDomain,
		requestDelay:        DefaultRequestDelay,
		requestTimeout:      DefaultRequestTimeout,
		followExternalOnion: true,
		headers:             map[string]string{"User-Agent": DefaultUserAgent},
		frontier:            newFrontier(),
		visited:             make(map[string]struct{}),
		domainCounter:       make(map[string]int),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Seed normalizes startURL, records its host as the start domain and makes
// it the only frontier entry, at depth 0.
func (e *Engine) Seed(startURL string) error {
	normalized, ok := link.Normalize(startURL, "")
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidSeed, startURL)
	}
	domain, ok := link.ExtractDomain(normalized)
	if !ok {
		return fmt.Errorf("%w: %s has no host", ErrInvalidSeed, startURL)
	}

	e.startDomain = domain
	e.frontier.reset()
	e.frontier.push(entry{url: normalized, depth: 0})
	e.seeded = true

	e.logger.Info("seeded crawl", slog.String("url", normalized), slog.String("domain", domain))
	return nil
}

// Init loads the URLs already present in the store into the visited set so
// that a restarted crawl does not revisit them.
func (e *Engine) Init(ctx context.Context) error {
	urls, err := e.store.LoadVisitedURLs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load visited URLs: %w", err)
	}
	for u := range urls {
		e.visited[u] = struct{}{}
	}
	e.logger.Info("loaded visited URLs", slog.Int("count", len(urls)))
	return nil
}

// Run drains the frontier breadth-first until it is empty, the page budget
// is reached or ctx is cancelled. Cancellation is observed between pages;
// the page in flight is completed and saved first. Cancellation is not an
// error. Run releases the fetcher and the store before returning.
func (e *Engine) Run(ctx context.Context) error {
	defer e.Close()

	if !e.seeded {
		return ErrNotSeeded
	}

	e.logger.Info("crawl started",
		slog.Int("max_depth", e.maxDepth),
		slog.Int("max_pages", e.maxPages),
		slog.Int("max_pages_per_domain", e.maxPagesPerDomain),
		slog.Bool("follow_external_onion", e.followExternalOnion),
	)

	for e.frontier.len() > 0 && e.pagesCrawled < e.maxPages {
		if ctx.Err() != nil {
			e.logger.Warn("crawl interrupted", slog.Int("pending", e.frontier.len()))
			break
		}

		item, _ := e.frontier.pop()
		if !e.admit(ctx, item) {
			continue
		}

		// The in-flight page finishes even if ctx is cancelled; the fetch is
		// bounded by the request timeout.
		e.processPage(context.WithoutCancel(ctx), item.url, item.depth)

		if e.requestDelay > 0 && e.frontier.len() > 0 && e.pagesCrawled < e.maxPages {
			if !sleep(ctx, e.requestDelay) {
				e.logger.Warn("crawl interrupted", slog.Int("pending", e.frontier.len()))
				break
			}
		}
	}

	e.logFinalStats()
	return nil
}

// Close releases the fetcher and the store. It is safe to call more than
// once; only the first call has an effect.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		var errs []error
		if e.fetcher != nil {
			if err := e.fetcher.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close fetcher: %w", err))
			}
		}
		if e.store != nil {
			if err := e.store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close store: %w", err))
			}
		}
		e.closeErr = errors.Join(errs...)
		if e.closeErr != nil {
			e.logger.Error("teardown failed", slog.String("error", e.closeErr.Error()))
		}
	})
	return e.closeErr
}

// PagesCrawled returns the number of pages processed in this run.
func (e *Engine) PagesCrawled() int {
	return e.pagesCrawled
}

// StartDomain returns the host of the seed URL.
func (e *Engine) StartDomain() string {
	return e.startDomain
}

// admit applies the admission checks in order: visited, depth, domain
// quota, then the optional admitter. A rejected entry has no side effects.
func (e *Engine) admit(ctx context.Context, item entry) bool {
	if e.isVisited(item.url) {
		e.recorder.PageSkipped(ctx, SkipVisited)
		return false
	}

	if item.depth > e.maxDepth {
		e.recorder.PageSkipped(ctx, SkipDepth)
		return false
	}

	if domain, ok := link.ExtractDomain(item.url); ok && e.domainCounter[domain] >= e.maxPagesPerDomain {
		e.logger.Debug("domain quota reached", slog.String("domain", domain), slog.String("url", item.url))
		e.recorder.PageSkipped(ctx, SkipDomainQuota)
		return false
	}

	if e.admitter != nil && !e.admitter.Allowed(ctx, item.url) {
		e.logger.Debug("disallowed by robots.txt", slog.String("url", item.url))
		e.recorder.PageSkipped(ctx, SkipRobots)
		return false
	}

	return true
}

// processPage fetches, parses and saves one admitted URL and appends its
// unvisited links to the frontier at depth+1.
func (e *Engine) processPage(ctx context.Context, pageURL string, depth int) {
	// Mark before the network call so a failing page is never retried.
	e.markVisited(pageURL)
	if domain, ok := link.ExtractDomain(pageURL); ok {
		e.domainCounter[domain]++
	}
	e.pagesCrawled++

	e.logger.Info("crawling",
		slog.Int("page", e.pagesCrawled),
		slog.Int("depth", depth),
		slog.String("url", pageURL),
	)

	result := e.fetcher.Fetch(ctx, pageURL, e.headers, e.requestTimeout)

	finalURL := result.FinalURL
	if finalURL == "" {
		finalURL = pageURL
	}

	record := &model.PageRecord{
		URL:        pageURL,
		FinalURL:   finalURL,
		HTTPStatus: result.Status,
		Depth:      depth,
		Timestamp:  time.Now().UTC(),
		Meta:       map[string]string{},
		Links:      []string{},
		Error:      model.StringPtr(result.Error),
	}

	if result.Error != "" {
		e.logger.Warn("fetch failed", slog.String("url", pageURL), slog.String("error", result.Error))
		e.recorder.FetchFailed(ctx)
	}

	if result.OK() {
		parsed := e.parser.Parse(result.Content, pageURL)
		record.Title = parsed.Title
		record.TextPreview = parsed.TextPreview
		if parsed.Meta != nil {
			record.Meta = parsed.Meta
		}
		record.Links = e.discover(parsed.RawLinks, pageURL, depth)
		e.recorder.LinksDiscovered(ctx, len(record.Links))
	}

	e.recorder.PageProcessed(ctx, result.Status)

	if err := e.store.Save(ctx, record); err != nil {
		e.logger.Error("failed to save page", slog.String("url", pageURL), slog.String("error", err.Error()))
		e.recorder.SaveFailed(ctx)
	}

	if e.pagesCrawled%progressInterval == 0 {
		e.logProgress(ctx)
	}
}

// discover filters raw links by policy, normalizes them against pageURL and
// enqueues the unvisited ones. It returns the de-duplicated eligible links
// in discovery order.
func (e *Engine) discover(rawLinks []string, pageURL string, depth int) []string {
	policy := link.Policy{
		AllowedDomains:      e.allowedDomains,
		FollowExternalOnion: e.followExternalOnion,
		StartDomain:         e.startDomain,
	}

	eligible := link.Filter(rawLinks, policy)
	links := make([]string, 0, len(eligible))
	seen := make(map[string]struct{}, len(eligible))

	for _, l := range eligible {
		normalized, ok := link.Normalize(l, pageURL)
		if !ok {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		links = append(links, normalized)

		if !e.isVisited(normalized) {
			e.frontier.push(entry{url: normalized, depth: depth + 1})
		}
	}

	return links
}

func (e *Engine) isVisited(u string) bool {
	_, ok := e.visited[u]
	return ok
}

// markVisited is the single place the visited set grows during a run.
func (e *Engine) markVisited(u string) {
	e.visited[u] = struct{}{}
}

func (e *Engine) logProgress(ctx context.Context) {
	attrs := []any{
		slog.Int("processed", e.pagesCrawled),
		slog.Int("frontier", e.frontier.len()),
		slog.Int("domains", len(e.domainCounter)),
	}
	if stats, err := e.store.Stats(ctx); err == nil {
		attrs = append(attrs, slog.Int("stored", stats.TotalPages), slog.Int("errors", stats.Errors))
	}
	e.logger.Info("crawl progress", attrs...)
}

func (e *Engine) logFinalStats() {
	// The run context may already be cancelled; stats are still wanted.
	stats, err := e.store.Stats(context.Background())
	if err != nil {
		e.logger.Error("failed to read final statistics", slog.String("error", err.Error()))
		return
	}
	e.logger.Info("crawl finished",
		slog.Int("pages_this_run", e.pagesCrawled),
		slog.Int("total_pages", stats.TotalPages),
		slog.Int("successful", stats.Successful),
		slog.Int("errors", stats.Errors),
		slog.Int("total_links", stats.TotalLinks),
		slog.Int("domains", len(e.domainCounter)),
	)
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

type nopRecorder struct{}

func (nopRecorder) PageProcessed(context.Context, int) {}
func (nopRecorder) FetchFailed(context.Context) {}
func (nopRecorder) LinksDiscovered(context.Context, int) {}
func (nopRecorder) PageSkipped(context.Context, string) {}
func (nopRecorder) SaveFailed(context.Context) {}
