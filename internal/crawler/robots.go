package crawler

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
)

// DefaultRobotsTTL is how long parsed robots.txt rules are kept per host.
const DefaultRobotsTTL = 30 * time.Minute

// RobotsPolicy is an Admitter that honours robots.txt.
//
// Rules are fetched once per scheme and host through the crawl fetcher and
// cached. A robots.txt that cannot be fetched or parsed allows everything.
type RobotsPolicy struct {
	fetcher   Fetcher
	userAgent string
	timeout   time.Duration
	cache     *cache.Cache
	logger    *slog.Logger
}

// NewRobotsPolicy creates a robots.txt admitter.
func NewRobotsPolicy(fetcher Fetcher, userAgent string, timeout, ttl time.Duration, logger *slog.Logger) *RobotsPolicy {
	if ttl <= 0 {
		ttl = DefaultRobotsTTL
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RobotsPolicy{
		fetcher:   fetcher,
		userAgent: userAgent,
		timeout:   timeout,
		cache:     cache.New(ttl, 2*ttl),
		logger:    logger,
	}
}

// Allowed reports whether rawURL may be crawled.
func (r *RobotsPolicy) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	group := r.group(ctx, u.Scheme, u.Host)
	if group == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return group.Test(path)
}

// group returns the cached rule group for host, fetching it on a miss.
// A nil group means everything is allowed.
func (r *RobotsPolicy) group(ctx context.Context, scheme, host string) *robotstxt.Group {
	key := scheme + "://" + host
	if cached, found := r.cache.Get(key); found {
		group, _ := cached.(*robotstxt.Group)
		return group
	}

	headers := map[string]string{"User-Agent": r.userAgent}
	result := r.fetcher.Fetch(ctx, key+"/robots.txt", headers, r.timeout)

	var group *robotstxt.Group
	if result.Error != "" {
		r.logger.Debug("robots.txt unavailable", slog.String("host", host), slog.String("error", result.Error))
	} else {
		data, err := robotstxt.FromStatusAndString(result.Status, result.Content)
		if err != nil {
			r.logger.Debug("robots.txt unparsable", slog.String("host", host), slog.String("error", err.Error()))
		} else {
			group = data.FindGroup(r.userAgent)
		}
	}

	r.cache.Set(key, group, cache.DefaultExpiration)
	return group
}
