// Package links expands shortened store links before they are matched and rewritten.
package links

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/affiliate-link-bot/internal/core/errors"
	"github.com/lueurxax/affiliate-link-bot/internal/platform/observability"
)

const (
	logKeyURL           = "url"
	defaultRPS          = 2
	defaultCacheTTLHour = 24

	resultCached   = "cached"
	resultResolved = "resolved"
	resultFailed   = "failed"
)

// Fetcher resolves a URL to its final destination.
type Fetcher interface {
	Resolve(ctx context.Context, rawURL string) (string, error)
}

// Resolver expands short links, remembering answers in a Cache. On any failure it returns the
// link it was given so the message keeps its original text.
type Resolver struct {
	fetcher  Fetcher
	cache    Cache
	cacheTTL time.Duration
	logger   *zerolog.Logger
}

// Config tunes the resolver. Zero values pick defaults.
type Config struct {
	RPS      float64
	Timeout  time.Duration
	CacheTTL time.Duration
}

// New builds a Resolver over a WebFetcher. cache may be nil.
func New(cfg Config, cache Cache, logger *zerolog.Logger) *Resolver {
	rps := cfg.RPS
	if rps <= 0 {
		rps = defaultRPS
	}

	return NewWithFetcher(NewWebFetcher(rps, cfg.Timeout), cache, cfg.CacheTTL, logger)
}

func NewWithFetcher(fetcher Fetcher, cache Cache, cacheTTL time.Duration, logger *zerolog.Logger) *Resolver {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTLHour * time.Hour
	}

	if cache == nil {
		cache = NewMemoryCache(0)
	}

	return &Resolver{
		fetcher:  fetcher,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Expand returns where rawURL leads. Trailing "." and "," are kept on the result.
func (r *Resolver) Expand(ctx context.Context, rawURL string) string {
	stripped := strings.TrimRight(rawURL, ".,")
	punctuation := rawURL[len(stripped):]

	if stripped == "" {
		return rawURL
	}

	cached, err := r.cache.Get(ctx, stripped)
	if err == nil && cached != "" {
		observability.ShortURLRequests.WithLabelValues(resultCached).Inc()

		return cached + punctuation
	}

	if err != nil && !errors.Is(err, errors.ErrCacheNotFound) {
		r.logger.Warn().Err(err).Str(logKeyURL, stripped).Msg("short url cache read failed")
	}

	start := time.Now()
	resolved, err := r.fetcher.Resolve(ctx, stripped)

	observability.ShortURLLatency.Observe(time.Since(start).Seconds())

	if err != nil || resolved == "" {
		observability.ShortURLRequests.WithLabelValues(resultFailed).Inc()
		r.logger.Warn().Err(err).Str(logKeyURL, stripped).Msg("failed to expand short url")

		return rawURL
	}

	observability.ShortURLRequests.WithLabelValues(resultResolved).Inc()
	r.logger.Info().Str(logKeyURL, stripped).Str("expanded", resolved).Msg("Expanded short url")

	if err := r.cache.Set(ctx, stripped, resolved, r.cacheTTL); err != nil {
		r.logger.Warn().Err(err).Str(logKeyURL, stripped).Msg("failed to cache expanded url")
	}

	return resolved + punctuation
}
