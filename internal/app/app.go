// Package app wires the configuration store, the rewrite engine, the Telegram bot and the
// health server into one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lueurxax/affiliate-link-bot/internal/beneficiaries"
	"github.com/lueurxax/affiliate-link-bot/internal/core/affiliate"
	"github.com/lueurxax/affiliate-link-bot/internal/core/aliexpress"
	"github.com/lueurxax/affiliate-link-bot/internal/core/attribution"
	coreerrors "github.com/lueurxax/affiliate-link-bot/internal/core/errors"
	"github.com/lueurxax/affiliate-link-bot/internal/core/links"
	"github.com/lueurxax/affiliate-link-bot/internal/platform/config"
	"github.com/lueurxax/affiliate-link-bot/internal/platform/observability"
	"github.com/lueurxax/affiliate-link-bot/internal/telegrambot"
)

// App holds the application dependencies.
type App struct {
	cfg    *config.Config
	store  *attribution.Store
	logger *zerolog.Logger
}

func New(cfg *config.Config, logger *zerolog.Logger) *App {
	return &App{
		cfg:    cfg,
		store:  attribution.NewStore(),
		logger: logger,
	}
}

// Store exposes the published configuration.
func (a *App) Store() *attribution.Store {
	return a.store
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	return observability.NewServer(a.cfg.HealthPort, a.Ready, a.logger).Start(ctx)
}

// Ready fails until the first configuration snapshot is published.
func (a *App) Ready(_ context.Context) error {
	if !a.store.Loaded() {
		return coreerrors.ErrSnapshotNotLoaded
	}

	return nil
}

// NewReloader builds the reloader over the configured documents.
func (a *App) NewReloader() *beneficiaries.Reloader {
	loader := beneficiaries.NewLoader(beneficiaries.LoaderConfig{
		DocumentPath: a.cfg.AffiliateConfigPath,
		CreatorsPath: a.cfg.CreatorsConfigPath,
		FetchTimeout: a.cfg.HTTPTimeout,
	}, a.logger)

	return beneficiaries.NewReloader(loader, a.store, a.cfg.ConfigReloadInterval, a.logger,
		beneficiaries.WithSourceTimeout(a.cfg.HTTPTimeout))
}

// NewEngine builds the rewrite engine with its short-link resolver and API client.
// The returned func releases the resolver cache.
func (a *App) NewEngine(ctx context.Context) (*affiliate.Engine, func()) {
	cache, closeCache := a.newShortURLCache(ctx)

	resolver := links.New(links.Config{
		RPS:      a.cfg.ShortURLRPS,
		Timeout:  a.cfg.HTTPTimeout,
		CacheTTL: a.cfg.ShortURLCacheTTL,
	}, cache, a.logger)

	apiClient := aliexpress.NewClient(aliexpress.Config{
		Endpoint: a.cfg.AliExpressAPIURL,
		Timeout:  a.cfg.HTTPTimeout,
		RPS:      a.cfg.AliExpressRPS,
	}, a.logger)

	engine := affiliate.NewEngine(a.logger,
		affiliate.WithExpander(resolver),
		affiliate.WithPromotionLinker(apiClient),
	)

	return engine, closeCache
}

// newShortURLCache connects to Redis when configured and falls back to memory otherwise.
func (a *App) newShortURLCache(ctx context.Context) (links.Cache, func()) {
	if a.cfg.RedisAddr == "" {
		return links.NewMemoryCache(0), func() {}
	}

	redisCache, err := links.NewRedisCache(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
	if err != nil {
		a.logger.Warn().Err(err).Str("addr", a.cfg.RedisAddr).Msg("redis unavailable, using in-memory short url cache")

		return links.NewMemoryCache(0), func() {}
	}

	a.logger.Info().Str("addr", a.cfg.RedisAddr).Msg("Using redis short url cache")

	return redisCache, func() {
		if err := redisCache.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close redis cache")
		}
	}
}

// Run loads the configuration, then runs the reloader and the bot until ctx is canceled.
// A configuration that cannot be loaded at startup is fatal.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info().Msg("Starting affiliate bot")

	reloader := a.NewReloader()
	if err := reloader.Reload(ctx); err != nil {
		return fmt.Errorf("initial configuration load: %w", err)
	}

	engine, closeEngine := a.NewEngine(ctx)
	defer closeEngine()

	api, err := telegrambot.NewAPI(a.cfg.BotToken)
	if err != nil {
		return err
	}

	a.logger.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")

	bot := telegrambot.New(api, telegrambot.Deps{
		Snapshots:  a.store,
		Processor:  engine,
		Dispatcher: affiliate.NewDispatcher(telegrambot.NewMessenger(api, a.logger), a.logger),
	}, a.logger)

	return a.runWithBackground(ctx, reloader.Run, bot.Run)
}

// runWithBackground runs background alongside foreground and stops it once foreground
// returns, whether ctx was canceled or not.
func (a *App) runWithBackground(ctx context.Context, background, foreground func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		if err := background(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error().Err(err).Msg("beneficiary reloader stopped")
		}
	}()

	err := foreground(ctx)

	cancel()
	wg.Wait()

	return err
}
