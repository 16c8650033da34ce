package beneficiaries

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/affiliate-link-bot/internal/core/attribution"
	"github.com/lueurxax/affiliate-link-bot/internal/platform/observability"
	"github.com/lueurxax/affiliate-link-bot/internal/platform/worker"
)

const (
	defaultReloadInterval = 24 * time.Hour

	reloadStatusSuccess = "success"
	reloadStatusError   = "error"
)

// SnapshotLoader produces a fresh snapshot.
type SnapshotLoader interface {
	Load(ctx context.Context) (*attribution.Snapshot, error)
}

// Reloader periodically rebuilds the snapshot and publishes it to the store.
type Reloader struct {
	loader   SnapshotLoader
	store    *attribution.Store
	interval time.Duration
	// perSource bounds a periodic reload: one slot for the document plus one per creator.
	perSource time.Duration
	logger    *zerolog.Logger
}

// ReloaderOption configures a Reloader.
type ReloaderOption func(*Reloader)

// WithSourceTimeout bounds each periodic reload by d times the number of sources it reads.
func WithSourceTimeout(d time.Duration) ReloaderOption {
	return func(r *Reloader) { r.perSource = d }
}

func NewReloader(loader SnapshotLoader, store *attribution.Store, interval time.Duration, logger *zerolog.Logger, opts ...ReloaderOption) *Reloader {
	if interval <= 0 {
		interval = defaultReloadInterval
	}

	r := &Reloader{
		loader:   loader,
		store:    store,
		interval: interval,
		logger:   logger,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Reload loads once and swaps the store. On failure the previous snapshot stays published.
func (r *Reloader) Reload(ctx context.Context) error {
	snap, err := r.loader.Load(ctx)
	if err != nil {
		observability.ConfigReloads.WithLabelValues(reloadStatusError).Inc()

		return fmt.Errorf("reload beneficiaries: %w", err)
	}

	r.store.Swap(snap)

	settings := snap.Settings()
	if level, err := zerolog.ParseLevel(settings.LogLevel); err == nil && settings.LogLevel != "" {
		zerolog.SetGlobalLevel(level)
	}

	table := snap.WeightTable()

	observability.ConfigReloads.WithLabelValues(reloadStatusSuccess).Inc()
	observability.ConfigBeneficiaries.Set(float64(len(snap.Beneficiaries())))
	observability.ConfigDomains.Set(float64(len(table)))

	for _, domain := range table.Domains() {
		r.logger.Info().Str("domain", domain).Str("weights", table.Describe(domain)).Msg("domain weights")
	}

	r.logger.Info().
		Int("beneficiaries", len(snap.Beneficiaries())).
		Int("domains", len(table)).
		Time("loaded_at", snap.LoadedAt()).
		Msg("beneficiary configuration loaded")

	return nil
}

// Run reloads every interval until ctx is canceled.
func (r *Reloader) Run(ctx context.Context) error {
	return worker.SingleTickerLoop(ctx, worker.SingleTickerConfig{
		Name:     "beneficiary-reloader",
		Interval: r.interval,
		Logger:   r.logger,
		OnTick: func(ctx context.Context) {
			defer worker.RecoverPanic(r.logger, "beneficiary reload")

			if err := r.reloadBounded(ctx); err != nil {
				r.logger.Error().Err(err).Msg("beneficiary reload failed, keeping previous configuration")
			}
		},
	})
}

// reloadBounded runs Reload under the source timeout. The source count comes from the
// currently published snapshot.
func (r *Reloader) reloadBounded(ctx context.Context) error {
	if r.perSource <= 0 {
		return r.Reload(ctx)
	}

	sources := 1
	if snap := r.store.Current(); snap != nil {
		sources += len(snap.Beneficiaries())
	}

	return worker.RunWithTimeout(ctx, r.perSource*time.Duration(sources), r.Reload)
}
