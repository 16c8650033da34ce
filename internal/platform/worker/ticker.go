package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	logFieldWorker = "worker"

	// errFmtSingleTickerLoop is the error format for single ticker loop context errors.
	errFmtSingleTickerLoop = "single ticker loop %s: %w"
)

// SingleTickerConfig configures a single-ticker loop.
type SingleTickerConfig struct {
	// Name identifies the worker for logging.
	Name string

	// Interval is the ticker interval.
	Interval time.Duration

	// OnTick is called when the ticker fires.
	OnTick func(ctx context.Context)

	// RunOnStart runs OnTick immediately when starting.
	RunOnStart bool

	// OnStart is called once when the loop starts.
	OnStart func(ctx context.Context)

	// OnStop is called once when the loop exits.
	OnStop func()

	// Logger for the worker.
	Logger *zerolog.Logger
}

// SingleTickerLoop calls OnTick every Interval until ctx is canceled.
// Returns a wrapped context error when the context is canceled.
func SingleTickerLoop(ctx context.Context, cfg SingleTickerConfig) error {
	if cfg.Interval <= 0 {
		return fmt.Errorf("single ticker loop %s: non-positive interval %s", cfg.Name, cfg.Interval)
	}

	logger := getLogger(cfg.Logger)
	logger.Info().Str(logFieldWorker, cfg.Name).Dur("interval", cfg.Interval).Msg("starting single ticker loop")

	runOnStart(ctx, cfg.OnStart)
	defer runOnStop(cfg.OnStop, logger, cfg.Name, "single ticker loop stopped")

	if cfg.RunOnStart && cfg.OnTick != nil {
		cfg.OnTick(ctx)
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf(errFmtSingleTickerLoop, cfg.Name, ctx.Err())
		case <-ticker.C:
			if cfg.OnTick != nil {
				cfg.OnTick(ctx)
			}
		}
	}
}

// getLogger returns the provided logger or a nop logger if nil.
func getLogger(logger *zerolog.Logger) *zerolog.Logger {
	if logger == nil {
		nop := zerolog.Nop()

		return &nop
	}

	return logger
}

// runOnStart calls the onStart callback if not nil.
func runOnStart(ctx context.Context, onStart func(ctx context.Context)) {
	if onStart != nil {
		onStart(ctx)
	}
}

// runOnStop calls the onStop callback and logs the stop message.
func runOnStop(onStop func(), logger *zerolog.Logger, name, msg string) {
	if onStop != nil {
		onStop()
	}

	logger.Info().Str(logFieldWorker, name).Msg(msg)
}
