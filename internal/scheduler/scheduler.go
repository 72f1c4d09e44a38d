// Package scheduler runs the background loop that keeps the bot table in sync
// with the tracked event, so the table stays fresh even when nobody has the
// dashboard open.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// MarketSyncer is the slice of the dashboard service the refresher needs.
type MarketSyncer interface {
	SyncMarkets(ctx context.Context) error
}

// ──────────────────────────────────────────────────────────────────────────────
// Refresher
// ──────────────────────────────────────────────────────────────────────────────

// Refresher periodically re-fetches the tracked event and upserts its markets
// into the bot table.  Call Start(ctx) once from main(); cancel the context to
// shut it down gracefully.
type Refresher struct {
	syncer   MarketSyncer
	interval time.Duration
	logger   *slog.Logger
}

// NewRefresher creates a Refresher.
func NewRefresher(syncer MarketSyncer, interval time.Duration, logger *slog.Logger) *Refresher {
	return &Refresher{
		syncer:   syncer,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the refresh goroutine.  It returns immediately; the loop runs
// until ctx is cancelled.
func (r *Refresher) Start(ctx context.Context) {
	go r.refreshLoop(ctx)
	r.logger.Info("market refresher started", "interval", r.interval)
}

// refreshLoop syncs once at startup, then on every interval tick.  On failure
// it retries up to 3 times with a 30-second pause before waiting for the next
// tick.
func (r *Refresher) refreshLoop(ctx context.Context) {
	defer r.recoverAndLog("refreshLoop")

	if err := r.syncWithRetry(ctx); err != nil {
		r.logger.Error("refreshLoop: initial sync failed after retries", "err", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refreshLoop: shutting down")
			return
		case <-ticker.C:
			if err := r.syncWithRetry(ctx); err != nil {
				r.logger.Error("refreshLoop: sync failed after retries", "err", err)
			}
		}
	}
}

// syncWithRetry attempts the market sync up to 3 times.
func (r *Refresher) syncWithRetry(ctx context.Context) error {
	const maxAttempts = 3
	const retryDelay = 30 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := r.syncer.SyncMarkets(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		r.logger.Warn("market sync failed, retrying",
			"attempt", attempt, "max", maxAttempts, "err", lastErr)

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return lastErr
}

// recoverAndLog is deferred inside the goroutine to catch unexpected panics,
// log them, and keep the process alive.
func (r *Refresher) recoverAndLog(loop string) {
	if rec := recover(); rec != nil {
		r.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", rec)
	}
}
