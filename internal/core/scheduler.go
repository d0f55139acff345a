package core

// scheduler.go runs background maintenance for the service.
//
// Staged imports hold a full copy of their edits until they are committed or
// discarded. Clients that upload and walk away would leak them, so the sweeper
// periodically discards imports older than a maximum age.
//
// The sweeper is long-running and context-aware for graceful shutdown.

import (
	"context"
	"log/slog"
	"time"
)

// SweepConfig configures the pending-import sweeper.
type SweepConfig struct {
	MaxAge        time.Duration // discard staged imports older than this (default: 1h)
	CheckInterval time.Duration // how often to run (default: 5m)
}

const (
	defaultPendingMaxAge = time.Hour
	defaultSweepInterval = 5 * time.Minute
)

// StartPendingSweeper discards stale staged imports every CheckInterval until
// ctx is cancelled. It runs once immediately.
func (s *Service) StartPendingSweeper(ctx context.Context, cfg SweepConfig) {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaultPendingMaxAge
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = defaultSweepInterval
	}
	slog.Info("pending sweeper started",
		"max_age", cfg.MaxAge,
		"interval", cfg.CheckInterval,
	)

	s.ExpirePending(ctx, time.Now().Add(-cfg.MaxAge))

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("pending sweeper stopped")
			return
		case now := <-ticker.C:
			s.ExpirePending(ctx, now.Add(-cfg.MaxAge))
		}
	}
}

// ExpirePending discards every staged import created before cutoff and
// returns how many were dropped.
func (s *Service) ExpirePending(ctx context.Context, cutoff time.Time) int {
	expired := 0
	for _, p := range s.PendingImports() {
		if !p.CreatedAt.Before(cutoff) {
			break
		}
		if s.Discard(ctx, p.ID) {
			expired++
		}
	}
	if expired > 0 {
		slog.Info("expired staged imports", "count", expired)
	}
	return expired
}
