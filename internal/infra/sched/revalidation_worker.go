package sched

import (
	"context"
	"time"

	"growth-subscription-service/internal/domain/ports/repository"
	"growth-subscription-service/internal/usecase"

	"github.com/rs/zerolog"
)

// RevalidationWorker periodically sweeps known sessions and refreshes any
// whose canonical state has gone stale, so entitlement reads keep answering
// from recent evidence even when clients stay idle.
type RevalidationWorker struct {
	interval  time.Duration
	snapshots repository.SnapshotRepository
	reconcile usecase.ReconcilerUseCase
	log       *zerolog.Logger
}

func NewRevalidationWorker(interval time.Duration, snapshots repository.SnapshotRepository, reconcile usecase.ReconcilerUseCase, logger *zerolog.Logger) *RevalidationWorker {
	compLog := logger.With().Str("component", "RevalidationWorker").Logger()
	return &RevalidationWorker{
		interval:  interval,
		snapshots: snapshots,
		reconcile: reconcile,
		log:       &compLog,
	}
}

func (w *RevalidationWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting revalidation worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping revalidation worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *RevalidationWorker) sweep(ctx context.Context) {
	users, err := w.snapshots.Sessions(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("session sweep failed")
		return
	}

	var refreshed int
	for _, userID := range users {
		if ctx.Err() != nil {
			return
		}
		state, err := w.reconcile.CurrentState(ctx, userID)
		if err != nil {
			w.log.Error().Err(err).Str("user_id", userID).Msg("state read failed during sweep")
			continue
		}
		if !state.IsStale() {
			continue
		}
		if _, err := w.reconcile.Refresh(ctx, userID); err != nil {
			w.log.Error().Err(err).Str("user_id", userID).Msg("revalidation failed")
			continue
		}
		refreshed++
	}
	if refreshed > 0 {
		w.log.Info().Int("count", refreshed).Msg("stale sessions revalidated")
	}
}
