package repository

import (
	"context"

	"growth-subscription-service/internal/domain/model"
)

// Snapshot is the persisted pair of canonical state and the validation
// result that produced it. One snapshot exists per user session, stored
// under fixed cache keys and cleared on sign-out.
type Snapshot struct {
	State          model.SubscriptionState `json:"state"`
	LastValidation *model.ValidationResult `json:"lastValidation,omitempty"`
}

// SnapshotRepository persists the canonical subscription snapshot.
// Only the reconciler writes it; everyone else reads.
type SnapshotRepository interface {
	// Load returns the persisted snapshot, or domain.ErrNotFound.
	Load(ctx context.Context, userID string) (*Snapshot, error)
	// Save atomically replaces the snapshot.
	Save(ctx context.Context, userID string, snap *Snapshot) error
	// Clear removes the snapshot on sign-out or explicit cache clear.
	Clear(ctx context.Context, userID string) error
	// Sessions lists the users that currently hold a snapshot, for the
	// periodic revalidation sweep.
	Sessions(ctx context.Context) ([]string, error)
}

// IdempotencyGuard remembers which webhook deliveries have already been
// applied so re-deliveries become no-ops.
type IdempotencyGuard interface {
	// FirstApplication reports true exactly once per key.
	FirstApplication(ctx context.Context, key string) (bool, error)
	// Release forgets a claimed key. A delivery whose state change failed
	// to persist must release its claim so the sender's retry applies
	// instead of being dropped as a duplicate.
	Release(ctx context.Context, key string) error
}
