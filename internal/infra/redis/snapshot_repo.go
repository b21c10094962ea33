package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"growth-subscription-service/internal/domain"
	"growth-subscription-service/internal/domain/ports/repository"
)

var _ repository.SnapshotRepository = (*SnapshotRepo)(nil)

// SnapshotRepo persists the canonical subscription snapshot in Redis.
// One serialized state plus latest validation result per user session,
// under fixed keys, cleared on sign-out. The reconciler is the only writer.
type SnapshotRepo struct {
	client RedisClient
}

func NewSnapshotRepo(client RedisClient) *SnapshotRepo {
	return &SnapshotRepo{client: client}
}

const sessionIndexKey = "subscription_sessions"

func (r *SnapshotRepo) snapshotKey(userID string) string {
	return fmt.Sprintf("subscription_state:%s", userID)
}

func (r *SnapshotRepo) Load(ctx context.Context, userID string) (*repository.Snapshot, error) {
	data, err := r.client.Get(ctx, r.snapshotKey(userID))
	if err != nil {
		if IsNil(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var snap repository.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		// A corrupt snapshot must never corrupt canonical state; treat it
		// as absent and let the next validation rebuild it.
		return nil, domain.ErrNotFound
	}
	return &snap, nil
}

func (r *SnapshotRepo) Save(ctx context.Context, userID string, snap *repository.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	// No TTL: staleness is decided by the domain, not by key expiry.
	if err := r.client.Set(ctx, r.snapshotKey(userID), data, 0); err != nil {
		return err
	}
	return r.client.SAdd(ctx, sessionIndexKey, userID)
}

func (r *SnapshotRepo) Clear(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, r.snapshotKey(userID)); err != nil {
		return err
	}
	return r.client.SRem(ctx, sessionIndexKey, userID)
}

func (r *SnapshotRepo) Sessions(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, sessionIndexKey)
}
