//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"growth-subscription-service/internal/domain"
	"growth-subscription-service/internal/domain/model"
	"growth-subscription-service/internal/domain/ports/repository"

	goredis "github.com/go-redis/redis/v8"
)

// fakeRedis is an in-memory RedisClient for unit tests.
type fakeRedis struct {
	kv   map[string]string
	sets map[string]map[string]struct{}

	setErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		kv:   make(map[string]string),
		sets: make(map[string]map[string]struct{}),
	}
}

func (f *fakeRedis) Ping(ctx context.Context) error { return nil }

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.kv[key] = stringify(value)
	return nil
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, _ time.Duration) (bool, error) {
	if _, exists := f.kv[key]; exists {
		return false, nil
	}
	f.kv[key] = stringify(value)
	return true, nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.kv[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.kv, k)
	}
	return nil
}

func (f *fakeRedis) SAdd(ctx context.Context, key string, members ...interface{}) error {
	set, ok := f.sets[key]
	if !ok {
		set = make(map[string]struct{})
		f.sets[key] = set
	}
	for _, m := range members {
		set[stringify(m)] = struct{}{}
	}
	return nil
}

func (f *fakeRedis) SRem(ctx context.Context, key string, members ...interface{}) error {
	set := f.sets[key]
	for _, m := range members {
		delete(set, stringify(m))
	}
	return nil
}

func (f *fakeRedis) SMembers(ctx context.Context, key string) ([]string, error) {
	var out []string
	for m := range f.sets[key] {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeRedis) Close() error { return nil }

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return ""
	}
}

func activeSnapshot() *repository.Snapshot {
	future := time.Now().Add(24 * time.Hour)
	state := model.ActiveState(model.TierPremium, future, model.ProductPremiumYearly, true)
	result := model.SuccessResult(state, model.SourceServer, "hash")
	return &repository.Snapshot{State: state, LastValidation: &result}
}

func TestSnapshotRepo_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSnapshotRepo(newFakeRedis())

	if err := repo.Save(ctx, "user-1", activeSnapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.State.HasActiveAccess() {
		t.Error("the loaded state must match the saved one")
	}
	if got.LastValidation == nil || got.LastValidation.Source != model.SourceServer {
		t.Error("the stored validation result must round-trip")
	}
}

func TestSnapshotRepo_LoadMissing(t *testing.T) {
	repo := NewSnapshotRepo(newFakeRedis())
	if _, err := repo.Load(context.Background(), "nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestSnapshotRepo_CorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	fake.kv["subscription_state:user-1"] = "{not json"
	repo := NewSnapshotRepo(fake)

	// A corrupt snapshot reads as absent so the next validation rebuilds it.
	if _, err := repo.Load(ctx, "user-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a corrupt snapshot, got: %v", err)
	}
}

func TestSnapshotRepo_SessionIndex(t *testing.T) {
	ctx := context.Background()
	repo := NewSnapshotRepo(newFakeRedis())

	for _, user := range []string{"user-1", "user-2"} {
		if err := repo.Save(ctx, user, activeSnapshot()); err != nil {
			t.Fatalf("save %s: %v", user, err)
		}
	}
	users, err := repo.Sessions(ctx)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(users))
	}

	if err := repo.Clear(ctx, "user-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	users, err = repo.Sessions(ctx)
	if err != nil {
		t.Fatalf("sessions after clear: %v", err)
	}
	if len(users) != 1 || users[0] != "user-2" {
		t.Errorf("expected only user-2 to remain, got %v", users)
	}
	if _, err := repo.Load(ctx, "user-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("clear must remove the snapshot itself")
	}
}

func TestSnapshotRepo_SaveFailure(t *testing.T) {
	fake := newFakeRedis()
	fake.setErr = errors.New("connection reset")
	repo := NewSnapshotRepo(fake)

	if err := repo.Save(context.Background(), "user-1", activeSnapshot()); err == nil {
		t.Error("a write failure must surface to the reconciler")
	}
}

func TestDedupGuard_FirstApplication(t *testing.T) {
	ctx := context.Background()
	guard := NewDedupGuard(newFakeRedis(), time.Hour)

	first, err := guard.FirstApplication(ctx, "txn-1:DID_RENEW")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !first {
		t.Error("the first delivery must report true")
	}
	second, err := guard.FirstApplication(ctx, "txn-1:DID_RENEW")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if second {
		t.Error("a re-delivery must report false")
	}

	other, err := guard.FirstApplication(ctx, "txn-1:CANCEL")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !other {
		t.Error("a different event type is a distinct delivery")
	}
}

func TestDedupGuard_Release(t *testing.T) {
	ctx := context.Background()
	guard := NewDedupGuard(newFakeRedis(), time.Hour)

	if _, err := guard.FirstApplication(ctx, "txn-1:DID_RENEW"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := guard.Release(ctx, "txn-1:DID_RENEW"); err != nil {
		t.Fatalf("release: %v", err)
	}
	again, err := guard.FirstApplication(ctx, "txn-1:DID_RENEW")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !again {
		t.Error("a released delivery must count as first again")
	}
}
