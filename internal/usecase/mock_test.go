//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"growth-subscription-service/internal/domain"
	"growth-subscription-service/internal/domain/model"
	"growth-subscription-service/internal/domain/ports/adapter"
	"growth-subscription-service/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- Mock SnapshotRepository ----

type MockSnapshotRepo struct {
	mu    sync.Mutex
	store map[string]*repository.Snapshot

	LoadFunc func(ctx context.Context, userID string) (*repository.Snapshot, error)
	SaveFunc func(ctx context.Context, userID string, snap *repository.Snapshot) error
}

var _ repository.SnapshotRepository = (*MockSnapshotRepo)(nil)

func NewMockSnapshotRepo() *MockSnapshotRepo {
	return &MockSnapshotRepo{store: make(map[string]*repository.Snapshot)}
}

func (m *MockSnapshotRepo) Load(ctx context.Context, userID string) (*repository.Snapshot, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.store[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *snap
	return &cp, nil
}

func (m *MockSnapshotRepo) Save(ctx context.Context, userID string, snap *repository.Snapshot) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, userID, snap)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *snap
	m.store[userID] = &cp
	return nil
}

func (m *MockSnapshotRepo) Clear(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, userID)
	return nil
}

func (m *MockSnapshotRepo) Sessions(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]string, 0, len(m.store))
	for u := range m.store {
		users = append(users, u)
	}
	return users, nil
}

// ---- Mock WebhookEventRepository ----

type MockEventRepo struct {
	mu      sync.Mutex
	Records []*repository.WebhookEventRecord

	InsertFunc func(ctx context.Context, rec *repository.WebhookEventRecord) error
}

var _ repository.WebhookEventRepository = (*MockEventRepo)(nil)

func NewMockEventRepo() *MockEventRepo { return &MockEventRepo{} }

func (m *MockEventRepo) Insert(ctx context.Context, rec *repository.WebhookEventRecord) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.Records {
		if r.TransactionID == rec.TransactionID && r.EventType == rec.EventType {
			return domain.ErrDuplicateEvent
		}
	}
	m.Records = append(m.Records, rec)
	return nil
}

func (m *MockEventRepo) FindByTransaction(ctx context.Context, transactionID string) ([]*repository.WebhookEventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*repository.WebhookEventRecord
	for i := len(m.Records) - 1; i >= 0; i-- {
		if m.Records[i].TransactionID == transactionID {
			out = append(out, m.Records[i])
		}
	}
	return out, nil
}

// ---- Mock IdempotencyGuard ----

type MockGuard struct {
	mu   sync.Mutex
	seen map[string]bool

	FirstApplicationFunc func(ctx context.Context, key string) (bool, error)
	ReleaseFunc          func(ctx context.Context, key string) error
}

var _ repository.IdempotencyGuard = (*MockGuard)(nil)

func NewMockGuard() *MockGuard { return &MockGuard{seen: make(map[string]bool)} }

func (m *MockGuard) FirstApplication(ctx context.Context, key string) (bool, error) {
	if m.FirstApplicationFunc != nil {
		return m.FirstApplicationFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func (m *MockGuard) Release(ctx context.Context, key string) error {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, key)
	return nil
}

// ---- Mock StoreGateway ----

type MockStore struct {
	LoadProductsFunc        func(ctx context.Context, productIDs []string) ([]model.Product, error)
	PurchaseFunc            func(ctx context.Context, productID string) (model.PurchaseResult, error)
	RestoreFunc             func(ctx context.Context) (model.RestoreResult, error)
	CurrentEntitlementsFunc func(ctx context.Context) ([]model.Transaction, error)
}

var _ adapter.StoreGateway = (*MockStore)(nil)

func (m *MockStore) Name() string { return "mock" }

func (m *MockStore) LoadProducts(ctx context.Context, productIDs []string) ([]model.Product, error) {
	if m.LoadProductsFunc != nil {
		return m.LoadProductsFunc(ctx, productIDs)
	}
	return model.Catalog, nil
}

func (m *MockStore) Purchase(ctx context.Context, productID string) (model.PurchaseResult, error) {
	if m.PurchaseFunc != nil {
		return m.PurchaseFunc(ctx, productID)
	}
	return model.PurchaseResult{Outcome: model.OutcomeCancelled}, nil
}

func (m *MockStore) Restore(ctx context.Context) (model.RestoreResult, error) {
	if m.RestoreFunc != nil {
		return m.RestoreFunc(ctx)
	}
	return model.RestoreResult{}, nil
}

func (m *MockStore) CurrentEntitlements(ctx context.Context) ([]model.Transaction, error) {
	if m.CurrentEntitlementsFunc != nil {
		return m.CurrentEntitlementsFunc(ctx)
	}
	return nil, nil
}

// ---- Mock ReceiptValidator ----

type MockValidator struct {
	ValidateReceiptFunc func(ctx context.Context, receiptData []byte) (model.ValidationResult, error)
}

var _ adapter.ReceiptValidator = (*MockValidator)(nil)

func (m *MockValidator) Name() string { return "mock" }

func (m *MockValidator) ValidateReceipt(ctx context.Context, receiptData []byte) (model.ValidationResult, error) {
	if m.ValidateReceiptFunc != nil {
		return m.ValidateReceiptFunc(ctx, receiptData)
	}
	return model.SuccessResult(model.NonSubscribed(), model.SourceServer, ""), nil
}
