package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"growth-subscription-service/internal/domain/model"
	"growth-subscription-service/internal/domain/ports/adapter"
)

var _ adapter.StoreGateway = (*NoopStoreGateway)(nil)

// NoopStoreGateway is a simple in-memory gateway for dev and tests. Every
// purchase succeeds immediately and the resulting transaction stays owned
// until the gateway is reset.
type NoopStoreGateway struct {
	mu    sync.Mutex
	seq   int64
	owned []model.Transaction
}

func NewNoopStoreGateway() *NoopStoreGateway {
	return &NoopStoreGateway{}
}

func (g *NoopStoreGateway) Name() string { return "noop" }

func (g *NoopStoreGateway) next() string {
	g.seq++
	return fmt.Sprintf("noop-txn-%d", g.seq)
}

func (g *NoopStoreGateway) LoadProducts(ctx context.Context, productIDs []string) ([]model.Product, error) {
	out := make([]model.Product, 0, len(productIDs))
	for _, id := range productIDs {
		if p, ok := model.ProductByID(id); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (g *NoopStoreGateway) Purchase(ctx context.Context, productID string) (model.PurchaseResult, error) {
	if _, ok := model.ProductByID(productID); !ok {
		return model.PurchaseResult{
			Outcome: model.OutcomeFailed,
			Err:     &model.PurchaseError{Code: model.PurchaseErrInvalidProduct},
		}, nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	txn := model.Transaction{
		ProductID:     productID,
		TransactionID: g.next(),
		PurchaseDate:  time.Now(),
	}
	g.owned = append(g.owned, txn)
	return model.PurchaseResult{Outcome: model.OutcomeSuccess, Transaction: &txn}, nil
}

func (g *NoopStoreGateway) Restore(ctx context.Context) (model.RestoreResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	txns := make([]model.Transaction, len(g.owned))
	copy(txns, g.owned)
	return model.RestoreResult{Transactions: txns}, nil
}

func (g *NoopStoreGateway) CurrentEntitlements(ctx context.Context) ([]model.Transaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	txns := make([]model.Transaction, len(g.owned))
	copy(txns, g.owned)
	return txns, nil
}

// Reset drops all owned transactions.
func (g *NoopStoreGateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.owned = nil
}
