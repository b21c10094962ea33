package adapter

import (
	"context"

	"growth-subscription-service/internal/domain/model"
)

// StoreGateway is the external payment collaborator. The engine only sees
// opaque transaction records; payment UI and store internals stay behind
// this boundary.
type StoreGateway interface {
	// LoadProducts fetches the purchasable products for the given IDs.
	LoadProducts(ctx context.Context, productIDs []string) ([]model.Product, error)
	// Purchase runs one payment attempt for a product. A user cancellation
	// is reported as an outcome, not an error.
	Purchase(ctx context.Context, productID string) (model.PurchaseResult, error)
	// Restore surfaces the transactions the store still considers owned.
	Restore(ctx context.Context) (model.RestoreResult, error)
	// CurrentEntitlements lists transactions the store considers entitling
	// right now, used by the local check.
	CurrentEntitlements(ctx context.Context) ([]model.Transaction, error)
	Name() string
}
