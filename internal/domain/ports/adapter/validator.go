package adapter

import (
	"context"

	"growth-subscription-service/internal/domain/model"
)

// ReceiptValidator performs the server-side receipt validation round-trip.
// Implementations must be non-blocking beyond the supplied context and map
// timeouts to domain.ErrValidationTimeout.
type ReceiptValidator interface {
	// ValidateReceipt exchanges raw receipt data for a server-computed
	// validation result. Errors resolve fail-closed at the call site.
	ValidateReceipt(ctx context.Context, receiptData []byte) (model.ValidationResult, error)
	Name() string
}
