package repository

import (
	"context"
	"time"

	"growth-subscription-service/internal/domain/model"
)

// WebhookEventRecord is one received notification in the audit log.
type WebhookEventRecord struct {
	ID            string // ULID, time-ordered
	TransactionID string
	EventType     model.WebhookEventType
	Status        model.WebhookSubscriptionStatus
	ProductID     string
	Environment   string
	Payload       []byte // normalized wire payload as applied
	ReceivedAt    time.Time
}

// WebhookEventRepository is the append-only audit log of applied webhook
// events. Insert is idempotent on (transaction_id, event_type);
// re-delivered events return domain.ErrDuplicateEvent.
type WebhookEventRepository interface {
	Insert(ctx context.Context, rec *WebhookEventRecord) error
	// FindByTransaction returns events for a transaction, newest first.
	FindByTransaction(ctx context.Context, transactionID string) ([]*WebhookEventRecord, error)
}
