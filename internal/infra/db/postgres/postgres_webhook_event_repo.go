package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"growth-subscription-service/internal/domain"
	"growth-subscription-service/internal/domain/model"
	"growth-subscription-service/internal/domain/ports/repository"
)

var _ repository.WebhookEventRepository = (*WebhookEventRepo)(nil)

// uniqueViolation is the Postgres error code for a duplicate key.
const uniqueViolation = "23505"

// WebhookEventRepo is the append-only audit log of received store
// notifications, unique on (transaction_id, event_type).
//
// DB columns: id TEXT PRIMARY KEY, transaction_id TEXT, event_type TEXT,
// status TEXT, product_id TEXT, environment TEXT, payload JSONB,
// received_at TIMESTAMPTZ, UNIQUE (transaction_id, event_type)
type WebhookEventRepo struct {
	pool *pgxpool.Pool
}

func NewWebhookEventRepo(pool *pgxpool.Pool) *WebhookEventRepo {
	return &WebhookEventRepo{pool: pool}
}

func (r *WebhookEventRepo) Insert(ctx context.Context, rec *repository.WebhookEventRecord) error {
	const sql = `
INSERT INTO webhook_events (id, transaction_id, event_type, status, product_id, environment, payload, received_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);
`
	_, err := r.pool.Exec(ctx, sql,
		rec.ID,
		rec.TransactionID,
		string(rec.EventType),
		string(rec.Status),
		rec.ProductID,
		rec.Environment,
		rec.Payload,
		rec.ReceivedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateEvent
		}
		return fmt.Errorf("postgres Insert webhook event: %w", err)
	}
	return nil
}

func (r *WebhookEventRepo) FindByTransaction(ctx context.Context, transactionID string) ([]*repository.WebhookEventRecord, error) {
	const sql = `
SELECT id, transaction_id, event_type, status, product_id, environment, payload, received_at
FROM webhook_events
WHERE transaction_id = $1
ORDER BY received_at DESC;
`
	rows, err := r.pool.Query(ctx, sql, transactionID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres FindByTransaction webhook events: %w", err)
	}
	defer rows.Close()

	var out []*repository.WebhookEventRecord
	for rows.Next() {
		var (
			rec       repository.WebhookEventRecord
			eventType string
			status    string
		)
		if err := rows.Scan(&rec.ID, &rec.TransactionID, &eventType, &status,
			&rec.ProductID, &rec.Environment, &rec.Payload, &rec.ReceivedAt); err != nil {
			return nil, fmt.Errorf("postgres FindByTransaction scan: %w", err)
		}
		rec.EventType = model.WebhookEventType(eventType)
		rec.Status = model.WebhookSubscriptionStatus(status)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// NewPgxPool opens a bounded connection pool.
func NewPgxPool(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return pool, nil
}
