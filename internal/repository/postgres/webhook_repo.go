package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drydock-dev/drydock/internal/domain"
)

const deliveryColumns = `id, webhook_id, event_type, event_payload, attempt_count, next_retry_at, last_error, status, delivered_at, created_at`

type WebhookRepo struct {
	pool *pgxpool.Pool
}

func NewWebhookRepo(pool *pgxpool.Pool) *WebhookRepo {
	return &WebhookRepo{pool: pool}
}

func (r *WebhookRepo) CreateSubscription(ctx context.Context, sub *domain.WebhookSubscription) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO webhook_subscriptions (name, url, secret, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, sub.Name, sub.URL, sub.Secret, sub.Active).
		Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert webhook subscription: %w", err)
	}
	return nil
}

func (r *WebhookRepo) GetSubscription(ctx context.Context, id uuid.UUID) (*domain.WebhookSubscription, error) {
	sub := &domain.WebhookSubscription{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, url, secret, active, created_at
		FROM webhook_subscriptions
		WHERE id = $1
	`, id).Scan(&sub.ID, &sub.Name, &sub.URL, &sub.Secret, &sub.Active, &sub.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook subscription: %w", err)
	}
	return sub, nil
}

func (r *WebhookRepo) ListSubscriptions(ctx context.Context, activeOnly bool) ([]*domain.WebhookSubscription, error) {
	query := `
		SELECT id, name, url, secret, active, created_at
		FROM webhook_subscriptions
	`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list webhook subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*domain.WebhookSubscription
	for rows.Next() {
		sub := &domain.WebhookSubscription{}
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.URL, &sub.Secret, &sub.Active, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	if subs == nil {
		subs = []*domain.WebhookSubscription{}
	}

	return subs, nil
}

func (r *WebhookRepo) SetSubscriptionActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE webhook_subscriptions SET active = $1 WHERE id = $2
	`, active, id)
	if err != nil {
		return fmt.Errorf("update webhook subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *WebhookRepo) CreateDelivery(ctx context.Context, delivery *domain.WebhookDelivery) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO webhook_deliveries (webhook_id, event_type, event_payload, attempt_count, next_retry_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, delivery.WebhookID, delivery.EventType, delivery.EventPayload,
		delivery.AttemptCount, delivery.NextRetryAt, delivery.Status).
		Scan(&delivery.ID, &delivery.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert webhook delivery: %w", err)
	}
	return nil
}

func (r *WebhookRepo) GetDelivery(ctx context.Context, id uuid.UUID) (*domain.WebhookDelivery, error) {
	d := &domain.WebhookDelivery{}
	err := r.pool.QueryRow(ctx, `
		SELECT `+deliveryColumns+` FROM webhook_deliveries WHERE id = $1
	`, id).Scan(
		&d.ID, &d.WebhookID, &d.EventType, &d.EventPayload, &d.AttemptCount,
		&d.NextRetryAt, &d.LastError, &d.Status, &d.DeliveredAt, &d.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook delivery: %w", err)
	}
	return d, nil
}

func (r *WebhookRepo) ListDeliveries(ctx context.Context, webhookID uuid.UUID, page, perPage int) ([]*domain.WebhookDelivery, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM webhook_deliveries WHERE webhook_id = $1
	`, webhookID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count webhook deliveries: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+deliveryColumns+` FROM webhook_deliveries
		WHERE webhook_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, webhookID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list webhook deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []*domain.WebhookDelivery
	for rows.Next() {
		d := &domain.WebhookDelivery{}
		if err := rows.Scan(
			&d.ID, &d.WebhookID, &d.EventType, &d.EventPayload, &d.AttemptCount,
			&d.NextRetryAt, &d.LastError, &d.Status, &d.DeliveredAt, &d.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan webhook delivery: %w", err)
		}
		deliveries = append(deliveries, d)
	}

	if deliveries == nil {
		deliveries = []*domain.WebhookDelivery{}
	}

	return deliveries, total, nil
}

// ClaimDelivery wins the race for a due pending delivery by bumping its
// attempt counter and pushing next_retry_at to the following backoff slot in
// one conditional UPDATE. A claim that matches no row means another worker
// got there first, the delivery is not yet due, or it already settled.
func (r *WebhookRepo) ClaimDelivery(ctx context.Context, id uuid.UUID, now, nextRetryAt time.Time) (int, error) {
	var attemptCount int
	err := r.pool.QueryRow(ctx, `
		UPDATE webhook_deliveries
		SET attempt_count = attempt_count + 1, next_retry_at = $1
		WHERE id = $2 AND status = $3 AND next_retry_at <= $4
		RETURNING attempt_count
	`, nextRetryAt, id, domain.DeliveryStatusPending, now).Scan(&attemptCount)
	if err == pgx.ErrNoRows {
		return 0, domain.ErrConflict
	}
	if err != nil {
		return 0, fmt.Errorf("claim webhook delivery: %w", err)
	}
	return attemptCount, nil
}

func (r *WebhookRepo) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE webhook_deliveries
		SET status = $1, delivered_at = $2, last_error = NULL
		WHERE id = $3 AND status = $4
	`, domain.DeliveryStatusDelivered, at, id, domain.DeliveryStatusPending)
	if err != nil {
		return fmt.Errorf("mark delivery delivered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *WebhookRepo) RecordFailure(ctx context.Context, id uuid.UUID, lastError string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE webhook_deliveries
		SET last_error = $1
		WHERE id = $2 AND status = $3
	`, lastError, id, domain.DeliveryStatusPending)
	if err != nil {
		return fmt.Errorf("record delivery failure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *WebhookRepo) MarkExhausted(ctx context.Context, id uuid.UUID, lastError string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE webhook_deliveries
		SET status = $1, last_error = $2
		WHERE id = $3 AND status = $4
	`, domain.DeliveryStatusExhausted, lastError, id, domain.DeliveryStatusPending)
	if err != nil {
		return fmt.Errorf("mark delivery exhausted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *WebhookRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.WebhookDelivery, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+deliveryColumns+` FROM webhook_deliveries
		WHERE status = $1 AND next_retry_at <= $2
		ORDER BY next_retry_at ASC
		LIMIT $3
	`, domain.DeliveryStatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []*domain.WebhookDelivery
	for rows.Next() {
		d := &domain.WebhookDelivery{}
		if err := rows.Scan(
			&d.ID, &d.WebhookID, &d.EventType, &d.EventPayload, &d.AttemptCount,
			&d.NextRetryAt, &d.LastError, &d.Status, &d.DeliveredAt, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan due delivery: %w", err)
		}
		deliveries = append(deliveries, d)
	}

	return deliveries, nil
}

func (r *WebhookRepo) DeleteSettledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM webhook_deliveries
		WHERE status IN ($1, $2) AND created_at < $3
	`, domain.DeliveryStatusDelivered, domain.DeliveryStatusExhausted, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete settled deliveries: %w", err)
	}
	return tag.RowsAffected(), nil
}
