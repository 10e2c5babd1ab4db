package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type WebhookDeliveryStatus string

const (
	DeliveryStatusPending   WebhookDeliveryStatus = "pending"
	DeliveryStatusDelivered WebhookDeliveryStatus = "delivered"
	DeliveryStatusExhausted WebhookDeliveryStatus = "exhausted"
)

type WebhookSubscription struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Secret    string    `json:"-"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type WebhookDelivery struct {
	ID           uuid.UUID             `json:"id"`
	WebhookID    uuid.UUID             `json:"webhook_id"`
	EventType    string                `json:"event_type"`
	EventPayload json.RawMessage       `json:"event_payload"`
	AttemptCount int                   `json:"attempt_count"`
	NextRetryAt  time.Time             `json:"next_retry_at"`
	LastError    *string               `json:"last_error,omitempty"`
	Status       WebhookDeliveryStatus `json:"status"`
	DeliveredAt  *time.Time            `json:"delivered_at,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
}

type WebhookRepository interface {
	CreateSubscription(ctx context.Context, sub *WebhookSubscription) error
	GetSubscription(ctx context.Context, id uuid.UUID) (*WebhookSubscription, error)
	ListSubscriptions(ctx context.Context, activeOnly bool) ([]*WebhookSubscription, error)
	SetSubscriptionActive(ctx context.Context, id uuid.UUID, active bool) error

	CreateDelivery(ctx context.Context, delivery *WebhookDelivery) error
	GetDelivery(ctx context.Context, id uuid.UUID) (*WebhookDelivery, error)
	ListDeliveries(ctx context.Context, webhookID uuid.UUID, page, perPage int) ([]*WebhookDelivery, int, error)
	// ClaimDelivery atomically bumps attempt_count and pushes next_retry_at for
	// a pending delivery that is due at now. It returns the new attempt count,
	// or ErrConflict when another worker already claimed the row.
	ClaimDelivery(ctx context.Context, id uuid.UUID, now, nextRetryAt time.Time) (int, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error
	RecordFailure(ctx context.Context, id uuid.UUID, lastError string) error
	MarkExhausted(ctx context.Context, id uuid.UUID, lastError string) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]*WebhookDelivery, error)
	DeleteSettledBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
