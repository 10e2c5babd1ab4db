package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/drydock-dev/drydock/internal/domain"
	"github.com/drydock-dev/drydock/internal/webhook"
)

// WebhookService manages webhook subscriptions. Delivery itself is handled
// by the dispatcher; this service only owns registration and lifecycle.
type WebhookService struct {
	repo  domain.WebhookRepository
	audit *AuditService
	log   *slog.Logger
}

func NewWebhookService(repo domain.WebhookRepository, audit *AuditService, log *slog.Logger) *WebhookService {
	return &WebhookService{repo: repo, audit: audit, log: log}
}

type RegisterWebhookInput struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Secret string `json:"secret,omitempty"`
}

// Register validates the target URL and creates an active subscription. When
// no secret is supplied one is generated; the caller must surface it in the
// creation response because it is never returned again.
func (s *WebhookService) Register(ctx context.Context, input RegisterWebhookInput) (*domain.WebhookSubscription, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if input.URL == "" {
		return nil, fmt.Errorf("%w: url is required", domain.ErrInvalidInput)
	}
	if err := webhook.ValidateURL(input.URL); err != nil {
		return nil, err
	}

	secret := input.Secret
	if secret == "" {
		generated, err := webhook.GenerateSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate webhook secret: %w", err)
		}
		secret = generated
	}

	sub := &domain.WebhookSubscription{
		Name:   input.Name,
		URL:    input.URL,
		Secret: secret,
		Active: true,
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create webhook subscription: %w", err)
	}

	s.log.Info("webhook registered", "id", sub.ID, "name", sub.Name, "url", sub.URL)

	s.audit.Log(ctx, &domain.AuditEntry{
		Action:     "register_webhook",
		TargetType: strptr("webhook"),
		TargetID:   strptr(sub.ID.String()),
		Details: map[string]interface{}{
			"name": sub.Name,
			"url":  sub.URL,
		},
	})

	return sub, nil
}

func (s *WebhookService) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookSubscription, error) {
	return s.repo.GetSubscription(ctx, id)
}

func (s *WebhookService) List(ctx context.Context) ([]*domain.WebhookSubscription, error) {
	return s.repo.ListSubscriptions(ctx, false)
}

// SetActive pauses or resumes a subscription. Pending deliveries for a paused
// subscription are retained and resume once it is reactivated.
func (s *WebhookService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.repo.SetSubscriptionActive(ctx, id, active); err != nil {
		return err
	}

	s.log.Info("webhook state changed", "id", id, "active", active)

	s.audit.Log(ctx, &domain.AuditEntry{
		Action:     "update_webhook",
		TargetType: strptr("webhook"),
		TargetID:   strptr(id.String()),
		Details:    map[string]interface{}{"active": active},
	})

	return nil
}

func (s *WebhookService) ListDeliveries(ctx context.Context, webhookID uuid.UUID, page, perPage int) ([]*domain.WebhookDelivery, int, error) {
	if _, err := s.repo.GetSubscription(ctx, webhookID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListDeliveries(ctx, webhookID, page, perPage)
}
