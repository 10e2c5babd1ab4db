package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/drydock-dev/drydock/internal/domain"
)

// Envelope is the outbound wire format. A 2xx from the receiver settles the
// delivery; any other outcome goes through retry bookkeeping.
type Envelope struct {
	Event     string      `json:"event"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

type DispatcherConfig struct {
	MaxAttempts    int
	BackoffBase    time.Duration
	BackoffCap     time.Duration
	RequestTimeout time.Duration
	// HTTPClient overrides the default client, e.g. to route through a proxy.
	HTTPClient *http.Client
}

// Dispatcher fans events out to registered webhook endpoints with bounded,
// persisted retries. Retry state lives in the store, not in memory, so
// pending deliveries survive a restart and are picked up by the reconciler.
type Dispatcher struct {
	repo        domain.WebhookRepository
	client      *http.Client
	maxAttempts int
	backoffBase time.Duration
	backoffCap  time.Duration
	log         *slog.Logger
}

func NewDispatcher(repo domain.WebhookRepository, cfg DispatcherConfig, log *slog.Logger) *Dispatcher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 5
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 30 * time.Second
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = time.Hour
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	return &Dispatcher{
		repo:        repo,
		client:      httpClient,
		maxAttempts: cfg.MaxAttempts,
		backoffBase: cfg.BackoffBase,
		backoffCap:  cfg.BackoffCap,
		log:         log,
	}
}

// Enqueue creates one pending delivery per active subscription and tries the
// first attempt inline. The envelope is serialized once at emission time, so
// every retry re-sends identical bytes.
func (d *Dispatcher) Enqueue(ctx context.Context, eventType string, payload any) error {
	subs, err := d.repo.ListSubscriptions(ctx, true)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	body, err := json.Marshal(Envelope{
		Event:     eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	now := time.Now().UTC()
	for _, sub := range subs {
		delivery := &domain.WebhookDelivery{
			WebhookID:    sub.ID,
			EventType:    eventType,
			EventPayload: body,
			NextRetryAt:  now,
			Status:       domain.DeliveryStatusPending,
		}
		if err := d.repo.CreateDelivery(ctx, delivery); err != nil {
			d.log.Error("failed to enqueue webhook delivery",
				"webhook", sub.ID, "event", eventType, "err", err)
			continue
		}
		d.attempt(ctx, delivery, sub)
	}

	return nil
}

// StartReconciler re-sends due deliveries at the specified interval. Call in
// a goroutine.
func (d *Dispatcher) StartReconciler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.log.Info("webhook reconciler started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			d.log.Info("webhook reconciler stopped")
			return
		case <-ticker.C:
			d.Reconcile(ctx)
		}
	}
}

// Reconcile scans for pending deliveries whose next_retry_at has elapsed and
// re-attempts them. It may race the live emission path; the claim in the
// store decides who sends.
func (d *Dispatcher) Reconcile(ctx context.Context) {
	due, err := d.repo.ListDue(ctx, time.Now().UTC(), 100)
	if err != nil {
		d.log.Warn("failed to list due deliveries", "err", err)
		return
	}

	for _, delivery := range due {
		sub, err := d.repo.GetSubscription(ctx, delivery.WebhookID)
		if err != nil {
			d.log.Warn("failed to load subscription for delivery",
				"delivery", delivery.ID, "err", err)
			continue
		}
		if !sub.Active {
			// paused subscriptions keep their backlog until reactivated
			continue
		}
		d.attempt(ctx, delivery, sub)
	}
}

// attempt claims the delivery, then sends. Claiming moves next_retry_at into
// the future before any network I/O, so a concurrent worker cannot double-send.
func (d *Dispatcher) attempt(ctx context.Context, delivery *domain.WebhookDelivery, sub *domain.WebhookSubscription) {
	now := time.Now().UTC()
	attempt, err := d.repo.ClaimDelivery(ctx, delivery.ID, now, now.Add(d.backoff(delivery.AttemptCount+1)))
	if err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			d.log.Error("failed to claim delivery", "delivery", delivery.ID, "err", err)
		}
		return
	}

	// Defensive re-validation: a URL that passed at registration time may
	// since have been repointed at something internal.
	if err := ValidateURL(sub.URL); err != nil {
		if markErr := d.repo.MarkExhausted(ctx, delivery.ID, err.Error()); markErr != nil {
			d.log.Error("failed to mark delivery exhausted", "delivery", delivery.ID, "err", markErr)
		}
		d.log.Error("webhook url rejected at send time",
			"webhook", sub.ID, "url", sub.URL, "err", err)
		return
	}

	sendErr := d.send(ctx, sub, delivery.EventPayload)
	if sendErr == nil {
		if err := d.repo.MarkDelivered(ctx, delivery.ID, time.Now().UTC()); err != nil {
			d.log.Error("failed to mark delivery delivered", "delivery", delivery.ID, "err", err)
		}
		d.log.Info("webhook delivered",
			"webhook", sub.ID, "event", delivery.EventType, "attempt", attempt)
		return
	}

	if attempt >= d.maxAttempts {
		exhausted := fmt.Errorf("%w after %d attempts: %v", domain.ErrDeliveryExhausted, attempt, sendErr)
		if err := d.repo.MarkExhausted(ctx, delivery.ID, exhausted.Error()); err != nil {
			d.log.Error("failed to mark delivery exhausted", "delivery", delivery.ID, "err", err)
		}
		d.log.Warn("webhook delivery exhausted",
			"webhook", sub.ID, "event", delivery.EventType, "attempts", attempt, "err", sendErr)
		return
	}

	if err := d.repo.RecordFailure(ctx, delivery.ID, sendErr.Error()); err != nil {
		d.log.Error("failed to record delivery failure", "delivery", delivery.ID, "err", err)
	}
	d.log.Warn("webhook delivery failed, will retry",
		"webhook", sub.ID, "event", delivery.EventType, "attempt", attempt, "err", sendErr)
}

func (d *Dispatcher) send(ctx context.Context, sub *domain.WebhookSubscription, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", domain.ErrTransientDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if sub.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(sub.Secret, body))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransientDelivery, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: unexpected status %d", domain.ErrTransientDelivery, resp.StatusCode)
	}
	return nil
}

// backoff returns the wait before the given attempt number: the base doubled
// per prior attempt, capped.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	wait := d.backoffBase
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= d.backoffCap {
			return d.backoffCap
		}
	}
	return wait
}
