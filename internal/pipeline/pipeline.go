// Package pipeline connects the event bus to its downstream consumers: the
// cross-domain capabilities, the notification hub and the outbound webhook
// engine.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/drydock-dev/drydock/internal/capability"
	"github.com/drydock-dev/drydock/internal/domain"
	"github.com/drydock-dev/drydock/internal/events"
)

// Notifier pushes an event to live operator consoles.
type Notifier interface {
	Publish(event string, payload any)
}

// Enqueuer fans an event out to outbound webhook deliveries.
type Enqueuer interface {
	Enqueue(ctx context.Context, eventType string, payload any) error
}

// Wire subscribes the downstream consumers to the bus. New insights go
// through the capability registry so the notification and operations domains
// stay decoupled from the producer; every event also reaches the hub and the
// webhook engine.
func Wire(bus *events.Bus, capabilities *capability.Registry, notifier Notifier, enqueuer Enqueuer, log *slog.Logger) {
	bus.Register(events.InsightCreated, func(ctx context.Context, payload any) error {
		insight, ok := payload.(*domain.Insight)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", payload)
		}

		capabilities.NotifyInsight(ctx, insight)

		if _, err := capabilities.SuggestAction(ctx, insight); err != nil {
			// A duplicate suggestion means the event was re-delivered;
			// deliberate, not a fault.
			if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrInvalidInput) {
				log.Debug("no action suggested", "insight", insight.ID, "reason", err)
				return nil
			}
			return fmt.Errorf("suggest action: %w", err)
		}
		return nil
	})

	// Everything except insight.created reaches the hub directly; that one
	// goes through the notifier capability above.
	for _, event := range []string{
		events.InsightAcknowledged,
		events.ActionSuggested,
		events.ActionApproved,
		events.ActionRejected,
		events.ActionCompleted,
		events.ActionFailed,
		events.ScanCompleted,
	} {
		event := event
		bus.Register(event, func(_ context.Context, payload any) error {
			notifier.Publish(event, payload)
			return nil
		})
	}

	for _, event := range []string{
		events.InsightCreated,
		events.InsightAcknowledged,
		events.ActionSuggested,
		events.ActionApproved,
		events.ActionRejected,
		events.ActionCompleted,
		events.ActionFailed,
		events.ScanCompleted,
	} {
		event := event
		bus.Register(event, func(ctx context.Context, payload any) error {
			return enqueuer.Enqueue(ctx, event, payload)
		})
	}
}
