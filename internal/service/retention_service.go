package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/drydock-dev/drydock/internal/domain"
)

// RetentionService prunes settled webhook deliveries and old spans on a
// schedule. Audit entries are append-only and never pruned.
type RetentionService struct {
	webhooks       domain.WebhookRepository
	spans          domain.SpanRepository
	deliveryMaxAge time.Duration
	spanMaxAge     time.Duration
	log            *slog.Logger
}

func NewRetentionService(
	webhooks domain.WebhookRepository,
	spans domain.SpanRepository,
	deliveryMaxAge time.Duration,
	spanMaxAge time.Duration,
	log *slog.Logger,
) *RetentionService {
	return &RetentionService{
		webhooks:       webhooks,
		spans:          spans,
		deliveryMaxAge: deliveryMaxAge,
		spanMaxAge:     spanMaxAge,
		log:            log,
	}
}

// StartScheduler runs the sweep at the specified interval. Call in a goroutine.
func (s *RetentionService) StartScheduler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("retention scheduler started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("retention scheduler stopped")
			return
		case <-ticker.C:
			s.RunSweep(ctx)
		}
	}
}

func (s *RetentionService) RunSweep(ctx context.Context) {
	now := time.Now().UTC()

	deliveries, err := s.webhooks.DeleteSettledBefore(ctx, now.Add(-s.deliveryMaxAge))
	if err != nil {
		s.log.Warn("retention: failed to prune webhook deliveries", "err", err)
	}

	spans, err := s.spans.DeleteBefore(ctx, now.Add(-s.spanMaxAge))
	if err != nil {
		s.log.Warn("retention: failed to prune spans", "err", err)
	}

	if deliveries > 0 || spans > 0 {
		s.log.Info("retention sweep completed", "deliveries", deliveries, "spans", spans)
	}
}
