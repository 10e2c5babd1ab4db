package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/drydock-dev/drydock/internal/domain"
	"github.com/drydock-dev/drydock/internal/events"
)

type InsightService struct {
	repo domain.InsightRepository
	bus  *events.Bus
	log  *slog.Logger
}

func NewInsightService(repo domain.InsightRepository, bus *events.Bus, log *slog.Logger) *InsightService {
	return &InsightService{repo: repo, bus: bus, log: log}
}

type RaiseInsightInput struct {
	EndpointID      *uuid.UUID
	ContainerID     string
	ContainerName   string
	Severity        domain.Severity
	Category        string
	Title           string
	Description     string
	SuggestedAction string
}

// Raise persists a new insight and publishes it on the bus, where the
// notification and operations domains pick it up.
func (s *InsightService) Raise(ctx context.Context, input RaiseInsightInput) (*domain.Insight, error) {
	if !input.Severity.Valid() {
		return nil, fmt.Errorf("%w: severity must be critical, warning or info", domain.ErrInvalidInput)
	}
	if input.Category == "" {
		return nil, fmt.Errorf("%w: category is required", domain.ErrInvalidInput)
	}
	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}

	insight := &domain.Insight{
		EndpointID:      input.EndpointID,
		ContainerID:     input.ContainerID,
		ContainerName:   input.ContainerName,
		Severity:        input.Severity,
		Category:        input.Category,
		Title:           input.Title,
		Description:     input.Description,
		SuggestedAction: input.SuggestedAction,
	}

	if err := s.repo.Create(ctx, insight); err != nil {
		return nil, fmt.Errorf("create insight: %w", err)
	}

	s.log.Info("insight raised",
		"id", insight.ID, "severity", insight.Severity,
		"category", insight.Category, "container", insight.ContainerID)

	s.bus.Emit(ctx, events.InsightCreated, insight)

	return insight, nil
}

func (s *InsightService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Insight, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *InsightService) List(ctx context.Context, filter domain.InsightFilter) ([]*domain.Insight, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *InsightService) Acknowledge(ctx context.Context, id uuid.UUID) (*domain.Insight, error) {
	if err := s.repo.Acknowledge(ctx, id); err != nil {
		return nil, err
	}

	insight, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.bus.Emit(ctx, events.InsightAcknowledged, insight)

	return insight, nil
}

// HasOpenInsight reports whether an unacknowledged insight already exists for
// the container/category pair. The monitor uses it to avoid re-raising the
// same condition every polling cycle.
func (s *InsightService) HasOpenInsight(ctx context.Context, containerID, category string) (bool, error) {
	return s.repo.HasOpenInsight(ctx, containerID, category)
}
