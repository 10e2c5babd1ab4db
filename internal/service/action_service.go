package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/drydock-dev/drydock/internal/domain"
	"github.com/drydock-dev/drydock/internal/events"
	"github.com/drydock-dev/drydock/internal/remediation"
	"github.com/drydock-dev/drydock/internal/tracing"
)

// ActionService owns the remediation action lifecycle:
// pending -> {approved, rejected}; approved -> executing -> {completed, failed}.
// Transitions go through conditional repository updates, so concurrent
// approve/reject calls on the same action resolve to exactly one winner.
type ActionService struct {
	repo        domain.ActionRepository
	insights    domain.InsightRepository
	executor    remediation.Executor
	audit       *AuditService
	bus         *events.Bus
	tracer      *tracing.Recorder
	execTimeout time.Duration
	log         *slog.Logger
}

func NewActionService(
	repo domain.ActionRepository,
	insights domain.InsightRepository,
	executor remediation.Executor,
	audit *AuditService,
	bus *events.Bus,
	tracer *tracing.Recorder,
	execTimeout time.Duration,
	log *slog.Logger,
) *ActionService {
	return &ActionService{
		repo:        repo,
		insights:    insights,
		executor:    executor,
		audit:       audit,
		bus:         bus,
		tracer:      tracer,
		execTimeout: execTimeout,
		log:         log,
	}
}

// Suggest proposes a remediation for an insight and persists it as a pending
// action. A unique index on the insight id makes repeated suggestions for the
// same insight fail with ErrConflict instead of piling up duplicates.
func (s *ActionService) Suggest(ctx context.Context, insight *domain.Insight) (*domain.Action, error) {
	if insight == nil {
		return nil, fmt.Errorf("%w: insight is required", domain.ErrInvalidInput)
	}
	if insight.ContainerID == "" {
		return nil, fmt.Errorf("%w: insight has no target container", domain.ErrInvalidInput)
	}

	actionType, rationale := inferRemediation(insight)

	var endpointID uuid.UUID
	if insight.EndpointID != nil {
		endpointID = *insight.EndpointID
	}

	insightID := insight.ID
	action := &domain.Action{
		InsightID:     &insightID,
		EndpointID:    endpointID,
		ContainerID:   insight.ContainerID,
		ContainerName: insight.ContainerName,
		ActionType:    actionType,
		Rationale:     rationale,
		Status:        domain.ActionStatusPending,
	}

	if err := s.repo.Create(ctx, action); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("%w: action already suggested for insight %s", domain.ErrConflict, insight.ID)
		}
		return nil, fmt.Errorf("create action: %w", err)
	}

	s.audit.Log(ctx, &domain.AuditEntry{
		Action:     "suggest_remediation",
		TargetType: strptr("action"),
		TargetID:   strptr(action.ID.String()),
		Details: map[string]interface{}{
			"insight_id":   insight.ID.String(),
			"action_type":  string(actionType),
			"container_id": insight.ContainerID,
		},
	})
	s.bus.Emit(ctx, events.ActionSuggested, action)
	s.log.Info("remediation suggested",
		"action", action.ID, "type", action.ActionType,
		"container", action.ContainerID, "insight", insight.ID)

	return action, nil
}

// SuggestForInsight resolves the insight first, for callers that only hold an id.
func (s *ActionService) SuggestForInsight(ctx context.Context, insightID uuid.UUID) (*domain.Action, error) {
	insight, err := s.insights.GetByID(ctx, insightID)
	if err != nil {
		return nil, err
	}
	return s.Suggest(ctx, insight)
}

// Approve moves a pending action to approved, then drives it through
// executing to completed or failed. The remediation call itself is the only
// non-database step; its wall-clock time lands in execution_duration_ms.
// Nothing in this chain is retried automatically.
func (s *ActionService) Approve(ctx context.Context, id uuid.UUID, approvedBy string) (*domain.Action, error) {
	if approvedBy == "" {
		return nil, fmt.Errorf("%w: approved_by is required", domain.ErrInvalidInput)
	}

	ctx, span := s.tracer.Start(ctx, "action.approve", "server")

	action, err := s.repo.Approve(ctx, id, approvedBy, time.Now().UTC())
	if err != nil {
		span.End(ctx, domain.SpanStatusError, map[string]interface{}{
			"action_id": id.String(),
			"error":     err.Error(),
		})
		return nil, err
	}

	// The approval is recorded; from here the chain must reach completed or
	// failed even if the approver's request is cancelled mid-flight. Detach
	// from request cancellation, keeping trace and audit context values.
	ctx = context.WithoutCancel(ctx)

	s.audit.Log(ctx, &domain.AuditEntry{
		UserID:     strptr(approvedBy),
		Action:     "approve_remediation",
		TargetType: strptr("action"),
		TargetID:   strptr(action.ID.String()),
		Details: map[string]interface{}{
			"action_type":  string(action.ActionType),
			"container_id": action.ContainerID,
		},
	})
	s.bus.Emit(ctx, events.ActionApproved, action)
	s.log.Info("remediation approved", "action", action.ID, "approved_by", approvedBy)

	final := s.execute(ctx, action)

	spanStatus := domain.SpanStatusOK
	if final.Status != domain.ActionStatusCompleted {
		spanStatus = domain.SpanStatusError
	}
	span.End(ctx, spanStatus, map[string]interface{}{
		"action_id":   action.ID.String(),
		"action_type": string(action.ActionType),
		"status":      string(final.Status),
	})

	return final, nil
}

// Reject moves a pending action to rejected, a terminal state.
func (s *ActionService) Reject(ctx context.Context, id uuid.UUID, rejectedBy, reason string) (*domain.Action, error) {
	if rejectedBy == "" {
		return nil, fmt.Errorf("%w: rejected_by is required", domain.ErrInvalidInput)
	}

	action, err := s.repo.Reject(ctx, id, rejectedBy, reason, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &domain.AuditEntry{
		UserID:     strptr(rejectedBy),
		Action:     "reject_remediation",
		TargetType: strptr("action"),
		TargetID:   strptr(action.ID.String()),
		Details:    map[string]interface{}{"reason": reason},
	})
	s.bus.Emit(ctx, events.ActionRejected, action)
	s.log.Info("remediation rejected", "action", action.ID, "rejected_by", rejectedBy)

	return action, nil
}

func (s *ActionService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Action, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ActionService) List(ctx context.Context, filter domain.ActionFilter) ([]*domain.Action, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *ActionService) execute(ctx context.Context, action *domain.Action) *domain.Action {
	started := time.Now()

	if err := s.repo.MarkExecuting(ctx, action.ID, started.UTC()); err != nil {
		s.log.Error("failed to mark action executing", "action", action.ID, "err", err)
		return s.finalize(ctx, action, "", fmt.Errorf("mark executing: %w", err), started)
	}

	execCtx := ctx
	if s.execTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, s.execTimeout)
		defer cancel()
	}

	spanCtx, span := s.tracer.Start(ctx, "remediation.execute", "client")
	result, execErr := s.runExecutor(execCtx, action)
	spanStatus := domain.SpanStatusOK
	if execErr != nil {
		spanStatus = domain.SpanStatusError
	}
	span.End(spanCtx, spanStatus, map[string]interface{}{
		"action_id":    action.ID.String(),
		"action_type":  string(action.ActionType),
		"container_id": action.ContainerID,
	})

	return s.finalize(ctx, action, result, execErr, started)
}

func (s *ActionService) runExecutor(ctx context.Context, action *domain.Action) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("remediation panicked: %v", r)
		}
	}()
	return s.executor.Execute(ctx, action)
}

// finalize records the terminal state. Failures here are logged, not
// returned: the action's final status in the store is the source of truth,
// and the caller gets the freshest copy available.
func (s *ActionService) finalize(ctx context.Context, action *domain.Action, result string, execErr error, started time.Time) *domain.Action {
	durationMS := time.Since(started).Milliseconds()
	finished := time.Now().UTC()

	if execErr != nil {
		if err := s.repo.Fail(ctx, action.ID, execErr.Error(), durationMS, finished); err != nil {
			s.log.Error("failed to record remediation failure", "action", action.ID, "err", err)
		}
		s.audit.Log(ctx, &domain.AuditEntry{
			Action:     "fail_remediation",
			TargetType: strptr("action"),
			TargetID:   strptr(action.ID.String()),
			Details:    map[string]interface{}{"error": execErr.Error(), "duration_ms": durationMS},
		})
		s.log.Warn("remediation failed", "action", action.ID, "err", execErr)
	} else {
		if err := s.repo.Complete(ctx, action.ID, result, durationMS, finished); err != nil {
			s.log.Error("failed to record remediation completion", "action", action.ID, "err", err)
		}
		s.audit.Log(ctx, &domain.AuditEntry{
			Action:     "complete_remediation",
			TargetType: strptr("action"),
			TargetID:   strptr(action.ID.String()),
			Details:    map[string]interface{}{"result": result, "duration_ms": durationMS},
		})
		s.log.Info("remediation completed", "action", action.ID, "duration_ms", durationMS)
	}

	updated, err := s.repo.GetByID(ctx, action.ID)
	if err != nil {
		s.log.Error("failed to reload action", "action", action.ID, "err", err)
		return action
	}

	switch updated.Status {
	case domain.ActionStatusCompleted:
		s.bus.Emit(ctx, events.ActionCompleted, updated)
	case domain.ActionStatusFailed:
		s.bus.Emit(ctx, events.ActionFailed, updated)
	}

	return updated
}

func inferRemediation(insight *domain.Insight) (domain.ActionType, string) {
	if t := domain.ActionType(insight.SuggestedAction); t != "" {
		switch t {
		case domain.ActionRestartContainer, domain.ActionStopContainer, domain.ActionPruneImages:
			return t, fmt.Sprintf("suggested by %s insight: %s", insight.Category, insight.Title)
		}
	}

	switch insight.Category {
	case "disk_pressure":
		return domain.ActionPruneImages, "prune unused images to reclaim disk space"
	case "security":
		return domain.ActionStopContainer, "stop container pending review of critical vulnerabilities"
	default:
		return domain.ActionRestartContainer, fmt.Sprintf("restart container to recover from %s", insight.Category)
	}
}
