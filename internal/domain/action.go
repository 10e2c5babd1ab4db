package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ActionStatus string

const (
	ActionStatusPending   ActionStatus = "pending"
	ActionStatusApproved  ActionStatus = "approved"
	ActionStatusRejected  ActionStatus = "rejected"
	ActionStatusExecuting ActionStatus = "executing"
	ActionStatusCompleted ActionStatus = "completed"
	ActionStatusFailed    ActionStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s ActionStatus) Terminal() bool {
	switch s {
	case ActionStatusRejected, ActionStatusCompleted, ActionStatusFailed:
		return true
	}
	return false
}

type ActionType string

const (
	ActionRestartContainer ActionType = "restart_container"
	ActionStopContainer    ActionType = "stop_container"
	ActionPruneImages      ActionType = "prune_images"
)

type Action struct {
	ID                  uuid.UUID    `json:"id"`
	InsightID           *uuid.UUID   `json:"insight_id,omitempty"`
	EndpointID          uuid.UUID    `json:"endpoint_id"`
	ContainerID         string       `json:"container_id"`
	ContainerName       string       `json:"container_name"`
	ActionType          ActionType   `json:"action_type"`
	Rationale           string       `json:"rationale"`
	Status              ActionStatus `json:"status"`
	ApprovedBy          *string      `json:"approved_by,omitempty"`
	ApprovedAt          *time.Time   `json:"approved_at,omitempty"`
	RejectedBy          *string      `json:"rejected_by,omitempty"`
	RejectedAt          *time.Time   `json:"rejected_at,omitempty"`
	RejectionReason     *string      `json:"rejection_reason,omitempty"`
	ExecutedAt          *time.Time   `json:"executed_at,omitempty"`
	CompletedAt         *time.Time   `json:"completed_at,omitempty"`
	ExecutionResult     *string      `json:"execution_result,omitempty"`
	ExecutionDurationMS *int64       `json:"execution_duration_ms,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
}

type ActionFilter struct {
	Status      *ActionStatus
	ContainerID *string
	InsightID   *uuid.UUID
	Page        int
	PerPage     int
	SortOrder   string
}

// Transition methods are conditional on the current status and return
// ErrInvalidState when the row is no longer in the expected prior state.
type ActionRepository interface {
	Create(ctx context.Context, action *Action) error
	GetByID(ctx context.Context, id uuid.UUID) (*Action, error)
	GetByInsightID(ctx context.Context, insightID uuid.UUID) (*Action, error)
	List(ctx context.Context, filter ActionFilter) ([]*Action, int, error)
	Approve(ctx context.Context, id uuid.UUID, approvedBy string, at time.Time) (*Action, error)
	Reject(ctx context.Context, id uuid.UUID, rejectedBy, reason string, at time.Time) (*Action, error)
	MarkExecuting(ctx context.Context, id uuid.UUID, at time.Time) error
	Complete(ctx context.Context, id uuid.UUID, result string, durationMS int64, at time.Time) error
	Fail(ctx context.Context, id uuid.UUID, result string, durationMS int64, at time.Time) error
}
