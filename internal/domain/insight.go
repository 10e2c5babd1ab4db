package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

type Insight struct {
	ID              uuid.UUID  `json:"id"`
	EndpointID      *uuid.UUID `json:"endpoint_id,omitempty"`
	ContainerID     string     `json:"container_id,omitempty"`
	ContainerName   string     `json:"container_name,omitempty"`
	Severity        Severity   `json:"severity"`
	Category        string     `json:"category"` // e.g. oom, high_cpu, disk_pressure, security
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	SuggestedAction string     `json:"suggested_action,omitempty"`
	Acknowledged    bool       `json:"acknowledged"`
	CreatedAt       time.Time  `json:"created_at"`
}

type InsightFilter struct {
	Severity     *Severity
	Category     *string
	ContainerID  *string
	Acknowledged *bool
	Page         int
	PerPage      int
	SortOrder    string
}

type InsightRepository interface {
	Create(ctx context.Context, insight *Insight) error
	GetByID(ctx context.Context, id uuid.UUID) (*Insight, error)
	List(ctx context.Context, filter InsightFilter) ([]*Insight, int, error)
	Acknowledge(ctx context.Context, id uuid.UUID) error
	HasOpenInsight(ctx context.Context, containerID, category string) (bool, error)
}
