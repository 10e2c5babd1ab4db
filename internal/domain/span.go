package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type SpanStatus string

const (
	SpanStatusOK    SpanStatus = "ok"
	SpanStatusError SpanStatus = "error"
)

type Span struct {
	ID           uuid.UUID              `json:"id"`
	TraceID      uuid.UUID              `json:"trace_id"`
	ParentSpanID *uuid.UUID             `json:"parent_span_id,omitempty"`
	Name         string                 `json:"name"`
	Kind         string                 `json:"kind"` // internal, client, server
	Status       SpanStatus             `json:"status"`
	StartTime    time.Time              `json:"start_time"`
	EndTime      time.Time              `json:"end_time"`
	DurationMS   int64                  `json:"duration_ms"`
	ServiceName  string                 `json:"service_name"`
	Attributes   map[string]interface{} `json:"attributes,omitempty"`
}

type SpanRepository interface {
	Insert(ctx context.Context, span *Span) error
	GetTrace(ctx context.Context, traceID uuid.UUID) ([]*Span, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
