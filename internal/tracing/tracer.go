package tracing

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/drydock-dev/drydock/internal/domain"
)

type traceIDKey struct{}

type spanIDKey struct{}

// TraceIDFromContext returns the trace id carried by ctx, or uuid.Nil.
func TraceIDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(traceIDKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// Recorder persists completed spans. It never fails the operation being
// traced: persistence errors are logged and dropped.
type Recorder struct {
	repo    domain.SpanRepository
	service string
	log     *slog.Logger
}

func NewRecorder(repo domain.SpanRepository, service string, log *slog.Logger) *Recorder {
	return &Recorder{repo: repo, service: service, log: log}
}

type Span struct {
	rec      *Recorder
	id       uuid.UUID
	traceID  uuid.UUID
	parentID *uuid.UUID
	name     string
	kind     string
	start    time.Time
}

// Start opens a span. The returned context carries the trace id and the new
// span id, so nested Start calls build a parent/child chain under one trace.
func (r *Recorder) Start(ctx context.Context, name, kind string) (context.Context, *Span) {
	traceID := TraceIDFromContext(ctx)
	if traceID == uuid.Nil {
		traceID = uuid.New()
	}

	var parentID *uuid.UUID
	if pid, ok := ctx.Value(spanIDKey{}).(uuid.UUID); ok {
		parentID = &pid
	}

	span := &Span{
		rec:      r,
		id:       uuid.New(),
		traceID:  traceID,
		parentID: parentID,
		name:     name,
		kind:     kind,
		start:    time.Now().UTC(),
	}

	ctx = context.WithValue(ctx, traceIDKey{}, traceID)
	ctx = context.WithValue(ctx, spanIDKey{}, span.id)
	return ctx, span
}

func (s *Span) TraceID() uuid.UUID {
	return s.traceID
}

// End closes the span and persists it, write-once.
func (s *Span) End(ctx context.Context, status domain.SpanStatus, attrs map[string]interface{}) {
	if s == nil {
		return
	}

	end := time.Now().UTC()
	span := &domain.Span{
		ID:           s.id,
		TraceID:      s.traceID,
		ParentSpanID: s.parentID,
		Name:         s.name,
		Kind:         s.kind,
		Status:       status,
		StartTime:    s.start,
		EndTime:      end,
		DurationMS:   end.Sub(s.start).Milliseconds(),
		ServiceName:  s.rec.service,
		Attributes:   attrs,
	}

	if err := s.rec.repo.Insert(ctx, span); err != nil {
		s.rec.log.Warn("failed to record span", "name", s.name, "trace", s.traceID, "err", err)
	}
}

func (r *Recorder) GetTrace(ctx context.Context, traceID uuid.UUID) ([]*domain.Span, error) {
	return r.repo.GetTrace(ctx, traceID)
}
