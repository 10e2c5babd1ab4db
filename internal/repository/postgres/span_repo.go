package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drydock-dev/drydock/internal/domain"
)

type SpanRepo struct {
	pool *pgxpool.Pool
}

func NewSpanRepo(pool *pgxpool.Pool) *SpanRepo {
	return &SpanRepo{pool: pool}
}

func (r *SpanRepo) Insert(ctx context.Context, span *domain.Span) error {
	attrsJSON, err := json.Marshal(span.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO spans (id, trace_id, parent_span_id, name, kind, status, start_time, end_time, duration_ms, service_name, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, span.ID, span.TraceID, span.ParentSpanID, span.Name, span.Kind, span.Status,
		span.StartTime, span.EndTime, span.DurationMS, span.ServiceName, attrsJSON)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert span: %w", err)
	}
	return nil
}

func (r *SpanRepo) GetTrace(ctx context.Context, traceID uuid.UUID) ([]*domain.Span, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, trace_id, parent_span_id, name, kind, status, start_time, end_time, duration_ms, service_name, attributes
		FROM spans
		WHERE trace_id = $1
		ORDER BY start_time ASC
	`, traceID)
	if err != nil {
		return nil, fmt.Errorf("get trace: %w", err)
	}
	defer rows.Close()

	var spans []*domain.Span
	for rows.Next() {
		s := &domain.Span{}
		var attrsJSON []byte
		if err := rows.Scan(
			&s.ID, &s.TraceID, &s.ParentSpanID, &s.Name, &s.Kind, &s.Status,
			&s.StartTime, &s.EndTime, &s.DurationMS, &s.ServiceName, &attrsJSON,
		); err != nil {
			return nil, fmt.Errorf("scan span: %w", err)
		}
		if err := json.Unmarshal(attrsJSON, &s.Attributes); err != nil {
			s.Attributes = map[string]interface{}{}
		}
		spans = append(spans, s)
	}

	if spans == nil {
		spans = []*domain.Span{}
	}

	return spans, nil
}

func (r *SpanRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM spans WHERE start_time < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete spans: %w", err)
	}
	return tag.RowsAffected(), nil
}
