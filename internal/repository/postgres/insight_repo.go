package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drydock-dev/drydock/internal/domain"
)

type InsightRepo struct {
	pool *pgxpool.Pool
}

func NewInsightRepo(pool *pgxpool.Pool) *InsightRepo {
	return &InsightRepo{pool: pool}
}

func (r *InsightRepo) Create(ctx context.Context, insight *domain.Insight) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO insights (endpoint_id, container_id, container_name, severity, category, title, description, suggested_action)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, acknowledged, created_at
	`, insight.EndpointID, insight.ContainerID, insight.ContainerName, insight.Severity,
		insight.Category, insight.Title, insight.Description, insight.SuggestedAction).
		Scan(&insight.ID, &insight.Acknowledged, &insight.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert insight: %w", err)
	}
	return nil
}

func (r *InsightRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Insight, error) {
	ins := &domain.Insight{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, endpoint_id, container_id, container_name, severity, category, title, description, suggested_action, acknowledged, created_at
		FROM insights
		WHERE id = $1
	`, id).Scan(
		&ins.ID, &ins.EndpointID, &ins.ContainerID, &ins.ContainerName, &ins.Severity,
		&ins.Category, &ins.Title, &ins.Description, &ins.SuggestedAction,
		&ins.Acknowledged, &ins.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get insight: %w", err)
	}
	return ins, nil
}

func (r *InsightRepo) List(ctx context.Context, f domain.InsightFilter) ([]*domain.Insight, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 || f.PerPage > 100 {
		f.PerPage = 20
	}
	if f.SortOrder == "" {
		f.SortOrder = "desc"
	}

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if f.Severity != nil {
		where += fmt.Sprintf(" AND severity = $%d", argIdx)
		args = append(args, *f.Severity)
		argIdx++
	}
	if f.Category != nil {
		where += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, *f.Category)
		argIdx++
	}
	if f.ContainerID != nil {
		where += fmt.Sprintf(" AND container_id = $%d", argIdx)
		args = append(args, *f.ContainerID)
		argIdx++
	}
	if f.Acknowledged != nil {
		where += fmt.Sprintf(" AND acknowledged = $%d", argIdx)
		args = append(args, *f.Acknowledged)
		argIdx++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM insights " + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count insights: %w", err)
	}

	orderDir := "DESC"
	if f.SortOrder == "asc" {
		orderDir = "ASC"
	}

	offset := (f.Page - 1) * f.PerPage
	query := fmt.Sprintf(`
		SELECT id, endpoint_id, container_id, container_name, severity, category, title, description, suggested_action, acknowledged, created_at
		FROM insights %s
		ORDER BY created_at %s
		LIMIT $%d OFFSET $%d
	`, where, orderDir, argIdx, argIdx+1)
	args = append(args, f.PerPage, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()

	var insights []*domain.Insight
	for rows.Next() {
		ins := &domain.Insight{}
		if err := rows.Scan(
			&ins.ID, &ins.EndpointID, &ins.ContainerID, &ins.ContainerName, &ins.Severity,
			&ins.Category, &ins.Title, &ins.Description, &ins.SuggestedAction,
			&ins.Acknowledged, &ins.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan insight: %w", err)
		}
		insights = append(insights, ins)
	}

	if insights == nil {
		insights = []*domain.Insight{}
	}

	return insights, total, nil
}

func (r *InsightRepo) Acknowledge(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE insights SET acknowledged = TRUE WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("acknowledge insight: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *InsightRepo) HasOpenInsight(ctx context.Context, containerID, category string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM insights
			WHERE container_id = $1 AND category = $2 AND acknowledged = FALSE
		)
	`, containerID, category).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check open insight: %w", err)
	}
	return exists, nil
}
