package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drydock-dev/drydock/internal/domain"
)

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) Create(ctx context.Context, entry *domain.AuditEntry) error {
	detailsJSON, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO audit_log (user_id, username, action, target_type, target_id, details, request_id, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, entry.UserID, entry.Username, entry.Action, entry.TargetType,
		entry.TargetID, detailsJSON, entry.RequestID, entry.IPAddress).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepo) List(ctx context.Context, f domain.AuditFilter) ([]*domain.AuditEntry, int, error) {
	if f.Limit < 1 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if f.Action != nil {
		where += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, *f.Action)
		argIdx++
	}
	if f.UserID != nil {
		where += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, *f.UserID)
		argIdx++
	}
	if f.TargetType != nil {
		where += fmt.Sprintf(" AND target_type = $%d", argIdx)
		args = append(args, *f.TargetType)
		argIdx++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM audit_log " + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, username, action, target_type, target_id, details, request_id, ip_address, created_at
		FROM audit_log %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, argIdx, argIdx+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		e := &domain.AuditEntry{}
		var detailsJSON []byte
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.Username, &e.Action, &e.TargetType,
			&e.TargetID, &detailsJSON, &e.RequestID, &e.IPAddress, &e.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		if err := json.Unmarshal(detailsJSON, &e.Details); err != nil {
			e.Details = map[string]interface{}{}
		}
		entries = append(entries, e)
	}

	if entries == nil {
		entries = []*domain.AuditEntry{}
	}

	return entries, total, nil
}
