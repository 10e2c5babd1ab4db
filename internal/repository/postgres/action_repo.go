package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drydock-dev/drydock/internal/domain"
)

const actionColumns = `id, insight_id, endpoint_id, container_id, container_name, action_type, rationale, status,
		approved_by, approved_at, rejected_by, rejected_at, rejection_reason,
		executed_at, completed_at, execution_result, execution_duration_ms, created_at`

type ActionRepo struct {
	pool *pgxpool.Pool
}

func NewActionRepo(pool *pgxpool.Pool) *ActionRepo {
	return &ActionRepo{pool: pool}
}

func scanAction(row pgx.Row) (*domain.Action, error) {
	a := &domain.Action{}
	err := row.Scan(
		&a.ID, &a.InsightID, &a.EndpointID, &a.ContainerID, &a.ContainerName,
		&a.ActionType, &a.Rationale, &a.Status,
		&a.ApprovedBy, &a.ApprovedAt, &a.RejectedBy, &a.RejectedAt, &a.RejectionReason,
		&a.ExecutedAt, &a.CompletedAt, &a.ExecutionResult, &a.ExecutionDurationMS, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *ActionRepo) Create(ctx context.Context, action *domain.Action) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO actions (insight_id, endpoint_id, container_id, container_name, action_type, rationale, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, action.InsightID, action.EndpointID, action.ContainerID, action.ContainerName,
		action.ActionType, action.Rationale, domain.ActionStatusPending).
		Scan(&action.ID, &action.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert action: %w", err)
	}
	action.Status = domain.ActionStatusPending
	return nil
}

func (r *ActionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Action, error) {
	action, err := scanAction(r.pool.QueryRow(ctx, `
		SELECT `+actionColumns+` FROM actions WHERE id = $1
	`, id))
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get action: %w", err)
	}
	return action, nil
}

func (r *ActionRepo) GetByInsightID(ctx context.Context, insightID uuid.UUID) (*domain.Action, error) {
	action, err := scanAction(r.pool.QueryRow(ctx, `
		SELECT `+actionColumns+` FROM actions WHERE insight_id = $1
	`, insightID))
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get action by insight: %w", err)
	}
	return action, nil
}

func (r *ActionRepo) List(ctx context.Context, f domain.ActionFilter) ([]*domain.Action, int, error) {
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

	if f.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *f.Status)
		argIdx++
	}
	if f.ContainerID != nil {
		where += fmt.Sprintf(" AND container_id = $%d", argIdx)
		args = append(args, *f.ContainerID)
		argIdx++
	}
	if f.InsightID != nil {
		where += fmt.Sprintf(" AND insight_id = $%d", argIdx)
		args = append(args, *f.InsightID)
		argIdx++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM actions " + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count actions: %w", err)
	}

	orderDir := "DESC"
	if f.SortOrder == "asc" {
		orderDir = "ASC"
	}

	offset := (f.Page - 1) * f.PerPage
	query := fmt.Sprintf(`
		SELECT %s FROM actions %s
		ORDER BY created_at %s
		LIMIT $%d OFFSET $%d
	`, actionColumns, where, orderDir, argIdx, argIdx+1)
	args = append(args, f.PerPage, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var actions []*domain.Action
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan action: %w", err)
		}
		actions = append(actions, action)
	}

	if actions == nil {
		actions = []*domain.Action{}
	}

	return actions, total, nil
}

// Approve moves a pending action to approved. The status predicate in the
// UPDATE is what makes concurrent approve/reject races lose cleanly instead
// of overwriting each other.
func (r *ActionRepo) Approve(ctx context.Context, id uuid.UUID, approvedBy string, at time.Time) (*domain.Action, error) {
	action, err := scanAction(r.pool.QueryRow(ctx, `
		UPDATE actions
		SET status = $1, approved_by = $2, approved_at = $3
		WHERE id = $4 AND status = $5
		RETURNING `+actionColumns+`
	`, domain.ActionStatusApproved, approvedBy, at, id, domain.ActionStatusPending))
	if err == pgx.ErrNoRows {
		return nil, r.transitionError(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("approve action: %w", err)
	}
	return action, nil
}

func (r *ActionRepo) Reject(ctx context.Context, id uuid.UUID, rejectedBy, reason string, at time.Time) (*domain.Action, error) {
	action, err := scanAction(r.pool.QueryRow(ctx, `
		UPDATE actions
		SET status = $1, rejected_by = $2, rejected_at = $3, rejection_reason = $4
		WHERE id = $5 AND status = $6
		RETURNING `+actionColumns+`
	`, domain.ActionStatusRejected, rejectedBy, at, reason, id, domain.ActionStatusPending))
	if err == pgx.ErrNoRows {
		return nil, r.transitionError(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reject action: %w", err)
	}
	return action, nil
}

func (r *ActionRepo) MarkExecuting(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE actions
		SET status = $1, executed_at = $2
		WHERE id = $3 AND status = $4
	`, domain.ActionStatusExecuting, at, id, domain.ActionStatusApproved)
	if err != nil {
		return fmt.Errorf("mark action executing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionError(ctx, id)
	}
	return nil
}

func (r *ActionRepo) Complete(ctx context.Context, id uuid.UUID, result string, durationMS int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE actions
		SET status = $1, completed_at = $2, execution_result = $3, execution_duration_ms = $4
		WHERE id = $5 AND status = $6
	`, domain.ActionStatusCompleted, at, result, durationMS, id, domain.ActionStatusExecuting)
	if err != nil {
		return fmt.Errorf("complete action: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionError(ctx, id)
	}
	return nil
}

// Fail also matches approved, so an action whose executing mark never landed
// can still be finalized instead of sticking in a non-terminal state.
func (r *ActionRepo) Fail(ctx context.Context, id uuid.UUID, result string, durationMS int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE actions
		SET status = $1, completed_at = $2, execution_result = $3, execution_duration_ms = $4
		WHERE id = $5 AND status IN ($6, $7)
	`, domain.ActionStatusFailed, at, result, durationMS, id, domain.ActionStatusExecuting, domain.ActionStatusApproved)
	if err != nil {
		return fmt.Errorf("fail action: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionError(ctx, id)
	}
	return nil
}

func (r *ActionRepo) transitionError(ctx context.Context, id uuid.UUID) error {
	var status domain.ActionStatus
	err := r.pool.QueryRow(ctx, `SELECT status FROM actions WHERE id = $1`, id).Scan(&status)
	if err == pgx.ErrNoRows {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check action status: %w", err)
	}
	return fmt.Errorf("%w: action is %s", domain.ErrInvalidState, status)
}
