package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AuditEntry struct {
	ID         uuid.UUID              `json:"id"`
	UserID     *string                `json:"user_id,omitempty"`
	Username   *string                `json:"username,omitempty"`
	Action     string                 `json:"action"`                // e.g. approve_remediation, scan_container
	TargetType *string                `json:"target_type,omitempty"` // e.g. action, insight, webhook
	TargetID   *string                `json:"target_id,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	RequestID  *string                `json:"request_id,omitempty"`
	IPAddress  *string                `json:"ip_address,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

type AuditFilter struct {
	Action     *string
	UserID     *string
	TargetType *string
	Limit      int
	Offset     int
}

type AuditRepository interface {
	Create(ctx context.Context, entry *AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]*AuditEntry, int, error)
}

type auditMetaKey struct{}

// AuditMetadata carries request-scoped identity for audit entries written
// deeper in the call chain. The HTTP layer populates it; the audit service
// copies it onto entries that do not set the fields themselves.
type AuditMetadata struct {
	UserID    string
	Username  string
	RequestID string
	IPAddress string
}

func WithAuditMetadata(ctx context.Context, meta AuditMetadata) context.Context {
	return context.WithValue(ctx, auditMetaKey{}, meta)
}

func AuditMetadataFromContext(ctx context.Context) (AuditMetadata, bool) {
	meta, ok := ctx.Value(auditMetaKey{}).(AuditMetadata)
	return meta, ok
}
