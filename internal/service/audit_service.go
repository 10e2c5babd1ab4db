package service

import (
	"context"
	"log/slog"

	"github.com/drydock-dev/drydock/internal/domain"
)

type AuditService struct {
	repo domain.AuditRepository
	log  *slog.Logger
}

func NewAuditService(repo domain.AuditRepository, log *slog.Logger) *AuditService {
	return &AuditService{repo: repo, log: log}
}

// Log records an audit event. It is fire-and-forget: a write failure is
// logged but never propagated, so the triggering operation is not aborted.
func (s *AuditService) Log(ctx context.Context, entry *domain.AuditEntry) {
	if entry.Details == nil {
		entry.Details = map[string]interface{}{}
	}
	if meta, ok := domain.AuditMetadataFromContext(ctx); ok {
		if entry.UserID == nil && meta.UserID != "" {
			entry.UserID = &meta.UserID
		}
		if entry.Username == nil && meta.Username != "" {
			entry.Username = &meta.Username
		}
		if entry.RequestID == nil && meta.RequestID != "" {
			entry.RequestID = &meta.RequestID
		}
		if entry.IPAddress == nil && meta.IPAddress != "" {
			entry.IPAddress = &meta.IPAddress
		}
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.log.Warn("failed to write audit log", "action", entry.Action, "err", err)
	}
}

func (s *AuditService) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, int, error) {
	return s.repo.List(ctx, filter)
}

func strptr(s string) *string {
	return &s
}
