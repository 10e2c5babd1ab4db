package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/drydock-dev/drydock/internal/domain"
)

func newTestAuditService() (*AuditService, *mockAuditRepo) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newMockAuditRepo()
	return NewAuditService(repo, log), repo
}

func TestAuditLog_NeverRaises(t *testing.T) {
	svc, repo := newTestAuditService()
	repo.failing = true

	// Must not panic or propagate despite the failing store.
	svc.Log(context.Background(), &domain.AuditEntry{Action: "approve_remediation"})
}

func TestAuditLog_FillsRequestMetadata(t *testing.T) {
	svc, repo := newTestAuditService()

	ctx := domain.WithAuditMetadata(context.Background(), domain.AuditMetadata{
		UserID:    "alice",
		Username:  "alice",
		RequestID: "req-1",
		IPAddress: "203.0.113.9:1234",
	})
	svc.Log(ctx, &domain.AuditEntry{Action: "reject_remediation"})

	entries := repo.find("reject_remediation")
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.UserID == nil || *e.UserID != "alice" {
		t.Errorf("user_id = %v, want alice", e.UserID)
	}
	if e.RequestID == nil || *e.RequestID != "req-1" {
		t.Errorf("request_id = %v, want req-1", e.RequestID)
	}
	if e.IPAddress == nil || *e.IPAddress == "" {
		t.Errorf("ip_address not stamped")
	}
}

func TestAuditLog_ExplicitFieldsWin(t *testing.T) {
	svc, repo := newTestAuditService()

	ctx := domain.WithAuditMetadata(context.Background(), domain.AuditMetadata{UserID: "alice"})
	explicit := "bob"
	svc.Log(ctx, &domain.AuditEntry{Action: "approve_remediation", UserID: &explicit})

	entries := repo.find("approve_remediation")
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if *entries[0].UserID != "bob" {
		t.Errorf("user_id = %s, want bob (explicit value must not be overwritten)", *entries[0].UserID)
	}
}

func TestAuditList_FilterAndPagination(t *testing.T) {
	svc, _ := newTestAuditService()
	ctx := context.Background()

	users := []string{"alice", "alice", "bob"}
	for _, u := range users {
		user := u
		svc.Log(ctx, &domain.AuditEntry{Action: "approve_remediation", UserID: &user})
	}
	svc.Log(ctx, &domain.AuditEntry{Action: "reject_remediation"})

	alice := "alice"
	entries, total, err := svc.List(ctx, domain.AuditFilter{UserID: &alice, Limit: 1})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	if len(entries) != 1 {
		t.Errorf("page size = %d, want 1", len(entries))
	}

	action := "reject_remediation"
	_, total, _ = svc.List(ctx, domain.AuditFilter{Action: &action, Limit: 10})
	if total != 1 {
		t.Errorf("reject_remediation total = %d, want 1", total)
	}
}
