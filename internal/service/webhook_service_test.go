package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/drydock-dev/drydock/internal/domain"
)

func newTestWebhookService() (*WebhookService, *mockWebhookRepo, *mockAuditRepo) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newMockWebhookRepo()
	auditRepo := newMockAuditRepo()
	return NewWebhookService(repo, NewAuditService(auditRepo, log), log), repo, auditRepo
}

func TestRegisterWebhook(t *testing.T) {
	svc, _, audit := newTestWebhookService()
	ctx := context.Background()

	sub, err := svc.Register(ctx, RegisterWebhookInput{
		Name: "ops-pager",
		URL:  "https://example.com/hook",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sub.Active {
		t.Errorf("new subscription should be active")
	}
	if sub.Secret == "" {
		t.Errorf("expected a generated secret")
	}
	if len(audit.find("register_webhook")) != 1 {
		t.Errorf("expected one register_webhook audit entry")
	}
}

func TestRegisterWebhook_RejectsPrivateURLs(t *testing.T) {
	svc, repo, _ := newTestWebhookService()
	ctx := context.Background()

	urls := []string{
		"http://localhost/x",
		"http://127.0.0.1/x",
		"http://192.168.1.5/x",
		"http://[::1]/x",
		"http://10.0.0.8/internal",
		"ftp://example.com/hook",
	}
	for _, u := range urls {
		if _, err := svc.Register(ctx, RegisterWebhookInput{Name: "bad", URL: u}); !errors.Is(err, domain.ErrUnsafeURL) {
			t.Errorf("Register(%s): err = %v, want ErrUnsafeURL", u, err)
		}
	}

	subs, _ := repo.ListSubscriptions(ctx, false)
	if len(subs) != 0 {
		t.Errorf("rejected registrations must not persist, found %d", len(subs))
	}
}

func TestRegisterWebhook_Validation(t *testing.T) {
	svc, _, _ := newTestWebhookService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterWebhookInput{URL: "https://example.com/hook"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("missing name: err = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.Register(ctx, RegisterWebhookInput{Name: "x"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("missing url: err = %v, want ErrInvalidInput", err)
	}
}

func TestSetActive(t *testing.T) {
	svc, repo, _ := newTestWebhookService()
	ctx := context.Background()

	sub, err := svc.Register(ctx, RegisterWebhookInput{Name: "ops", URL: "https://example.com/hook"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.SetActive(ctx, sub.ID, false); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	stored, _ := repo.GetSubscription(ctx, sub.ID)
	if stored.Active {
		t.Errorf("subscription still active")
	}

	if err := svc.SetActive(ctx, uuid.New(), false); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown id: err = %v, want ErrNotFound", err)
	}
}

func TestListDeliveries_UnknownWebhook(t *testing.T) {
	svc, _, _ := newTestWebhookService()

	if _, _, err := svc.ListDeliveries(context.Background(), uuid.New(), 1, 20); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
