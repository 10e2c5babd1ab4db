package capability

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/drydock-dev/drydock/internal/domain"
)

func TestUnresolvedCapabilitiesAreNoops(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()

	reg.NotifyInsight(ctx, &domain.Insight{ID: uuid.New()})

	action, err := reg.SuggestAction(ctx, &domain.Insight{ID: uuid.New()})
	if err != nil {
		t.Fatalf("expected no error from unresolved suggester, got %v", err)
	}
	if action != nil {
		t.Fatalf("expected nil action from unresolved suggester, got %+v", action)
	}

	findings, err := reg.ScanContainer(ctx, "c1")
	if err != nil {
		t.Fatalf("expected no error from unresolved scanner, got %v", err)
	}
	if findings != nil {
		t.Fatalf("expected nil findings from unresolved scanner, got %v", findings)
	}
}

func TestRegisteredNotifierReceivesInsight(t *testing.T) {
	reg := NewRegistry()

	var got *domain.Insight
	reg.RegisterNotifier(func(ctx context.Context, insight *domain.Insight) {
		got = insight
	})

	want := &domain.Insight{ID: uuid.New(), Severity: domain.SeverityCritical}
	reg.NotifyInsight(context.Background(), want)

	if got == nil || got.ID != want.ID {
		t.Fatalf("expected notifier to receive insight %s, got %+v", want.ID, got)
	}
}

func TestRegisteredSuggesterPassesThrough(t *testing.T) {
	reg := NewRegistry()

	want := &domain.Action{ID: uuid.New(), ActionType: domain.ActionRestartContainer}
	reg.RegisterActionSuggester(func(ctx context.Context, insight *domain.Insight) (*domain.Action, error) {
		return want, nil
	})

	got, err := reg.SuggestAction(context.Background(), &domain.Insight{ID: uuid.New()})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got == nil || got.ID != want.ID {
		t.Fatalf("expected action %s, got %+v", want.ID, got)
	}
}

func TestSuggesterErrorPropagates(t *testing.T) {
	reg := NewRegistry()

	reg.RegisterActionSuggester(func(ctx context.Context, insight *domain.Insight) (*domain.Action, error) {
		return nil, domain.ErrInvalidInput
	})

	_, err := reg.SuggestAction(context.Background(), &domain.Insight{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRegisteredScannerPassesThrough(t *testing.T) {
	reg := NewRegistry()

	reg.RegisterSecurityScanner(func(ctx context.Context, containerID string) ([]domain.Finding, error) {
		if containerID != "c1" {
			t.Fatalf("expected container c1, got %s", containerID)
		}
		return []domain.Finding{{VulnerabilityID: "CVE-2024-0001", Severity: "critical"}}, nil
	})

	findings, err := reg.ScanContainer(context.Background(), "c1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(findings) != 1 || findings[0].VulnerabilityID != "CVE-2024-0001" {
		t.Fatalf("unexpected findings: %v", findings)
	}
}
