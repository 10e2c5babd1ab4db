package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/drydock-dev/drydock/internal/domain"
	"github.com/drydock-dev/drydock/internal/events"
)

// Scanner produces vulnerability findings for an image reference.
type Scanner interface {
	Scan(ctx context.Context, image string) ([]domain.Finding, error)
}

// ContainerResolver maps a container id to the image it runs and its name.
type ContainerResolver interface {
	ResolveImage(ctx context.Context, containerID string) (image string, name string, err error)
}

type ScanService struct {
	scanner  Scanner
	resolver ContainerResolver
	insights *InsightService
	audit    *AuditService
	bus      *events.Bus
	log      *slog.Logger
}

func NewScanService(
	scanner Scanner,
	resolver ContainerResolver,
	insights *InsightService,
	audit *AuditService,
	bus *events.Bus,
	log *slog.Logger,
) *ScanService {
	return &ScanService{
		scanner:  scanner,
		resolver: resolver,
		insights: insights,
		audit:    audit,
		bus:      bus,
		log:      log,
	}
}

// ScanContainer resolves the container's image, scans it and reports the
// findings. Critical findings raise a security insight back into the
// pipeline, where the operations domain will propose a remediation.
func (s *ScanService) ScanContainer(ctx context.Context, containerID string) (*domain.ScanReport, error) {
	if containerID == "" {
		return nil, fmt.Errorf("%w: container id is required", domain.ErrInvalidInput)
	}

	image, name, err := s.resolver.ResolveImage(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("resolve container: %w", err)
	}

	findings, err := s.scanner.Scan(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("scan image %s: %w", image, err)
	}

	report := &domain.ScanReport{
		ContainerID: containerID,
		Image:       image,
		Findings:    findings,
		ScannedAt:   time.Now().UTC(),
	}

	s.audit.Log(ctx, &domain.AuditEntry{
		Action:     "scan_container",
		TargetType: strptr("container"),
		TargetID:   strptr(containerID),
		Details: map[string]interface{}{
			"image":    image,
			"findings": len(findings),
		},
	})
	s.bus.Emit(ctx, events.ScanCompleted, report)
	s.log.Info("container scanned",
		"container", containerID, "image", image, "findings", len(findings))

	if report.HasCritical() {
		s.raiseSecurityInsight(ctx, report, name)
	}

	return report, nil
}

func (s *ScanService) raiseSecurityInsight(ctx context.Context, report *domain.ScanReport, containerName string) {
	open, err := s.insights.HasOpenInsight(ctx, report.ContainerID, "security")
	if err != nil {
		s.log.Warn("failed to check for open security insight", "container", report.ContainerID, "err", err)
		return
	}
	if open {
		return
	}

	counts := report.CountBySeverity()
	_, err = s.insights.Raise(ctx, RaiseInsightInput{
		ContainerID:   report.ContainerID,
		ContainerName: containerName,
		Severity:      domain.SeverityCritical,
		Category:      "security",
		Title:         fmt.Sprintf("critical vulnerabilities in %s", report.Image),
		Description: fmt.Sprintf("image %s has %d critical and %d high severity vulnerabilities",
			report.Image, counts["critical"], counts["high"]),
		SuggestedAction: string(domain.ActionStopContainer),
	})
	if err != nil {
		s.log.Warn("failed to raise security insight", "container", report.ContainerID, "err", err)
	}
}
