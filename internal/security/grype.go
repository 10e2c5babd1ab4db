package security

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/drydock-dev/drydock/internal/domain"
)

// GrypeScanner shells out to the grype CLI for image vulnerability scans.
// The binary must be installed and its database kept current out of band.
type GrypeScanner struct {
	binary  string
	timeout time.Duration
	log     *slog.Logger
}

func NewGrypeScanner(binary string, timeout time.Duration, log *slog.Logger) *GrypeScanner {
	if binary == "" {
		binary = "grype"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &GrypeScanner{binary: binary, timeout: timeout, log: log}
}

func (s *GrypeScanner) Scan(ctx context.Context, image string) ([]domain.Finding, error) {
	image = strings.TrimSpace(image)
	if image == "" {
		return nil, fmt.Errorf("%w: image reference is required", domain.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.binary, image, "-o", "json")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.log.Debug("running vulnerability scan", "image", image)

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("scan of %s timed out after %s", image, s.timeout)
	}
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: scanner binary %q not found", domain.ErrConfiguration, s.binary)
		}
		// Exit code 1 means vulnerabilities were found, which is a result,
		// not a failure.
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
			return nil, fmt.Errorf("scanner exited abnormally: %v: %s", err, tail(stderr.String(), 2000))
		}
	}

	findings, err := ParseReport(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("parse scanner output: %w", err)
	}
	return findings, nil
}

// grypeDocument mirrors the subset of grype's JSON output that matters here.
type grypeDocument struct {
	Matches []struct {
		Vulnerability struct {
			ID          string `json:"id"`
			Severity    string `json:"severity"`
			Description string `json:"description"`
			Fix         struct {
				Versions []string `json:"versions"`
			} `json:"fix"`
		} `json:"vulnerability"`
		Artifact struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"artifact"`
	} `json:"matches"`
}

// ParseReport converts raw grype JSON into findings with normalized
// lowercase severities.
func ParseReport(raw []byte) ([]domain.Finding, error) {
	var doc grypeDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	findings := make([]domain.Finding, 0, len(doc.Matches))
	for _, m := range doc.Matches {
		severity := strings.ToLower(m.Vulnerability.Severity)
		if severity == "" {
			severity = "unknown"
		}
		f := domain.Finding{
			VulnerabilityID: m.Vulnerability.ID,
			Severity:        severity,
			PackageName:     m.Artifact.Name,
			PackageVersion:  m.Artifact.Version,
			Description:     m.Vulnerability.Description,
		}
		if len(m.Vulnerability.Fix.Versions) > 0 {
			f.FixedIn = m.Vulnerability.Fix.Versions[0]
		}
		findings = append(findings, f)
	}
	return findings, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
