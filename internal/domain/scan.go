package domain

import "time"

type Finding struct {
	VulnerabilityID string `json:"vulnerability_id"`
	Severity        string `json:"severity"` // critical, high, medium, low, negligible, unknown
	PackageName     string `json:"package_name"`
	PackageVersion  string `json:"package_version"`
	FixedIn         string `json:"fixed_in,omitempty"`
	Description     string `json:"description,omitempty"`
}

type ScanReport struct {
	ContainerID string    `json:"container_id"`
	Image       string    `json:"image"`
	Findings    []Finding `json:"findings"`
	ScannedAt   time.Time `json:"scanned_at"`
}

func (r *ScanReport) CountBySeverity() map[string]int {
	counts := make(map[string]int)
	for _, f := range r.Findings {
		counts[f.Severity]++
	}
	return counts
}

func (r *ScanReport) HasCritical() bool {
	for _, f := range r.Findings {
		if f.Severity == "critical" {
			return true
		}
	}
	return false
}
