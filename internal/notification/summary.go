package notification

import (
	"fmt"
	"strings"
	"time"

	"vulx/internal/analytics"
	"vulx/internal/models"
)

const maxListedFindings = 5

// ScanSummary is the provider-neutral content of a scan notification.
type ScanSummary struct {
	ScanID           string
	ProjectID        string
	ProjectName      string
	OrganizationName string
	Environment      models.Environment
	RiskScore        int
	DurationSecs     *int
	CompletedAt      time.Time
	Counts           map[models.Severity]int
	Total            int
	TopFindings      []models.Finding
	DashboardURL     string
}

func (s *ScanSummary) Critical() int {
	return s.Counts[models.SeverityCritical]
}

// HighestSeverity returns the most severe level present, or INFO when clean.
func (s *ScanSummary) HighestSeverity() models.Severity {
	for _, sev := range models.Severities {
		if s.Counts[sev] > 0 {
			return sev
		}
	}
	return models.SeverityInfo
}

func (s *ScanSummary) Title() string {
	return fmt.Sprintf("Scan completed: %s", s.ProjectName)
}

// CountsLine renders "2 critical, 1 high" style text, skipping zeros.
func (s *ScanSummary) CountsLine() string {
	var parts []string
	for _, sev := range models.Severities {
		if n := s.Counts[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ToLower(string(sev))))
		}
	}
	if len(parts) == 0 {
		return "No findings"
	}
	return strings.Join(parts, ", ")
}

func (s *ScanSummary) FindingLine(f models.Finding) string {
	return fmt.Sprintf("[%s] %s %s %s", f.Severity, f.Title, strings.ToUpper(f.Method), f.Endpoint)
}

func (s *ScanSummary) ScanURL() string {
	if s.DashboardURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/projects/%s/scans/%s", strings.TrimRight(s.DashboardURL, "/"), s.ProjectID, s.ScanID)
}

// NewScanSummary builds the summary from a completed scan and its findings.
func NewScanSummary(org *models.Organization, project *models.Project, scan *models.Scan, findings []models.Finding, dashboardURL string) *ScanSummary {
	counts := analytics.Count(findings)

	sorted := append([]models.Finding(nil), findings...)
	models.SortFindings(sorted)
	if len(sorted) > maxListedFindings {
		sorted = sorted[:maxListedFindings]
	}

	risk := analytics.RiskScore(findings)
	if scan.RiskScore != nil {
		risk = *scan.RiskScore
	}
	completed := scan.UpdatedAt
	if scan.CompletedAt != nil {
		completed = *scan.CompletedAt
	}

	s := &ScanSummary{
		ScanID:       scan.ID,
		ProjectID:    project.ID,
		ProjectName:  project.Name,
		Environment:  scan.Environment,
		RiskScore:    risk,
		DurationSecs: scan.DurationSecs,
		CompletedAt:  completed,
		Counts:       counts.BySeverity,
		Total:        counts.Total,
		TopFindings:  sorted,
		DashboardURL: dashboardURL,
	}
	if org != nil {
		s.OrganizationName = org.Name
	}
	return s
}

// SampleSummary is the synthetic scan used for connectivity tests.
func SampleSummary(orgName, dashboardURL string) *ScanSummary {
	duration := 42
	findings := []models.Finding{
		{Type: "SQL_INJECTION", Title: "SQL injection in id parameter", Endpoint: "/api/users/{id}", Method: "GET", Severity: models.SeverityCritical, Status: models.FindingOpen},
		{Type: "BROKEN_AUTH", Title: "Missing authentication", Endpoint: "/api/admin", Method: "POST", Severity: models.SeverityHigh, Status: models.FindingOpen},
		{Type: "CORS", Title: "Permissive CORS policy", Endpoint: "/api", Method: "OPTIONS", Severity: models.SeverityLow, Status: models.FindingOpen},
	}
	counts := analytics.Count(findings)
	return &ScanSummary{
		ScanID:           "sample-scan",
		ProjectID:        "sample-project",
		ProjectName:      "Sample API (test notification)",
		OrganizationName: orgName,
		Environment:      models.EnvironmentSandbox,
		RiskScore:        analytics.RiskScore(findings),
		DurationSecs:     &duration,
		CompletedAt:      time.Now().UTC(),
		Counts:           counts.BySeverity,
		Total:            counts.Total,
		TopFindings:      findings,
		DashboardURL:     dashboardURL,
	}
}

func severityColor(severity models.Severity) int {
	switch severity {
	case models.SeverityCritical:
		return 0x8B0000
	case models.SeverityHigh:
		return 0xFF0000
	case models.SeverityMedium:
		return 0xFF8C00
	case models.SeverityLow:
		return 0xFFD700
	case models.SeverityInfo:
		return 0x00BFFF
	default:
		return 0x808080
	}
}
