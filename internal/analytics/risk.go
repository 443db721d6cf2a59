// Package analytics computes risk scores and daily security rollups.
package analytics

import (
	"time"

	"vulx/internal/models"
)

// severityWeights is the deduction per unresolved finding.
var severityWeights = map[models.Severity]int{
	models.SeverityCritical: 40,
	models.SeverityHigh:     25,
	models.SeverityMedium:   10,
	models.SeverityLow:      3,
	models.SeverityInfo:     1,
}

const maxRiskScore = 100

// RiskScore is 100 minus the weighted count of unresolved findings, clamped
// to [0, 100]. Higher is safer. This is the only risk formula in the system.
func RiskScore(findings []models.Finding) int {
	score := maxRiskScore
	for _, f := range findings {
		if !f.Status.Unresolved() {
			continue
		}
		score -= severityWeights[f.Severity]
		if score <= 0 {
			return 0
		}
	}
	return score
}

// Counts aggregates findings by severity and by status.
type Counts struct {
	BySeverity map[models.Severity]int
	ByStatus   map[models.FindingStatus]int
	Total      int
}

func Count(findings []models.Finding) Counts {
	c := Counts{
		BySeverity: make(map[models.Severity]int, len(models.Severities)),
		ByStatus:   make(map[models.FindingStatus]int, len(models.FindingStatuses)),
	}
	for _, f := range findings {
		c.BySeverity[f.Severity]++
		c.ByStatus[f.Status]++
		c.Total++
	}
	return c
}

// MeanTimeToRemediate averages fixedAt − createdAt over FIXED findings, in
// hours. It returns nil when nothing has been fixed.
func MeanTimeToRemediate(findings []models.Finding) *float64 {
	var total time.Duration
	n := 0
	for _, f := range findings {
		if f.Status != models.FindingFixed || f.FixedAt == nil {
			continue
		}
		d := f.FixedAt.Sub(f.CreatedAt)
		if d < 0 {
			continue
		}
		total += d
		n++
	}
	if n == 0 {
		return nil
	}
	hours := total.Hours() / float64(n)
	return &hours
}

// BuildSnapshot rolls findings up into a snapshot row for day. A nil
// projectID produces the organization-wide row.
func BuildSnapshot(orgID string, projectID *string, day time.Time, findings []models.Finding) *models.SecuritySnapshot {
	c := Count(findings)
	scope := models.SnapshotScopeOrganization
	if projectID != nil {
		scope = *projectID
	}
	return &models.SecuritySnapshot{
		OrganizationID: orgID,
		ProjectID:      projectID,
		Scope:          scope,
		Day:            models.DayKey(day),
		Critical:       c.BySeverity[models.SeverityCritical],
		High:           c.BySeverity[models.SeverityHigh],
		Medium:         c.BySeverity[models.SeverityMedium],
		Low:            c.BySeverity[models.SeverityLow],
		Info:           c.BySeverity[models.SeverityInfo],
		Open:           c.ByStatus[models.FindingOpen],
		InProgress:     c.ByStatus[models.FindingInProgress],
		Accepted:       c.ByStatus[models.FindingAccepted],
		Fixed:          c.ByStatus[models.FindingFixed],
		FalsePositive:  c.ByStatus[models.FindingFalsePositive],
		RiskScore:      RiskScore(findings),
		MTTRHours:      MeanTimeToRemediate(findings),
	}
}
