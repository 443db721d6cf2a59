package client

import (
	"fmt"
	"strings"

	"vulx/internal/models"
)

// ParseThreshold accepts a severity name in any case.
func ParseThreshold(raw string) (models.Severity, error) {
	sev := models.Severity(strings.ToUpper(strings.TrimSpace(raw)))
	if !sev.Valid() {
		return "", fmt.Errorf("invalid severity %q, must be one of: CRITICAL, HIGH, MEDIUM, LOW, INFO", raw)
	}
	return sev, nil
}

// Breaches returns the findings at or above threshold.
func Breaches(findings []models.Finding, threshold models.Severity) []models.Finding {
	var out []models.Finding
	for _, f := range findings {
		if f.Severity.AtLeast(threshold) {
			out = append(out, f)
		}
	}
	return out
}

// ExitCode is 1 when the scan failed or any finding meets the threshold.
func ExitCode(scan *models.Scan, threshold models.Severity) int {
	if scan == nil || scan.Status != models.ScanCompleted {
		return 1
	}
	if len(Breaches(scan.Findings, threshold)) > 0 {
		return 1
	}
	return 0
}
