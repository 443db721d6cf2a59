package scan

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"vulx/internal/models"
	"vulx/pkg/client"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Bold(true)
	passStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).PaddingLeft(4)
	boxStyle   = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	severityStyles = map[models.Severity]lipgloss.Style{
		models.SeverityCritical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		models.SeverityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		models.SeverityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		models.SeverityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
		models.SeverityInfo:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
)

// Report is what the scan command prints, as text or JSON.
type Report struct {
	ScanID          string                  `json:"scanId"`
	Status          models.ScanStatus       `json:"status"`
	RiskScore       *int                    `json:"riskScore,omitempty"`
	Threshold       models.Severity         `json:"failOn"`
	Passed          bool                    `json:"passed"`
	Counts          map[models.Severity]int `json:"counts"`
	Findings        []models.Finding        `json:"findings"`
	showRemediation bool
}

func NewReport(scan *models.Scan, threshold models.Severity, showRemediation bool) *Report {
	findings := append([]models.Finding(nil), scan.Findings...)
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.Rank() < findings[j].Severity.Rank()
	})

	counts := make(map[models.Severity]int, len(models.Severities))
	for _, f := range findings {
		counts[f.Severity]++
	}
	if !showRemediation {
		for i := range findings {
			findings[i].Remediation = ""
		}
	}

	return &Report{
		ScanID:          scan.ID,
		Status:          scan.Status,
		RiskScore:       scan.RiskScore,
		Threshold:       threshold,
		Passed:          client.ExitCode(scan, threshold) == 0,
		Counts:          counts,
		Findings:        findings,
		showRemediation: showRemediation,
	}
}

func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func (r *Report) WriteText(w io.Writer) {
	var b strings.Builder
	b.WriteString(titleStyle.Render("VULX scan "+r.ScanID) + "\n")
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Status:"), r.Status)
	if r.RiskScore != nil {
		fmt.Fprintf(&b, "%s %d/100\n", labelStyle.Render("Risk score:"), *r.RiskScore)
	}

	var parts []string
	for _, sev := range models.Severities {
		parts = append(parts, severityStyles[sev].Render(fmt.Sprintf("%s %d", sev, r.Counts[sev])))
	}
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Findings:"), strings.Join(parts, "  "))
	fmt.Fprint(w, boxStyle.Render(strings.TrimRight(b.String(), "\n"))+"\n")

	for _, f := range r.Findings {
		fmt.Fprintf(w, "%s %s %s %s\n",
			severityStyles[f.Severity].Render(fmt.Sprintf("[%s]", f.Severity)),
			f.Title, strings.ToUpper(f.Method), f.Endpoint)
		if r.showRemediation && f.Remediation != "" {
			fmt.Fprintln(w, hintStyle.Render(f.Remediation))
		}
	}

	if r.Passed {
		fmt.Fprintln(w, passStyle.Render(fmt.Sprintf("PASS: no findings at or above %s", r.Threshold)))
	} else {
		fmt.Fprintln(w, failStyle.Render(fmt.Sprintf("FAIL: findings at or above %s or scan did not complete", r.Threshold)))
	}
}
