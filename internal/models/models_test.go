package models

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeverityRankIsNotAlphabetical(t *testing.T) {
	names := []string{"INFO", "LOW", "CRITICAL", "MEDIUM", "HIGH"}
	sort.Strings(names)
	// lexicographic order puts HIGH/INFO/LOW ahead of MEDIUM, which is wrong
	assert.Equal(t, []string{"CRITICAL", "HIGH", "INFO", "LOW", "MEDIUM"}, names)

	assert.Equal(t, 0, SeverityCritical.Rank())
	assert.Equal(t, 1, SeverityHigh.Rank())
	assert.Equal(t, 2, SeverityMedium.Rank())
	assert.Equal(t, 3, SeverityLow.Rank())
	assert.Equal(t, 4, SeverityInfo.Rank())
	assert.Equal(t, 5, Severity("BOGUS").Rank())
}

func TestSortFindings(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	findings := []Finding{
		{Base: Base{ID: "info", CreatedAt: base}, Severity: SeverityInfo},
		{Base: Base{ID: "medium", CreatedAt: base}, Severity: SeverityMedium},
		{Base: Base{ID: "high-late", CreatedAt: base.Add(time.Hour)}, Severity: SeverityHigh},
		{Base: Base{ID: "low", CreatedAt: base}, Severity: SeverityLow},
		{Base: Base{ID: "high-early", CreatedAt: base}, Severity: SeverityHigh},
		{Base: Base{ID: "critical", CreatedAt: base.Add(2 * time.Hour)}, Severity: SeverityCritical},
	}

	SortFindings(findings)

	var ids []string
	for _, f := range findings {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"critical", "high-early", "high-late", "medium", "low", "info"}, ids)
}

func TestSeverityAtLeast(t *testing.T) {
	assert.True(t, SeverityCritical.AtLeast(SeverityHigh))
	assert.True(t, SeverityHigh.AtLeast(SeverityHigh))
	assert.False(t, SeverityMedium.AtLeast(SeverityHigh))
	assert.False(t, SeverityInfo.AtLeast(SeverityLow))
	assert.False(t, Severity("").AtLeast(SeverityInfo))
}

func TestParseSeverity(t *testing.T) {
	s, ok := ParseSeverity(" high ")
	assert.True(t, ok)
	assert.Equal(t, SeverityHigh, s)

	_, ok = ParseSeverity("severe")
	assert.False(t, ok)
}

func TestScanStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to ScanStatus
		allowed  bool
	}{
		{ScanPending, ScanProcessing, true},
		{ScanPending, ScanFailed, true},
		{ScanProcessing, ScanCompleted, true},
		{ScanProcessing, ScanFailed, true},
		{ScanPending, ScanCompleted, false},
		{ScanProcessing, ScanPending, false},
		{ScanCompleted, ScanProcessing, false},
		{ScanCompleted, ScanFailed, false},
		{ScanFailed, ScanPending, false},
		{ScanCompleted, ScanCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestScanFrequencyInterval(t *testing.T) {
	assert.Equal(t, time.Duration(0), FrequencyManual.Interval())
	assert.Equal(t, 24*time.Hour, FrequencyDaily.Interval())
	assert.Equal(t, 7*24*time.Hour, FrequencyWeekly.Interval())
}

func TestIntegrationEvents(t *testing.T) {
	cfg := &IntegrationConfig{}
	cfg.SetEvents([]string{EventCriticalFinding})
	assert.True(t, cfg.CriticalOnly())
	assert.False(t, cfg.Subscribes(EventScanCompleted))

	cfg.Events = []string{"scan_completed", " critical_finding", ""}
	assert.Equal(t, []string{EventScanCompleted, EventCriticalFinding}, cfg.EventList())
	assert.False(t, cfg.CriticalOnly())
}

func TestFindingKeyNormalisesMethod(t *testing.T) {
	a := Finding{Type: "SQLi", Endpoint: "/users", Method: "get"}
	b := Finding{Type: "SQLi", Endpoint: "/users", Method: "GET"}
	assert.Equal(t, a.Key(), b.Key())
}
