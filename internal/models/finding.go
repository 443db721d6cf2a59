package models

import (
	"sort"
	"strings"
	"time"
)

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// Severities lists every severity from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// severityRank is the ordering used everywhere findings are sorted. The
// enum's string form must never be compared directly.
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
	SeverityInfo:     4,
}

// Rank returns 0 for CRITICAL through 4 for INFO, and 5 for unknown values.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return len(severityRank)
}

func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// AtLeast reports whether s is as severe as, or more severe than, threshold.
func (s Severity) AtLeast(threshold Severity) bool {
	return s.Valid() && s.Rank() <= threshold.Rank()
}

// ParseSeverity accepts any casing of a severity name.
func ParseSeverity(v string) (Severity, bool) {
	s := Severity(strings.ToUpper(strings.TrimSpace(v)))
	return s, s.Valid()
}

type FindingStatus string

const (
	FindingOpen          FindingStatus = "OPEN"
	FindingInProgress    FindingStatus = "IN_PROGRESS"
	FindingAccepted      FindingStatus = "ACCEPTED"
	FindingFixed         FindingStatus = "FIXED"
	FindingFalsePositive FindingStatus = "FALSE_POSITIVE"
)

var FindingStatuses = []FindingStatus{FindingOpen, FindingInProgress, FindingAccepted, FindingFixed, FindingFalsePositive}

func (s FindingStatus) Valid() bool {
	for _, v := range FindingStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Unresolved reports whether the finding still counts against the risk score.
func (s FindingStatus) Unresolved() bool {
	return s == FindingOpen || s == FindingInProgress
}

type Finding struct {
	Base
	ScanID            string        `gorm:"type:varchar(36);index;not null" json:"scanId"`
	Type              string        `gorm:"size:128;not null" json:"type"`
	Title             string        `gorm:"size:512" json:"title"`
	Description       string        `gorm:"type:text" json:"description,omitempty"`
	Endpoint          string        `gorm:"size:2048" json:"endpoint"`
	Method            string        `gorm:"size:16" json:"method"`
	Severity          Severity      `gorm:"size:16;not null;index" json:"severity"`
	Status            FindingStatus `gorm:"size:32;not null;default:OPEN" json:"status"`
	Remediation       string        `gorm:"type:text" json:"remediation,omitempty"`
	AssigneeID        *string       `gorm:"type:varchar(36)" json:"assigneeId,omitempty"`
	ExternalTicketID  string        `gorm:"size:255" json:"externalTicketId,omitempty"`
	ExternalTicketURL string        `gorm:"size:2048" json:"externalTicketUrl,omitempty"`
	FixedAt           *time.Time    `json:"fixedAt,omitempty"`
}

// FindingKey identifies "the same" vulnerability across scans.
type FindingKey struct {
	Type     string
	Endpoint string
	Method   string
}

func (f *Finding) Key() FindingKey {
	return FindingKey{Type: f.Type, Endpoint: f.Endpoint, Method: strings.ToUpper(f.Method)}
}

// SortFindings orders findings by severity rank, then creation time.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		ri, rj := findings[i].Severity.Rank(), findings[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return findings[i].CreatedAt.Before(findings[j].CreatedAt)
	})
}

const (
	HistoryFieldStatus   = "status"
	HistoryFieldAssignee = "assignee"
)

// FindingHistory is an immutable audit record of one status or assignment change.
type FindingHistory struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FindingID string    `gorm:"type:varchar(36);index;not null" json:"findingId"`
	ActorID   string    `gorm:"type:varchar(36)" json:"actorId,omitempty"`
	Field     string    `gorm:"size:32;not null" json:"field"`
	FromValue string    `gorm:"size:255" json:"fromValue"`
	ToValue   string    `gorm:"size:255" json:"toValue"`
	Note      string    `gorm:"type:text" json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (FindingHistory) TableName() string {
	return "finding_history"
}
