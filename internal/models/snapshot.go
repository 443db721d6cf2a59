package models

import "time"

// SnapshotScopeOrganization marks the organization-wide row of a day.
const SnapshotScopeOrganization = "organization"

// SecuritySnapshot is a daily rollup of finding counts and risk.
type SecuritySnapshot struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrganizationID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_snapshot_scope_day" json:"organizationId"`
	ProjectID      *string   `gorm:"type:varchar(36);index" json:"projectId,omitempty"`
	Scope          string    `gorm:"size:64;not null;uniqueIndex:idx_snapshot_scope_day" json:"-"`
	Day            string    `gorm:"size:10;not null;uniqueIndex:idx_snapshot_scope_day" json:"day"`
	Critical       int       `json:"critical"`
	High           int       `json:"high"`
	Medium         int       `json:"medium"`
	Low            int       `json:"low"`
	Info           int       `json:"info"`
	Open           int       `json:"open"`
	InProgress     int       `json:"inProgress"`
	Accepted       int       `json:"accepted"`
	Fixed          int       `json:"fixed"`
	FalsePositive  int       `json:"falsePositive"`
	RiskScore      int       `json:"riskScore"`
	MTTRHours      *float64  `gorm:"column:mttr_hours" json:"mttrHours,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// DayKey formats t as the snapshot day in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
