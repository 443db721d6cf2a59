package models

import "time"

type ScanFrequency string

const (
	FrequencyManual ScanFrequency = "MANUAL"
	FrequencyDaily  ScanFrequency = "DAILY"
	FrequencyWeekly ScanFrequency = "WEEKLY"
)

func (f ScanFrequency) Valid() bool {
	switch f {
	case FrequencyManual, FrequencyDaily, FrequencyWeekly:
		return true
	}
	return false
}

// Interval is the distance between automatic scans; zero for MANUAL.
func (f ScanFrequency) Interval() time.Duration {
	switch f {
	case FrequencyDaily:
		return 24 * time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	}
	return 0
}

type Project struct {
	Base
	OrganizationID string        `gorm:"type:varchar(36);index;not null" json:"organizationId"`
	Name           string        `gorm:"size:255;not null" json:"name"`
	TargetURL      string        `gorm:"size:2048" json:"targetUrl"`
	SpecContent    string        `gorm:"type:text" json:"-"`
	SpecURL        string        `gorm:"size:2048" json:"specUrl,omitempty"`
	ScanFrequency  ScanFrequency `gorm:"size:16;not null;default:MANUAL;index" json:"scanFrequency"`
	NextScanAt     *time.Time    `gorm:"index" json:"nextScanAt,omitempty"`
}

// HasSpec reports whether spec content is stored on the row.
func (p *Project) HasSpec() bool {
	return len(p.SpecContent) > 0
}
