package models

import "time"

type ScanStatus string

const (
	ScanPending    ScanStatus = "PENDING"
	ScanProcessing ScanStatus = "PROCESSING"
	ScanCompleted  ScanStatus = "COMPLETED"
	ScanFailed     ScanStatus = "FAILED"
)

// scanTransitions lists, for each target status, the statuses it may be
// reached from. Status never moves backward.
var scanTransitions = map[ScanStatus][]ScanStatus{
	ScanProcessing: {ScanPending},
	ScanCompleted:  {ScanProcessing},
	ScanFailed:     {ScanPending, ScanProcessing},
}

// Predecessors returns the statuses from which s may be entered.
func (s ScanStatus) Predecessors() []ScanStatus {
	return scanTransitions[s]
}

// CanTransitionTo reports whether moving from s to next is a forward move.
func (s ScanStatus) CanTransitionTo(next ScanStatus) bool {
	for _, from := range scanTransitions[next] {
		if from == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s ScanStatus) Terminal() bool {
	return s == ScanCompleted || s == ScanFailed
}

func (s ScanStatus) Valid() bool {
	switch s {
	case ScanPending, ScanProcessing, ScanCompleted, ScanFailed:
		return true
	}
	return false
}

type Environment string

const (
	EnvironmentSandbox    Environment = "SANDBOX"
	EnvironmentProduction Environment = "PRODUCTION"
)

func (e Environment) Valid() bool {
	return e == EnvironmentSandbox || e == EnvironmentProduction
}

const (
	DefaultScanType   = "full"
	DefaultAuthMethod = "none"
)

type Scan struct {
	Base
	ProjectID        string      `gorm:"type:varchar(36);index;not null" json:"projectId"`
	Status           ScanStatus  `gorm:"size:16;not null;index" json:"status"`
	Environment      Environment `gorm:"size:16;not null;default:SANDBOX" json:"environment"`
	ScanType         string      `gorm:"size:64" json:"scanType"`
	AuthMethod       string      `gorm:"size:64" json:"authMethod"`
	RiskScore        *int        `json:"riskScore,omitempty"`
	DurationSecs     *int        `json:"durationSecs,omitempty"`
	ErrorMessage     string      `gorm:"type:text" json:"errorMessage,omitempty"`
	NotificationSent bool        `gorm:"not null;default:false;index" json:"notificationSent"`
	NotifyingAt      *time.Time  `json:"-"`
	StartedAt        *time.Time  `json:"startedAt,omitempty"`
	CompletedAt      *time.Time  `json:"completedAt,omitempty"`

	Project  *Project  `gorm:"foreignKey:ProjectID" json:"-"`
	Findings []Finding `gorm:"foreignKey:ScanID" json:"findings,omitempty"`
}
