package models

import "time"

type Organization struct {
	Base
	Name string `gorm:"size:255;not null" json:"name"`
}

// Member is a user of an organization; members receive scan emails.
type Member struct {
	Base
	OrganizationID string `gorm:"type:varchar(36);index;not null" json:"organizationId"`
	Email          string `gorm:"size:255;not null" json:"email"`
	Name           string `gorm:"size:255" json:"name"`
}

// APIKey authenticates API and CLI callers. Only the SHA-256 hash of the
// secret is stored.
type APIKey struct {
	Base
	OrganizationID string     `gorm:"type:varchar(36);index;not null" json:"organizationId"`
	ProjectID      *string    `gorm:"type:varchar(36);index" json:"projectId,omitempty"`
	Name           string     `gorm:"size:255" json:"name"`
	Prefix         string     `gorm:"size:16" json:"prefix"`
	KeyHash        string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	LastUsedAt     *time.Time `json:"lastUsedAt,omitempty"`
}

func (APIKey) TableName() string {
	return "api_keys"
}
