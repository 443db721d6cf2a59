package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the string UUID primary key and timestamps shared by every table.
type Base struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns an id when the caller did not set one.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// AllModels lists every persisted type in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&Organization{},
		&Member{},
		&APIKey{},
		&Project{},
		&Scan{},
		&Finding{},
		&FindingHistory{},
		&IntegrationConfig{},
		&NotificationDelivery{},
		&SecuritySnapshot{},
	}
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.New().String()
	}
}

func (h *FindingHistory) BeforeCreate(tx *gorm.DB) error {
	newID(&h.ID)
	return nil
}

func (d *NotificationDelivery) BeforeCreate(tx *gorm.DB) error {
	newID(&d.ID)
	return nil
}

func (s *SecuritySnapshot) BeforeCreate(tx *gorm.DB) error {
	newID(&s.ID)
	return nil
}
