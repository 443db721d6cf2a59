package models

import (
	"strings"
	"time"
)

type IntegrationType string

const (
	IntegrationSlack   IntegrationType = "SLACK"
	IntegrationDiscord IntegrationType = "DISCORD"
	IntegrationTeams   IntegrationType = "TEAMS"
	IntegrationJira    IntegrationType = "JIRA"
	IntegrationLinear  IntegrationType = "LINEAR"
)

func (t IntegrationType) Valid() bool {
	switch t {
	case IntegrationSlack, IntegrationDiscord, IntegrationTeams, IntegrationJira, IntegrationLinear:
		return true
	}
	return false
}

const (
	EventScanCompleted   = "scan_completed"
	EventCriticalFinding = "critical_finding"
)

// IntegrationConfig is an organization-level outbound channel.
type IntegrationConfig struct {
	Base
	OrganizationID string          `gorm:"type:varchar(36);index;not null" json:"organizationId"`
	Type           IntegrationType `gorm:"size:16;not null" json:"type"`
	Name           string          `gorm:"size:255" json:"name"`
	WebhookURL     string          `gorm:"size:2048" json:"webhookUrl,omitempty"`
	Events         []string        `gorm:"serializer:json;type:text" json:"events"`
	Active         bool            `gorm:"not null;default:true" json:"active"`
}

// EventList returns the subscribed event names, trimmed and without blanks.
func (c *IntegrationConfig) EventList() []string {
	var out []string
	for _, e := range c.Events {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

func (c *IntegrationConfig) SetEvents(events []string) {
	c.Events = append([]string(nil), events...)
}

func (c *IntegrationConfig) Subscribes(event string) bool {
	for _, e := range c.EventList() {
		if e == event {
			return true
		}
	}
	return false
}

// CriticalOnly reports an integration that wants critical alerts but not
// every completion.
func (c *IntegrationConfig) CriticalOnly() bool {
	return c.Subscribes(EventCriticalFinding) && !c.Subscribes(EventScanCompleted)
}

// NotificationDelivery records that one recipient was served for one scan.
type NotificationDelivery struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ScanID      string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_delivery_scan_recipient" json:"scanId"`
	Recipient   string    `gorm:"size:512;not null;uniqueIndex:idx_delivery_scan_recipient" json:"recipient"`
	DeliveredAt time.Time `json:"deliveredAt"`
}
