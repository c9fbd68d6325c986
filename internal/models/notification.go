package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType classifies what triggered a notification.
type NotificationType string

const (
	NotificationNewLead     NotificationType = "new_lead"
	NotificationLeadUpdated NotificationType = "lead_updated"
	NotificationClientAdded NotificationType = "client_added"
	NotificationReminder    NotificationType = "reminder"
	NotificationPayment     NotificationType = "payment"
	NotificationSystem      NotificationType = "system"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationNewLead, NotificationLeadUpdated, NotificationClientAdded,
		NotificationReminder, NotificationPayment, NotificationSystem:
		return true
	}
	return false
}

// Notification is an awareness record surfaced in the admin notification panel.
type Notification struct {
	BaseModel

	Type      NotificationType `gorm:"type:varchar(32);not null;index" json:"type"`
	Title     string           `gorm:"type:varchar(255);not null" json:"title"`
	Message   string           `gorm:"type:text" json:"message"`
	RelatedID *string          `gorm:"size:36;index" json:"related_id,omitempty"`
	Metadata  datatypes.JSON   `json:"metadata,omitempty"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}
