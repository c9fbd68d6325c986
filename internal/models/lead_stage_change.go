package models

import (
	"time"

	"gorm.io/gorm"
)

// LeadStageChange records one stage move of a lead. Rows are append-only.
type LeadStageChange struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	LeadID      string     `gorm:"size:36;not null;index" json:"lead_id"`
	FromStageID *string    `gorm:"size:36" json:"from_stage_id"`
	ToStageID   string     `gorm:"size:36;not null" json:"to_stage_id"`
	FromStatus  LeadStatus `gorm:"type:varchar(32)" json:"from_status"`
	ToStatus    LeadStatus `gorm:"type:varchar(32);not null" json:"to_status"`
	ChangedBy   string     `gorm:"type:varchar(255)" json:"changed_by,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
}

func (c *LeadStageChange) BeforeCreate(*gorm.DB) error {
	c.ID = ensureID(c.ID)
	return nil
}
