package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel carries the identifier and timestamps shared by the CRM records.
// IDs are UUID strings stored as varchar(36) so the same schema migrates on
// sqlite, postgres and mysql.
type BaseModel struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID unless the caller supplied an ID.
func (m *BaseModel) BeforeCreate(*gorm.DB) error {
	m.ID = ensureID(m.ID)
	return nil
}

func ensureID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}
