package models

// ClientStatus describes the commercial relationship with a client.
type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
	ClientStatusProspect ClientStatus = "prospect"
	ClientStatusChurned  ClientStatus = "churned"
)

// Valid reports whether s is a known client status.
func (s ClientStatus) Valid() bool {
	switch s {
	case ClientStatusActive, ClientStatusInactive, ClientStatusProspect, ClientStatusChurned:
		return true
	}
	return false
}

// Client is a paying or prospective customer, optionally converted from a lead.
type Client struct {
	BaseModel

	Name       string       `gorm:"type:varchar(255);not null" json:"name"`
	Email      string       `gorm:"type:varchar(255);not null;index" json:"email"`
	Phone      string       `gorm:"type:varchar(64)" json:"phone,omitempty"`
	Company    string       `gorm:"type:varchar(255)" json:"company,omitempty"`
	Status     ClientStatus `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	TotalValue *float64     `json:"total_value,omitempty"`
	Address    string       `gorm:"type:text" json:"address,omitempty"`
	Notes      string       `gorm:"type:text" json:"notes,omitempty"`
	LeadID     *string      `gorm:"size:36;index" json:"lead_id,omitempty"`
}
