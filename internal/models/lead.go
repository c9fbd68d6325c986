package models

import "time"

// LeadStatus is the funnel position of a lead. It is always derived from the
// lead's current pipeline stage.
type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "new"
	LeadStatusContacted   LeadStatus = "contacted"
	LeadStatusQualified   LeadStatus = "qualified"
	LeadStatusProposal    LeadStatus = "proposal"
	LeadStatusNegotiation LeadStatus = "negotiation"
	LeadStatusClosedWon   LeadStatus = "closed_won"
	LeadStatusClosedLost  LeadStatus = "closed_lost"
)

// LeadStatuses lists every status in funnel order.
var LeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusContacted,
	LeadStatusQualified,
	LeadStatusProposal,
	LeadStatusNegotiation,
	LeadStatusClosedWon,
	LeadStatusClosedLost,
}

// Valid reports whether s is a known status.
func (s LeadStatus) Valid() bool {
	for _, known := range LeadStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether s closes the funnel. Terminal leads may still be
// moved back to an earlier stage.
func (s LeadStatus) Terminal() bool {
	return s == LeadStatusClosedWon || s == LeadStatusClosedLost
}

// LeadPriority ranks how urgently a lead should be worked.
type LeadPriority string

const (
	LeadPriorityLow    LeadPriority = "low"
	LeadPriorityMedium LeadPriority = "medium"
	LeadPriorityHigh   LeadPriority = "high"
	LeadPriorityUrgent LeadPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p LeadPriority) Valid() bool {
	switch p {
	case LeadPriorityLow, LeadPriorityMedium, LeadPriorityHigh, LeadPriorityUrgent:
		return true
	}
	return false
}

// Lead is a prospective customer tracked through the sales pipeline.
type Lead struct {
	BaseModel

	Name            string       `gorm:"type:varchar(255);not null" json:"name"`
	Email           string       `gorm:"type:varchar(255);not null;index" json:"email"`
	Phone           string       `gorm:"type:varchar(64)" json:"phone,omitempty"`
	Company         string       `gorm:"type:varchar(255)" json:"company,omitempty"`
	Status          LeadStatus   `gorm:"type:varchar(32);not null;default:'new';index" json:"status"`
	Priority        LeadPriority `gorm:"type:varchar(16);not null;default:'medium';index" json:"priority"`
	Source          string       `gorm:"type:varchar(64)" json:"source,omitempty"`
	EstimatedValue  *float64     `json:"estimated_value,omitempty"`
	Notes           string       `gorm:"type:text" json:"notes,omitempty"`
	InstagramHandle string       `gorm:"type:varchar(64)" json:"instagram_handle,omitempty"`
	ServiceInterest string       `gorm:"type:varchar(255)" json:"service_interest,omitempty"`
	BookingTime     *time.Time   `json:"booking_time,omitempty"`

	PipelineStageID *string `gorm:"size:36;index" json:"pipeline_stage_id"`
}

// Value returns the estimated value, treating an unset value as zero.
func (l *Lead) Value() float64 {
	if l == nil || l.EstimatedValue == nil {
		return 0
	}
	return *l.EstimatedValue
}

// InStage reports whether the lead currently sits in the given stage.
func (l *Lead) InStage(stageID string) bool {
	return l != nil && l.PipelineStageID != nil && *l.PipelineStageID == stageID
}
