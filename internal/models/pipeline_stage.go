package models

// PipelineStage is one ordered column of the sales pipeline. Status is the
// lead status assigned to leads that land in this stage.
type PipelineStage struct {
	BaseModel

	Name       string     `gorm:"type:varchar(128);not null" json:"name"`
	Color      string     `gorm:"type:varchar(32)" json:"color"`
	OrderIndex int        `gorm:"not null;uniqueIndex" json:"order_index"`
	Status     LeadStatus `gorm:"type:varchar(32)" json:"status"`
}
