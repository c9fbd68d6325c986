package models

// ContentProject is a before/after showcase entry for the portfolio section.
type ContentProject struct {
	BaseModel

	Title          string `gorm:"type:varchar(255);not null" json:"title"`
	Description    string `gorm:"type:text" json:"description,omitempty"`
	Category       string `gorm:"type:varchar(64);index" json:"category,omitempty"`
	BeforeMediaURL string `gorm:"type:text" json:"before_media_url,omitempty"`
	AfterMediaURL  string `gorm:"type:text" json:"after_media_url,omitempty"`
	IsPublished    bool   `gorm:"default:false;index" json:"is_published"`
	DisplayOrder   int    `gorm:"default:0;index" json:"display_order"`
}
