package models

// Testimonial is a customer quote shown on the marketing site once approved.
type Testimonial struct {
	BaseModel

	Name       string `gorm:"type:varchar(255);not null" json:"name"`
	Company    string `gorm:"type:varchar(255)" json:"company,omitempty"`
	Role       string `gorm:"type:varchar(255)" json:"role,omitempty"`
	Content    string `gorm:"type:text;not null" json:"content"`
	Rating     int    `gorm:"not null;default:5" json:"rating"`
	AvatarURL  string `gorm:"type:text" json:"avatar_url,omitempty"`
	IsFeatured bool   `gorm:"default:false;index" json:"is_featured"`
	IsApproved bool   `gorm:"default:false;index" json:"is_approved"`
}
