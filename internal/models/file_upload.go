package models

// FileUpload tracks a media object stored in the configured object store.
type FileUpload struct {
	BaseModel

	FileName    string `gorm:"type:varchar(255);not null" json:"file_name"`
	ObjectKey   string `gorm:"type:varchar(512);not null;uniqueIndex" json:"object_key"`
	ContentType string `gorm:"type:varchar(128)" json:"content_type"`
	Size        int64  `json:"size"`
	URL         string `gorm:"type:text" json:"url"`
	Backend     string `gorm:"type:varchar(16)" json:"backend"`
}
