package models

// ChatRole identifies who wrote a chat message.
type ChatRole string

const (
	ChatRoleUser ChatRole = "user"
	ChatRoleBot  ChatRole = "bot"
)

// ChatMessage is one line of a website chatbot conversation.
type ChatMessage struct {
	BaseModel

	SessionID string   `gorm:"type:varchar(128);not null;index" json:"session_id"`
	Role      ChatRole `gorm:"type:varchar(8);not null" json:"role"`
	Content   string   `gorm:"type:text;not null" json:"content"`
	Origin    string   `gorm:"type:varchar(16)" json:"origin,omitempty"`
}
