package model

import "time"

// ConversationMode selects how assistant replies are produced.
type ConversationMode string

const (
	ModeOpenChat ConversationMode = "OPEN_CHAT"
	ModeRagChat  ConversationMode = "RAG_CHAT"
)

// Conversation is a single ongoing chat. TokenCount accumulates the total
// tokens billed by the completion service over the conversation's lifetime.
type Conversation struct {
	ID         string           `gorm:"primaryKey;size:36" json:"id"`
	UserID     string           `gorm:"size:36;not null;index" json:"user_id"`
	Title      string           `gorm:"size:256;default:'New Chat'" json:"title"`
	Mode       ConversationMode `gorm:"size:16;not null" json:"mode"`
	TokenCount int              `gorm:"not null;default:0" json:"token_count"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"last_updated_at"`

	Messages []Message `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}
