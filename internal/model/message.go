package model

import "time"

// MessageRole identifies the sender of a message.
type MessageRole string

const (
	RoleUser      MessageRole = "USER"
	RoleAssistant MessageRole = "ASSISTANT"
	RoleSystem    MessageRole = "SYSTEM"
)

// Message is a single turn in a conversation. SequenceNumber is a gapless,
// strictly increasing position within the conversation; the composite unique
// index rejects duplicate assignments outright.
type Message struct {
	ID             string      `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string      `gorm:"size:36;not null;uniqueIndex:idx_conversation_seq,priority:1" json:"conversation_id"`
	SequenceNumber int         `gorm:"not null;uniqueIndex:idx_conversation_seq,priority:2" json:"sequence_number"`
	Role           MessageRole `gorm:"size:16;not null" json:"role"`
	Content        string      `gorm:"type:text;not null" json:"content"`
	LLMModel       string      `gorm:"size:128" json:"llm_model,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}
