package model

// ConversationDocumentLink grounds a conversation in a document. A document
// may ground many conversations and a conversation may be grounded by many
// documents; rows are deleted explicitly, never cascaded.
type ConversationDocumentLink struct {
	ID             uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID string `gorm:"size:36;not null;index" json:"conversation_id"`
	DocumentID     string `gorm:"size:36;not null;index" json:"document_id"`
}
