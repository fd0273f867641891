package model

import "time"

// ProcessingStatus tracks a document through the ingestion pipeline.
type ProcessingStatus string

const (
	StatusPending  ProcessingStatus = "PENDING"
	StatusChunking ProcessingStatus = "CHUNKING"
	StatusReady    ProcessingStatus = "READY"
	StatusFailed   ProcessingStatus = "FAILED"
)

// Document is an ingested source of retrieval context. Only READY documents
// may be linked to conversations.
type Document struct {
	ID               string           `gorm:"primaryKey;size:36" json:"id"`
	UserID           string           `gorm:"size:36;not null;index" json:"user_id"`
	Filename         string           `gorm:"size:256;not null" json:"filename"`
	StoragePath      string           `gorm:"size:512;not null" json:"storage_path"`
	ProcessingStatus ProcessingStatus `gorm:"size:16;not null" json:"processing_status"`
	CreatedAt        time.Time        `json:"created_at"`

	Chunks []DocumentChunk `gorm:"foreignKey:DocumentID" json:"-"`
}
