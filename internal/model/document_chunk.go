package model

import "time"

// DocumentChunk is an immutable slice of a document's text together with its
// embedding, stored in the versioned binary encoding of this package's vector
// codec. ChunkIndex records original document order.
type DocumentChunk struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	DocumentID string    `gorm:"size:36;not null;index" json:"document_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Embedding  []byte    `gorm:"type:blob;not null" json:"-"`
	ChunkIndex int       `gorm:"not null" json:"chunk_index"`
	CreatedAt  time.Time `json:"created_at"`
}
