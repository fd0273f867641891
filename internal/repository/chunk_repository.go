package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"botgpt/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) CreateBatch(ctx context.Context, chunks []model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&chunks).Error; err != nil {
		return fmt.Errorf("create chunks batch failed: %w", err)
	}
	return nil
}

// ListByDocumentIDs returns every chunk belonging to the given documents, in
// a stable (document, chunk_index) order so retrieval scoring is
// deterministic across calls.
func (r *ChunkRepository) ListByDocumentIDs(ctx context.Context, documentIDs []string) ([]model.DocumentChunk, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}
	var chunks []model.DocumentChunk
	err := r.db.WithContext(ctx).
		Where("document_id IN ?", documentIDs).
		Order("document_id ASC, chunk_index ASC").
		Find(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("list chunks by document ids failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) DeleteByDocumentID(ctx context.Context, documentID string) error {
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&model.DocumentChunk{}).Error
	if err != nil {
		return fmt.Errorf("delete chunks by document failed: %w", err)
	}
	return nil
}
