package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"botgpt/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByUserID(ctx context.Context, userID string) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) ListByIDs(ctx context.Context, ids []string) ([]model.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var docs []model.Document
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents by ids failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status model.ProcessingStatus) error {
	err := r.db.WithContext(ctx).
		Model(&model.Document{}).
		Where("id = ?", id).
		Update("processing_status", status).Error
	if err != nil {
		return fmt.Errorf("update document status failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Document{}).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}
