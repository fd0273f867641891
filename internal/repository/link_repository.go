package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"botgpt/internal/model"
)

type LinkRepository struct {
	db *gorm.DB
}

func NewLinkRepository(db *gorm.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

func (r *LinkRepository) Create(ctx context.Context, link *model.ConversationDocumentLink) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		return fmt.Errorf("create document link failed: %w", err)
	}
	return nil
}

func (r *LinkRepository) ListDocumentIDsByConversationID(ctx context.Context, conversationID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.ConversationDocumentLink{}).
		Where("conversation_id = ?", conversationID).
		Order("id ASC").
		Pluck("document_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list linked document ids failed: %w", err)
	}
	return ids, nil
}

func (r *LinkRepository) DeleteByConversationID(ctx context.Context, conversationID string) error {
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Delete(&model.ConversationDocumentLink{}).Error
	if err != nil {
		return fmt.Errorf("delete links by conversation failed: %w", err)
	}
	return nil
}

func (r *LinkRepository) DeleteByDocumentID(ctx context.Context, documentID string) error {
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&model.ConversationDocumentLink{}).Error
	if err != nil {
		return fmt.Errorf("delete links by document failed: %w", err)
	}
	return nil
}

// CountByDocumentID reports how many conversations still reference the
// document. Used to garbage-collect documents on conversation delete.
func (r *LinkRepository) CountByDocumentID(ctx context.Context, documentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ConversationDocumentLink{}).
		Where("document_id = ?", documentID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count links by document failed: %w", err)
	}
	return count, nil
}
