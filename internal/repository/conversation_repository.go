package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"botgpt/internal/model"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) Create(ctx context.Context, conversation *model.Conversation) error {
	if err := r.db.WithContext(ctx).Create(conversation).Error; err != nil {
		return fmt.Errorf("create conversation failed: %w", err)
	}
	return nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	var conversation model.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conversation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get conversation failed: %w", err)
	}
	return &conversation, nil
}

// GetByIDWithMessages preloads messages in ascending sequence-number order,
// which reconstructs exact turn-taking history.
func (r *ConversationRepository) GetByIDWithMessages(ctx context.Context, id string) (*model.Conversation, error) {
	var conversation model.Conversation
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_number ASC")
		}).
		Where("id = ?", id).
		First(&conversation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get conversation with messages failed: %w", err)
	}
	return &conversation, nil
}

func (r *ConversationRepository) ListByUserID(ctx context.Context, userID string) ([]model.Conversation, error) {
	var conversations []model.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, fmt.Errorf("list conversations failed: %w", err)
	}
	return conversations, nil
}

// AddTokenUsage adds tokens to the conversation's running total and bumps the
// last-updated timestamp.
func (r *ConversationRepository) AddTokenUsage(ctx context.Context, id string, tokens int) error {
	err := r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", id).
		Update("token_count", gorm.Expr("token_count + ?", tokens)).Error
	if err != nil {
		return fmt.Errorf("add conversation token usage failed: %w", err)
	}
	return nil
}

func (r *ConversationRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Conversation{}).Error; err != nil {
		return fmt.Errorf("delete conversation failed: %w", err)
	}
	return nil
}
