package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"botgpt/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, message *model.Message) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("create message failed: %w", err)
	}
	return nil
}

// ListByConversationID returns the full history in ascending sequence order.
func (r *MessageRepository) ListByConversationID(ctx context.Context, conversationID string) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("sequence_number ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return messages, nil
}

// MaxSequenceNumber returns the highest sequence number in the conversation,
// or 0 when it has no messages yet. Callers must hold the conversation's
// append lock so that read-then-insert stays serialized.
func (r *MessageRepository) MaxSequenceNumber(ctx context.Context, conversationID string) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_id = ?", conversationID).
		Select("COALESCE(MAX(sequence_number), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("query max sequence number failed: %w", err)
	}
	return max, nil
}

func (r *MessageRepository) DeleteByConversationID(ctx context.Context, conversationID string) error {
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Delete(&model.Message{}).Error
	if err != nil {
		return fmt.Errorf("delete messages by conversation failed: %w", err)
	}
	return nil
}
