package app

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"botgpt/internal/ai"
	"botgpt/internal/model"
	"botgpt/internal/pkg/logger"
	"botgpt/internal/prompt"
	"botgpt/internal/repository"
	"botgpt/internal/retrieval"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrMessageEmpty         = errors.New("message content is empty")
	ErrConversationNotFound = errors.New("conversation not found")
)

// HistoryCache caches a conversation's message history between turns.
// Optional; a nil cache means every read hits the store.
type HistoryCache interface {
	GetHistory(ctx context.Context, conversationID string) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, conversationID string, messages []model.Message) error
	DeleteHistory(ctx context.Context, conversationID string) error
	MarkDirty(ctx context.Context, conversationID string) error
	IsDirty(ctx context.Context, conversationID string) (bool, error)
}

// Retriever supplies grounding passages for a RAG conversation's query.
type Retriever interface {
	ContextForQuery(ctx context.Context, conversationID, query string) ([]retrieval.Passage, error)
}

// ChatService orchestrates a conversation turn: retrieval, context packing,
// prompt assembly, completion, and the commit of the resulting messages.
type ChatService struct {
	db            *gorm.DB
	conversations *repository.ConversationRepository
	messages      *repository.MessageRepository
	retriever     Retriever
	invoker       *ai.Invoker
	packer        *prompt.Packer
	history       HistoryCache
	locks         conversationLocks
	log           *logger.Logger
}

func NewChatService(
	db *gorm.DB,
	retriever Retriever,
	invoker *ai.Invoker,
	packer *prompt.Packer,
	history HistoryCache,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		db:            db,
		conversations: repository.NewConversationRepository(db),
		messages:      repository.NewMessageRepository(db),
		retriever:     retriever,
		invoker:       invoker,
		packer:        packer,
		history:       history,
		log:           log,
	}
}

type StartConversationInput struct {
	UserID       string
	FirstMessage string
	Mode         model.ConversationMode
	DocumentIDs  []string
}

// StartConversation creates the user on first contact, the conversation, any
// eligible document links, and the first user message as one atomic unit.
// Either all of it commits or nothing does.
func (s *ChatService) StartConversation(ctx context.Context, input StartConversationInput) (*model.Conversation, *model.Message, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, nil, ErrInvalidInput
	}
	content := strings.TrimSpace(input.FirstMessage)
	if content == "" {
		return nil, nil, ErrMessageEmpty
	}
	if input.Mode != model.ModeOpenChat && input.Mode != model.ModeRagChat {
		return nil, nil, ErrInvalidInput
	}

	var (
		conversation *model.Conversation
		firstMessage *model.Message
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepository(tx)
		user, err := users.GetByID(ctx, input.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			user = &model.User{
				ID:       input.UserID,
				Username: input.UserID,
				Email:    input.UserID + "@botgpt.local",
			}
			if err := users.Create(ctx, user); err != nil {
				return err
			}
		}

		conversation = &model.Conversation{
			ID:     uuid.NewString(),
			UserID: input.UserID,
			Mode:   input.Mode,
		}
		if err := repository.NewConversationRepository(tx).Create(ctx, conversation); err != nil {
			return err
		}

		if input.Mode == model.ModeRagChat && len(input.DocumentIDs) > 0 {
			if _, err := linkEligibleDocuments(ctx, tx, s.log, conversation.ID, input.DocumentIDs); err != nil {
				return err
			}
		}

		firstMessage = &model.Message{
			ID:             uuid.NewString(),
			ConversationID: conversation.ID,
			SequenceNumber: 1,
			Role:           model.RoleUser,
			Content:        content,
		}
		return repository.NewMessageRepository(tx).Create(ctx, firstMessage)
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("conversation started",
		"conversation_id", conversation.ID, "user_id", input.UserID, "mode", input.Mode)
	return conversation, firstMessage, nil
}

// ContinueConversation appends the user's turn, gathers grounding when the
// conversation is in RAG mode, and produces the assistant's reply.
//
// The user message commits on its own before anything downstream runs, so a
// retrieval or completion failure never loses the user's turn. The assistant
// message and the conversation's token usage commit together afterwards.
func (s *ChatService) ContinueConversation(ctx context.Context, conversationID, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrMessageEmpty
	}

	conversation, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, ErrConversationNotFound
	}

	if _, err := s.appendMessage(ctx, conversationID, model.RoleUser, content, "", 0); err != nil {
		return nil, err
	}

	var passages []retrieval.Passage
	if conversation.Mode == model.ModeRagChat {
		passages, err = s.retriever.ContextForQuery(ctx, conversationID, content)
		if err != nil {
			return nil, err
		}
		if len(passages) == 0 {
			s.log.Warn("proceeding without grounding", "conversation_id", conversationID)
		} else {
			s.log.Info("grounding retrieved", "conversation_id", conversationID, "passages", len(passages))
		}
	}

	history, err := s.messages.ListByConversationID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	contextBlock := prompt.RenderContext(passages)
	packed := s.packer.Pack(history, contextBlock)
	turns := prompt.Assemble(s.packer.SystemPrompt, contextBlock, packed)

	result, err := s.invoker.Invoke(ctx, turns)
	if err != nil {
		return nil, err
	}

	assistant, err := s.appendMessage(ctx, conversationID, model.RoleAssistant, result.Content, result.Model, result.TokenUsage)
	if err != nil {
		return nil, err
	}

	s.log.Info("turn completed",
		"conversation_id", conversationID,
		"assistant_sequence", assistant.SequenceNumber,
		"model", result.Model,
		"token_usage", result.TokenUsage)
	return assistant, nil
}

// appendMessage assigns the next sequence number and commits the message,
// serialized per conversation. Assistant appends also fold the reported
// token usage into the conversation total within the same transaction.
func (s *ChatService) appendMessage(ctx context.Context, conversationID string, role model.MessageRole, content, llmModel string, tokenUsage int) (*model.Message, error) {
	mu := s.locks.acquire(conversationID)
	defer mu.Unlock()

	var message *model.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		messages := repository.NewMessageRepository(tx)
		maxSeq, err := messages.MaxSequenceNumber(ctx, conversationID)
		if err != nil {
			return err
		}
		message = &model.Message{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			SequenceNumber: maxSeq + 1,
			Role:           role,
			Content:        content,
			LLMModel:       llmModel,
		}
		if err := messages.Create(ctx, message); err != nil {
			return err
		}
		// Also bumps the conversation's last-updated timestamp.
		return repository.NewConversationRepository(tx).AddTokenUsage(ctx, conversationID, tokenUsage)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateHistory(ctx, conversationID)
	return message, nil
}

func (s *ChatService) invalidateHistory(ctx context.Context, conversationID string) {
	if s.history == nil {
		return
	}
	_ = s.history.MarkDirty(ctx, conversationID)
	_ = s.history.DeleteHistory(ctx, conversationID)
}

func (s *ChatService) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	return s.conversations.ListByUserID(ctx, userID)
}

func (s *ChatService) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	conversation, err := s.conversations.GetByIDWithMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, ErrConversationNotFound
	}
	return conversation, nil
}

// GetHistory returns the conversation's messages in sequence order, served
// from the cache when it is present and not marked dirty.
func (s *ChatService) GetHistory(ctx context.Context, conversationID string) ([]model.Message, error) {
	conversation, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, ErrConversationNotFound
	}

	if s.history != nil {
		dirty, err := s.history.IsDirty(ctx, conversationID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.history.GetHistory(ctx, conversationID); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	messages, err := s.messages.ListByConversationID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if s.history != nil {
		if dirty, dirtyErr := s.history.IsDirty(ctx, conversationID); dirtyErr == nil && !dirty {
			_ = s.history.SetHistory(ctx, conversationID, messages)
		}
	}
	return messages, nil
}

// DeleteConversation removes the conversation, its messages, and its
// document links, then garbage-collects any linked document no other
// conversation still references.
func (s *ChatService) DeleteConversation(ctx context.Context, conversationID string) error {
	conversation, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conversation == nil {
		return ErrConversationNotFound
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		links := repository.NewLinkRepository(tx)
		chunks := repository.NewChunkRepository(tx)
		documents := repository.NewDocumentRepository(tx)

		documentIDs, err := links.ListDocumentIDsByConversationID(ctx, conversationID)
		if err != nil {
			return err
		}
		if err := links.DeleteByConversationID(ctx, conversationID); err != nil {
			return err
		}
		for _, docID := range documentIDs {
			remaining, err := links.CountByDocumentID(ctx, docID)
			if err != nil {
				return err
			}
			if remaining > 0 {
				continue
			}
			if err := chunks.DeleteByDocumentID(ctx, docID); err != nil {
				return err
			}
			if err := documents.Delete(ctx, docID); err != nil {
				return err
			}
		}

		if err := repository.NewMessageRepository(tx).DeleteByConversationID(ctx, conversationID); err != nil {
			return err
		}
		return repository.NewConversationRepository(tx).Delete(ctx, conversationID)
	})
	if err != nil {
		return err
	}

	if s.history != nil {
		_ = s.history.DeleteHistory(ctx, conversationID)
	}
	s.log.Info("conversation deleted", "conversation_id", conversationID)
	return nil
}
