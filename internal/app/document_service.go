package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"botgpt/internal/ai"
	"botgpt/internal/model"
	"botgpt/internal/pkg/logger"
	"botgpt/internal/repository"
)

const (
	chunkSize    = 512
	chunkOverlap = 50
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrDocumentEmpty    = errors.New("document has no extractable text")
)

// IngestQueue hands extracted document text to the background ingest worker.
type IngestQueue interface {
	Publish(ctx context.Context, job model.IngestJob) error
}

// DocumentService owns the document lifecycle: creation, background
// chunk-and-embed processing, linking to conversations, and deletion.
type DocumentService struct {
	db        *gorm.DB
	documents *repository.DocumentRepository
	chunks    *repository.ChunkRepository
	links     *repository.LinkRepository
	embedder  ai.Embedder
	queue     IngestQueue
	log       *logger.Logger
}

func NewDocumentService(db *gorm.DB, embedder ai.Embedder, queue IngestQueue, log *logger.Logger) *DocumentService {
	return &DocumentService{
		db:        db,
		documents: repository.NewDocumentRepository(db),
		chunks:    repository.NewChunkRepository(db),
		links:     repository.NewLinkRepository(db),
		embedder:  embedder,
		queue:     queue,
		log:       log,
	}
}

type CreateDocumentInput struct {
	UserID         string
	ConversationID string // optional: link once READY
	Filename       string
	StoragePath    string // defaults to an object-store style path
	Text           string // already-extracted plain text
}

// Create registers a PENDING document and queues it for background
// processing. The caller gets the document back immediately; chunking and
// embedding happen on the worker.
func (s *DocumentService) Create(ctx context.Context, input CreateDocumentInput) (*model.Document, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(input.Text) == "" {
		return nil, ErrDocumentEmpty
	}
	filename := strings.TrimSpace(input.Filename)
	if filename == "" {
		filename = "Untitled"
	}

	doc := &model.Document{
		ID:               uuid.NewString(),
		UserID:           input.UserID,
		Filename:         filename,
		StoragePath:      input.StoragePath,
		ProcessingStatus: model.StatusPending,
	}
	if doc.StoragePath == "" {
		doc.StoragePath = "s3://bot-docs/" + doc.ID
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}

	job := model.IngestJob{
		DocumentID:     doc.ID,
		ConversationID: input.ConversationID,
		Text:           input.Text,
	}
	if err := s.queue.Publish(ctx, job); err != nil {
		// The document stays PENDING; a requeue can pick it up later.
		s.log.Error("enqueue ingest job failed", "document_id", doc.ID, "error", err)
		return nil, err
	}

	s.log.Info("document queued for ingestion", "document_id", doc.ID, "filename", filename)
	return doc, nil
}

// Process runs one ingest job to completion: CHUNKING, chunk the text, embed
// every chunk, persist chunks with their original order, then READY. Any
// failure marks the document FAILED and returns the error.
func (s *DocumentService) Process(ctx context.Context, job model.IngestJob) error {
	doc, err := s.documents.GetByID(ctx, job.DocumentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}

	if err := s.documents.UpdateStatus(ctx, doc.ID, model.StatusChunking); err != nil {
		return err
	}

	if err := s.chunkAndEmbed(ctx, doc.ID, job.Text); err != nil {
		if statusErr := s.documents.UpdateStatus(ctx, doc.ID, model.StatusFailed); statusErr != nil {
			s.log.Error("mark document failed", "document_id", doc.ID, "error", statusErr)
		}
		return err
	}

	if err := s.documents.UpdateStatus(ctx, doc.ID, model.StatusReady); err != nil {
		return err
	}
	s.log.Info("document ready", "document_id", doc.ID)

	if job.ConversationID != "" {
		if err := s.LinkToConversation(ctx, job.ConversationID, []string{doc.ID}); err != nil {
			return err
		}
	}
	return nil
}

func (s *DocumentService) chunkAndEmbed(ctx context.Context, documentID, text string) error {
	pieces := chunkText(text, chunkSize, chunkOverlap)
	if len(pieces) == 0 {
		return ErrDocumentEmpty
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, pieces)
	if err != nil {
		return err
	}

	chunks := make([]model.DocumentChunk, len(pieces))
	for i := range pieces {
		encoded, err := model.EncodeVector(embeddings[i])
		if err != nil {
			return fmt.Errorf("encode chunk embedding: %w", err)
		}
		chunks[i] = model.DocumentChunk{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Content:    pieces[i],
			Embedding:  encoded,
			ChunkIndex: i,
		}
	}
	return s.chunks.CreateBatch(ctx, chunks)
}

// LinkToConversation links READY documents to the conversation. Documents
// that are missing or not READY are skipped with a diagnostic; the eligible
// links commit together.
func (s *DocumentService) LinkToConversation(ctx context.Context, conversationID string, documentIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		linked, err := linkEligibleDocuments(ctx, tx, s.log, conversationID, documentIDs)
		if err != nil {
			return err
		}
		if len(linked) > 0 {
			s.log.Info("documents linked", "conversation_id", conversationID, "documents", linked)
		}
		return nil
	})
}

func (s *DocumentService) ListForConversation(ctx context.Context, conversationID string) ([]model.Document, error) {
	documentIDs, err := s.links.ListDocumentIDsByConversationID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(documentIDs) == 0 {
		return []model.Document{}, nil
	}
	return s.documents.ListByIDs(ctx, documentIDs)
}

func (s *DocumentService) ListByUser(ctx context.Context, userID string) ([]model.Document, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	return s.documents.ListByUserID(ctx, userID)
}

// Delete removes a document together with its chunks and links.
func (s *DocumentService) Delete(ctx context.Context, userID, documentID string) error {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc == nil || doc.UserID != userID {
		return ErrDocumentNotFound
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewLinkRepository(tx).DeleteByDocumentID(ctx, documentID); err != nil {
			return err
		}
		if err := repository.NewChunkRepository(tx).DeleteByDocumentID(ctx, documentID); err != nil {
			return err
		}
		return repository.NewDocumentRepository(tx).Delete(ctx, documentID)
	})
}

// linkEligibleDocuments creates links for documents that exist and are READY,
// skipping the rest with a warning. Shared between conversation start and the
// standalone link operation; the caller supplies the transaction.
func linkEligibleDocuments(ctx context.Context, tx *gorm.DB, log *logger.Logger, conversationID string, documentIDs []string) ([]string, error) {
	documents := repository.NewDocumentRepository(tx)
	links := repository.NewLinkRepository(tx)

	var linked []string
	for _, docID := range documentIDs {
		doc, err := documents.GetByID(ctx, docID)
		if err != nil {
			return nil, err
		}
		if doc == nil || doc.ProcessingStatus != model.StatusReady {
			log.Warn("document not found or not ready, skipping link",
				"document_id", docID, "conversation_id", conversationID)
			continue
		}
		link := &model.ConversationDocumentLink{
			ConversationID: conversationID,
			DocumentID:     docID,
		}
		if err := links.Create(ctx, link); err != nil {
			return nil, err
		}
		linked = append(linked, docID)
	}
	return linked, nil
}

// chunkText splits text into fixed-size pieces with overlap, preserving
// original order and dropping whitespace-only pieces. Rune-based so
// multi-byte text never splits mid-character.
func chunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = chunkSize
	}
	if overlap >= size {
		overlap = size / 2
	}

	var pieces []string
	runes := []rune(text)
	for i := 0; i < len(runes); {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		piece := string(runes[i:end])
		if strings.TrimSpace(piece) != "" {
			pieces = append(pieces, piece)
		}
		if end >= len(runes) {
			break
		}
		i += size - overlap
	}
	return pieces
}
