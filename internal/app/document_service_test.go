package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botgpt/internal/ai"
	"botgpt/internal/model"
	"botgpt/internal/pkg/logger"
)

type captureQueue struct {
	jobs []model.IngestJob
}

func (q *captureQueue) Publish(_ context.Context, job model.IngestJob) error {
	q.jobs = append(q.jobs, job)
	return nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("embedding backend down")
}

func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedding backend down")
}

func TestCreateDocumentQueuesIngestJob(t *testing.T) {
	db := newTestDB(t)
	queue := &captureQueue{}
	svc := NewDocumentService(db, ai.NewFakeEmbedder(16), queue, logger.NewNop())

	doc, err := svc.Create(context.Background(), CreateDocumentInput{
		UserID:         "alice",
		ConversationID: "conv-1",
		Filename:       "manual.pdf",
		Text:           "the document body",
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusPending, doc.ProcessingStatus)
	assert.Equal(t, "s3://bot-docs/"+doc.ID, doc.StoragePath)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, doc.ID, queue.jobs[0].DocumentID)
	assert.Equal(t, "conv-1", queue.jobs[0].ConversationID)
	assert.Equal(t, "the document body", queue.jobs[0].Text)
}

func TestCreateDocumentRejectsEmptyText(t *testing.T) {
	db := newTestDB(t)
	svc := NewDocumentService(db, ai.NewFakeEmbedder(16), &captureQueue{}, logger.NewNop())

	_, err := svc.Create(context.Background(), CreateDocumentInput{UserID: "alice", Text: "   "})
	assert.ErrorIs(t, err, ErrDocumentEmpty)
}

func TestProcessChunksEmbedsAndMarksReady(t *testing.T) {
	db := newTestDB(t)
	svc := NewDocumentService(db, ai.NewFakeEmbedder(16), &captureQueue{}, logger.NewNop())

	require.NoError(t, db.Create(&model.Document{
		ID: "doc-1", UserID: "alice", Filename: "long.txt",
		StoragePath: "s3://bot-docs/doc-1", ProcessingStatus: model.StatusPending,
	}).Error)

	// Long enough to force several overlapping chunks.
	text := strings.Repeat("all work and no play makes for dull documents. ", 40)
	require.NoError(t, svc.Process(context.Background(), model.IngestJob{DocumentID: "doc-1", Text: text}))

	var doc model.Document
	require.NoError(t, db.First(&doc, "id = ?", "doc-1").Error)
	assert.Equal(t, model.StatusReady, doc.ProcessingStatus)

	var chunks []model.DocumentChunk
	require.NoError(t, db.Order("chunk_index").Find(&chunks, "document_id = ?", "doc-1").Error)
	require.Greater(t, len(chunks), 1)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
		vec, err := model.DecodeVector(ch.Embedding)
		require.NoError(t, err)
		assert.Len(t, vec, 16)
	}
}

func TestProcessLinksConversationWhenRequested(t *testing.T) {
	db := newTestDB(t)
	svc := NewDocumentService(db, ai.NewFakeEmbedder(16), &captureQueue{}, logger.NewNop())

	require.NoError(t, db.Create(&model.Document{
		ID: "doc-1", UserID: "alice", Filename: "f",
		StoragePath: "p", ProcessingStatus: model.StatusPending,
	}).Error)

	require.NoError(t, svc.Process(context.Background(), model.IngestJob{
		DocumentID: "doc-1", ConversationID: "conv-1", Text: "body text",
	}))

	var linkCount int64
	require.NoError(t, db.Model(&model.ConversationDocumentLink{}).
		Where("conversation_id = ? AND document_id = ?", "conv-1", "doc-1").
		Count(&linkCount).Error)
	assert.Equal(t, int64(1), linkCount)
}

func TestProcessMarksFailedOnEmbedderError(t *testing.T) {
	db := newTestDB(t)
	svc := NewDocumentService(db, failingEmbedder{}, &captureQueue{}, logger.NewNop())

	require.NoError(t, db.Create(&model.Document{
		ID: "doc-1", UserID: "alice", Filename: "f",
		StoragePath: "p", ProcessingStatus: model.StatusPending,
	}).Error)

	err := svc.Process(context.Background(), model.IngestJob{DocumentID: "doc-1", Text: "body text"})
	require.Error(t, err)

	var doc model.Document
	require.NoError(t, db.First(&doc, "id = ?", "doc-1").Error)
	assert.Equal(t, model.StatusFailed, doc.ProcessingStatus)
}

func TestProcessUnknownDocument(t *testing.T) {
	db := newTestDB(t)
	svc := NewDocumentService(db, ai.NewFakeEmbedder(16), &captureQueue{}, logger.NewNop())

	err := svc.Process(context.Background(), model.IngestJob{DocumentID: "missing", Text: "x"})
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestLinkSkipsDocumentsNotReady(t *testing.T) {
	db := newTestDB(t)
	svc := NewDocumentService(db, ai.NewFakeEmbedder(16), &captureQueue{}, logger.NewNop())

	require.NoError(t, db.Create(&model.Document{
		ID: "doc-pending", UserID: "alice", Filename: "f",
		StoragePath: "p", ProcessingStatus: model.StatusPending,
	}).Error)
	require.NoError(t, db.Create(&model.Document{
		ID: "doc-ready", UserID: "alice", Filename: "f",
		StoragePath: "p", ProcessingStatus: model.StatusReady,
	}).Error)

	require.NoError(t, svc.LinkToConversation(context.Background(), "conv-1", []string{"doc-pending", "doc-ready", "doc-missing"}))

	var links []model.ConversationDocumentLink
	require.NoError(t, db.Find(&links, "conversation_id = ?", "conv-1").Error)
	require.Len(t, links, 1)
	assert.Equal(t, "doc-ready", links[0].DocumentID)
}

func TestDeleteDocumentRemovesChunksAndLinks(t *testing.T) {
	db := newTestDB(t)
	svc := NewDocumentService(db, ai.NewFakeEmbedder(16), &captureQueue{}, logger.NewNop())

	require.NoError(t, db.Create(&model.Document{
		ID: "doc-1", UserID: "alice", Filename: "f",
		StoragePath: "p", ProcessingStatus: model.StatusPending,
	}).Error)
	require.NoError(t, svc.Process(context.Background(), model.IngestJob{
		DocumentID: "doc-1", ConversationID: "conv-1", Text: "body text",
	}))

	// Another user cannot delete it.
	assert.ErrorIs(t, svc.Delete(context.Background(), "mallory", "doc-1"), ErrDocumentNotFound)

	require.NoError(t, svc.Delete(context.Background(), "alice", "doc-1"))

	var docCount, chunkCount, linkCount int64
	require.NoError(t, db.Model(&model.Document{}).Where("id = ?", "doc-1").Count(&docCount).Error)
	require.NoError(t, db.Model(&model.DocumentChunk{}).Where("document_id = ?", "doc-1").Count(&chunkCount).Error)
	require.NoError(t, db.Model(&model.ConversationDocumentLink{}).Where("document_id = ?", "doc-1").Count(&linkCount).Error)
	assert.Equal(t, int64(0), docCount)
	assert.Equal(t, int64(0), chunkCount)
	assert.Equal(t, int64(0), linkCount)
}

func TestChunkTextOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 20) // 200 runes
	pieces := chunkText(text, 100, 20)

	require.Greater(t, len(pieces), 1)
	assert.Len(t, pieces[0], 100)
	// Consecutive pieces share the overlap region.
	assert.Equal(t, pieces[0][80:], pieces[1][:20])

	assert.Empty(t, chunkText("   \n\t  ", 100, 20))
	assert.Empty(t, chunkText("", 100, 20))
}
