package retrieval

import (
	"context"

	"botgpt/internal/ai"
	"botgpt/internal/pkg/logger"
	"botgpt/internal/repository"
)

// Retriever turns a user query into ranked grounding passages for a
// conversation's linked documents.
type Retriever struct {
	embedder ai.Embedder
	links    *repository.LinkRepository
	chunks   *repository.ChunkRepository
	docs     *repository.DocumentRepository
	policy   ai.RetryPolicy
	log      *logger.Logger
}

func NewRetriever(
	embedder ai.Embedder,
	links *repository.LinkRepository,
	chunks *repository.ChunkRepository,
	docs *repository.DocumentRepository,
	policy ai.RetryPolicy,
	log *logger.Logger,
) *Retriever {
	return &Retriever{
		embedder: embedder,
		links:    links,
		chunks:   chunks,
		docs:     docs,
		policy:   policy,
		log:      log,
	}
}

// ContextForQuery returns the top passages for the query, or nil when the
// conversation has no grounding available. "No linked documents" and "linked
// documents with no chunks" both surface as nil without error; they are
// distinguishable only in the logs. Embedding failures are retried under the
// policy and escalate as service errors.
func (r *Retriever) ContextForQuery(ctx context.Context, conversationID, query string) ([]Passage, error) {
	documentIDs, err := r.links.ListDocumentIDsByConversationID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(documentIDs) == 0 {
		r.log.Warn("no documents linked to conversation", "conversation_id", conversationID)
		return nil, nil
	}

	chunks, err := r.chunks.ListByDocumentIDs(ctx, documentIDs)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		r.log.Warn("linked documents have no chunks", "conversation_id", conversationID, "documents", len(documentIDs))
		return nil, nil
	}

	var queryVec []float32
	err = ai.Retry(ctx, r.policy, r.log, "query embedding", func(ctx context.Context) error {
		v, embedErr := r.embedder.Embed(ctx, query)
		if embedErr != nil {
			return embedErr
		}
		queryVec = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	docs, err := r.docs.ListByIDs(ctx, documentIDs)
	if err != nil {
		return nil, err
	}
	sources := make(map[string]string, len(docs))
	for i := range docs {
		sources[docs[i].ID] = docs[i].StoragePath
	}

	passages := Rank(queryVec, chunks, sources, r.log)
	if len(passages) == 0 {
		r.log.Debug("retrieval produced no scorable passages", "conversation_id", conversationID)
		return nil, nil
	}
	return passages, nil
}
