package retrieval

import (
	"math"
	"sort"

	"botgpt/internal/model"
	"botgpt/internal/pkg/logger"
)

// TopK is how many passages ground a single turn.
const TopK = 5

// Passage is one retrieved grounding passage. It lives only for the duration
// of a turn and is never persisted.
type Passage struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 for
// mismatched or degenerate vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank scores every chunk against the query vector and returns the top
// passages, strictly descending by score. Equal scores keep the chunks'
// original order (stable sort), so repeated calls over the same corpus are
// deterministic. A chunk whose stored vector fails to decode is skipped with
// a warning; one corrupt chunk never fails the turn. sources maps document
// IDs to the source label stamped on passages.
func Rank(query []float32, chunks []model.DocumentChunk, sources map[string]string, log *logger.Logger) []Passage {
	scored := make([]Passage, 0, len(chunks))
	for i := range chunks {
		vec, err := model.DecodeVector(chunks[i].Embedding)
		if err != nil {
			log.Warn("skipping chunk with undecodable embedding",
				"chunk_id", chunks[i].ID, "document_id", chunks[i].DocumentID, "error", err)
			continue
		}
		source, ok := sources[chunks[i].DocumentID]
		if !ok {
			source = "Unknown Source"
		}
		scored = append(scored, Passage{
			Content: chunks[i].Content,
			Source:  source,
			Score:   CosineSimilarity(query, vec),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > TopK {
		scored = scored[:TopK]
	}
	return scored
}
