package prompt

import (
	"botgpt/internal/model"
	"botgpt/internal/pkg/logger"
)

// Packer selects the suffix of a conversation's history that fits the token
// budget after the system prompt and any retrieval context are reserved.
type Packer struct {
	SystemPrompt string
	Limit        int
	Log          *logger.Logger
}

func NewPacker(systemPrompt string, budget Budget, log *logger.Logger) *Packer {
	return &Packer{SystemPrompt: systemPrompt, Limit: budget.ContextLimit(), Log: log}
}

// Pack walks the history newest to oldest, keeping messages while they fit.
// The first message that would overflow ends the walk: it and everything
// older are discarded, even if a smaller older message might still have fit.
// The result is returned in original chronological order. If even the most
// recent message overflows on its own, the result is empty and the caller
// proceeds with the base prompt alone.
func (p *Packer) Pack(history []model.Message, contextBlock string) []model.Message {
	base := EstimateTokens(p.SystemPrompt) + EstimateTokens(contextBlock)

	running := base
	kept := make([]model.Message, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		cost := EstimateTokens(history[i].Content)
		if running+cost > p.Limit {
			p.Log.Warn("context window full, discarding older history",
				"limit", p.Limit,
				"boundary_sequence", history[i].SequenceNumber,
				"discarded", i+1)
			break
		}
		running += cost
		kept = append(kept, history[i])
	}

	// kept was collected newest-first; restore chronological order.
	for l, r := 0, len(kept)-1; l < r; l, r = l+1, r-1 {
		kept[l], kept[r] = kept[r], kept[l]
	}
	return kept
}
