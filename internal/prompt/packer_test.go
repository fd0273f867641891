package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botgpt/internal/model"
	"botgpt/internal/pkg/logger"
)

// msgOfCost builds a message whose estimated token cost is exactly cost.
func msgOfCost(seq int, role model.MessageRole, cost int) model.Message {
	return model.Message{
		SequenceNumber: seq,
		Role:           role,
		Content:        strings.Repeat("a", cost*4),
	}
}

func TestBudgetContextLimit(t *testing.T) {
	b := Budget{MaxModelTokens: 32768, SafetyThreshold: 0.8}
	assert.Equal(t, 26214, b.ContextLimit())
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 0, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("x", 103)))
}

func TestPackKeepsEverythingThatFits(t *testing.T) {
	p := &Packer{SystemPrompt: strings.Repeat("s", 40), Limit: 100, Log: logger.NewNop()}

	history := []model.Message{
		msgOfCost(1, model.RoleUser, 20),
		msgOfCost(2, model.RoleAssistant, 30),
		msgOfCost(3, model.RoleUser, 25),
	}

	packed := p.Pack(history, "")
	require.Len(t, packed, 3)
	for i, m := range packed {
		assert.Equal(t, i+1, m.SequenceNumber, "order must stay chronological")
	}
}

func TestPackDiscardsAtFirstOverflow(t *testing.T) {
	// Base is 10 (system) + 10 (context) = 20. Walking newest to oldest the
	// cost-50 message fits at 70, then cost-40 would hit 110 and is dropped
	// along with everything older.
	p := &Packer{SystemPrompt: strings.Repeat("s", 40), Limit: 100, Log: logger.NewNop()}
	contextBlock := strings.Repeat("c", 40)

	history := []model.Message{
		msgOfCost(1, model.RoleUser, 30),
		msgOfCost(2, model.RoleAssistant, 40),
		msgOfCost(3, model.RoleUser, 50),
	}

	packed := p.Pack(history, contextBlock)
	require.Len(t, packed, 1)
	assert.Equal(t, 3, packed[0].SequenceNumber)
}

func TestPackStopsAtBoundaryEvenWhenOlderWouldFit(t *testing.T) {
	p := &Packer{SystemPrompt: "", Limit: 100, Log: logger.NewNop()}

	// The cost-60 message overflows; the cost-5 message before it would fit
	// on its own but is discarded with everything older than the boundary.
	history := []model.Message{
		msgOfCost(1, model.RoleUser, 5),
		msgOfCost(2, model.RoleAssistant, 60),
		msgOfCost(3, model.RoleUser, 50),
	}

	packed := p.Pack(history, "")
	require.Len(t, packed, 1)
	assert.Equal(t, 3, packed[0].SequenceNumber)
}

func TestPackEmptyWhenNewestMessageOverflows(t *testing.T) {
	p := &Packer{SystemPrompt: strings.Repeat("s", 200), Limit: 60, Log: logger.NewNop()}

	history := []model.Message{
		msgOfCost(1, model.RoleUser, 50),
	}

	packed := p.Pack(history, "")
	assert.Empty(t, packed)
}

func TestPackEmptyHistory(t *testing.T) {
	p := &Packer{SystemPrompt: "sys", Limit: 100, Log: logger.NewNop()}
	assert.Empty(t, p.Pack(nil, ""))
}

func TestPackIdempotent(t *testing.T) {
	p := &Packer{SystemPrompt: strings.Repeat("s", 40), Limit: 120, Log: logger.NewNop()}
	contextBlock := strings.Repeat("c", 40)
	history := []model.Message{
		msgOfCost(1, model.RoleUser, 30),
		msgOfCost(2, model.RoleAssistant, 40),
		msgOfCost(3, model.RoleUser, 50),
	}

	packed := p.Pack(history, contextBlock)
	require.NotEmpty(t, packed)

	// A suffix that already fits the budget survives a second pass intact.
	repacked := p.Pack(packed, contextBlock)
	assert.Equal(t, packed, repacked)
}

func TestPackDeterministic(t *testing.T) {
	p := &Packer{SystemPrompt: strings.Repeat("s", 40), Limit: 120, Log: logger.NewNop()}
	history := []model.Message{
		msgOfCost(1, model.RoleUser, 30),
		msgOfCost(2, model.RoleAssistant, 40),
		msgOfCost(3, model.RoleUser, 50),
	}

	first := p.Pack(history, "")
	second := p.Pack(history, "")
	assert.Equal(t, first, second)
}
