package prompt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botgpt/internal/model"
	"botgpt/internal/retrieval"
)

func TestRenderContextEmpty(t *testing.T) {
	assert.Equal(t, "", RenderContext(nil))
	assert.Equal(t, "", RenderContext([]retrieval.Passage{}))
}

func TestRenderContextFormat(t *testing.T) {
	passages := []retrieval.Passage{
		{Source: "handbook.pdf", Content: "first passage"},
		{Source: "https://example.com/faq", Content: "second passage"},
	}

	got := RenderContext(passages)
	want := "Source: handbook.pdf\nContent: first passage\n\n" +
		"Source: https://example.com/faq\nContent: second passage\n\n"
	assert.Equal(t, want, got)
}

func TestAssembleWithoutContext(t *testing.T) {
	history := []model.Message{
		{Role: model.RoleUser, Content: "hello"},
		{Role: model.RoleAssistant, Content: "hi there"},
	}

	turns := Assemble(DefaultSystemPrompt, "", history)
	require.Len(t, turns, 3)

	assert.Equal(t, "system", turns[0].Role)
	assert.Equal(t, DefaultSystemPrompt, turns[0].Content)
	assert.Equal(t, "user", turns[1].Role)
	assert.Equal(t, "hello", turns[1].Content)
	assert.Equal(t, "assistant", turns[2].Role)
	assert.Equal(t, "hi there", turns[2].Content)
}

func TestAssembleWrapsContextIntoSystemTurn(t *testing.T) {
	contextBlock := RenderContext([]retrieval.Passage{
		{Source: "doc.pdf", Content: "grounding text"},
	})
	history := []model.Message{
		{Role: model.RoleUser, Content: "what does the doc say?"},
	}

	turns := Assemble(DefaultSystemPrompt, contextBlock, history)
	require.Len(t, turns, 2)

	system := turns[0].Content
	assert.True(t, strings.HasPrefix(system, "RAG CONTEXT:\n---\n"), "context block must lead the system turn")
	assert.Contains(t, system, "Source: doc.pdf")
	assert.Contains(t, system, "grounding text")
	assert.True(t, strings.HasSuffix(system, DefaultSystemPrompt), "instruction must follow the context block")
}

func TestDefaultSystemPromptDemandsValidJSONContract(t *testing.T) {
	start := strings.Index(DefaultSystemPrompt, "{")
	end := strings.LastIndex(DefaultSystemPrompt, "}")
	require.True(t, start >= 0 && end > start, "prompt must embed the example object")

	var contract struct {
		Answer    string `json:"answer"`
		Citations []struct {
			Source  string `json:"source"`
			Snippet string `json:"snippet"`
		} `json:"citations"`
	}
	err := json.Unmarshal([]byte(DefaultSystemPrompt[start:end+1]), &contract)
	require.NoError(t, err, "embedded example must be valid JSON")
	assert.NotEmpty(t, contract.Answer)
	assert.NotEmpty(t, contract.Citations)
}
