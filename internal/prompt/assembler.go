package prompt

import (
	"fmt"
	"strings"

	"botgpt/internal/ai"
	"botgpt/internal/model"
	"botgpt/internal/retrieval"
)

// DefaultSystemPrompt mandates the structured answer/citations object the
// external protocol requires. Renegotiating it means changing every consumer
// of the reply, so it stays fixed here.
const DefaultSystemPrompt = "You are BOT GPT, a helpful and concise enterprise conversational assistant. " +
	"Your goal is to answer user queries based on conversation history and provided documents. " +
	"You must return your response in valid JSON format with the following structure: " +
	`{"answer": "your answer here", "citations": [{"source": "source url or name", "snippet": "relevant text snippet"}]}. ` +
	"Be professional and brief."

// RenderContext serializes retrieved passages for inclusion in the system
// prompt, one "Source/Content" stanza per passage in ranked order. Empty
// input renders to the empty string.
func RenderContext(passages []retrieval.Passage) string {
	if len(passages) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range passages {
		fmt.Fprintf(&b, "Source: %s\nContent: %s\n\n", p.Source, p.Content)
	}
	return b.String()
}

// Assemble produces the ordered role/content turns for a completion call:
// the system instruction first (prefixed with the delimited context block
// when grounding is present), then the packed history in chronological
// order with lowercased roles.
func Assemble(systemPrompt, contextBlock string, history []model.Message) []ai.ChatMessage {
	system := systemPrompt
	if contextBlock != "" {
		system = fmt.Sprintf("RAG CONTEXT:\n---\n%s\n---\n\n%s", contextBlock, systemPrompt)
	}

	messages := make([]ai.ChatMessage, 0, len(history)+1)
	messages = append(messages, ai.ChatMessage{Role: "system", Content: system})
	for _, m := range history {
		messages = append(messages, ai.ChatMessage{
			Role:    strings.ToLower(string(m.Role)),
			Content: m.Content,
		})
	}
	return messages
}
