package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// CompletionResult is a successful completion: non-empty content, the model
// that produced it, and the total tokens billed (0 when the provider omits
// usage metadata).
type CompletionResult struct {
	Content    string
	Model      string
	TokenUsage int
}

// CompletionClient is the chat-completion capability the invoker drives.
// Implementations must return *ServiceError for classified failures.
type CompletionClient interface {
	Complete(ctx context.Context, cfg ChatConfig, messages []ChatMessage) (*CompletionResult, error)
}

type OpenAICompatibleClient struct {
	httpClient *http.Client
}

func NewOpenAICompatibleClient() *OpenAICompatibleClient {
	return &OpenAICompatibleClient{
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

// Complete calls the chat-completions endpoint with temperature 0 and a
// structured JSON response format, the contract downstream consumers of the
// answer/citations object rely on.
func (c *OpenAICompatibleClient) Complete(ctx context.Context, cfg ChatConfig, messages []ChatMessage) (*CompletionResult, error) {
	reqBody := map[string]interface{}{
		"model":           cfg.Model,
		"messages":        messages,
		"temperature":     0,
		"response_format": map[string]string{"type": "json_object"},
		"stream":          false,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &ServiceError{Op: "chat completion", Err: fmt.Errorf("marshal request: %w", err)}
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, &ServiceError{Op: "chat completion", Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ServiceError{Op: "chat completion", Transient: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceError{Op: "chat completion", Transient: true, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode >= 300 {
		return nil, &ServiceError{
			Op:         "chat completion",
			StatusCode: resp.StatusCode,
			Transient:  classifyStatus(resp.StatusCode),
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(raw))),
		}
	}

	var parsed struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ServiceError{Op: "chat completion", Transient: true, Err: fmt.Errorf("parse response: %w", err)}
	}

	// An empty choice list in a 200 response is a failed call, not a valid
	// empty reply. Same for blank content.
	if len(parsed.Choices) == 0 {
		return nil, &ServiceError{Op: "chat completion", Transient: true, Err: fmt.Errorf("empty choice list in response")}
	}
	content := parsed.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return nil, &ServiceError{Op: "chat completion", Transient: true, Err: fmt.Errorf("blank completion content")}
	}

	modelName := parsed.Model
	if modelName == "" {
		modelName = cfg.Model
	}

	return &CompletionResult{
		Content:    content,
		Model:      modelName,
		TokenUsage: parsed.Usage.TotalTokens,
	}, nil
}
