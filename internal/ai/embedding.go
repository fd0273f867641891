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

// DashScope and similar APIs often limit batch size.
const embeddingBatchLimit = 10

type EmbeddingConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Embedder is the embedding capability. It is constructed once at startup,
// selected by configuration, and passed by reference to whatever needs it;
// there is no lazily-initialized global.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAIEmbedder talks to an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	cfg        EmbeddingConfig
	httpClient *http.Client
}

func NewOpenAIEmbedder(cfg EmbeddingConfig) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("embedding input is empty")
	}
	vectors, err := e.request(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, &ServiceError{Op: "embedding", Transient: true, Err: fmt.Errorf("empty embedding in response")}
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in provider-sized batches, preserving input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var all [][]float32
	for i := 0; i < len(texts); i += embeddingBatchLimit {
		end := i + embeddingBatchLimit
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := e.request(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vectors...)
	}
	if len(all) != len(texts) {
		return nil, &ServiceError{Op: "embedding", Err: fmt.Errorf("embedding count mismatch: sent %d, got %d", len(texts), len(all))}
	}
	return all, nil
}

func (e *OpenAIEmbedder) request(ctx context.Context, input interface{}) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"model": e.cfg.Model,
		"input": input,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &ServiceError{Op: "embedding", Err: fmt.Errorf("marshal request: %w", err)}
	}

	url := strings.TrimRight(e.cfg.BaseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, &ServiceError{Op: "embedding", Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &ServiceError{Op: "embedding", Transient: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceError{Op: "embedding", Transient: true, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode >= 300 {
		return nil, &ServiceError{
			Op:         "embedding",
			StatusCode: resp.StatusCode,
			Transient:  classifyStatus(resp.StatusCode),
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(raw))),
		}
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ServiceError{Op: "embedding", Transient: true, Err: fmt.Errorf("parse response: %w", err)}
	}

	vectors := make([][]float32, len(parsed.Data))
	for i := range parsed.Data {
		vectors[i] = parsed.Data[i].Embedding
	}
	return vectors, nil
}
