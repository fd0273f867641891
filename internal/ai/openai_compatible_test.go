package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, ChatConfig) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, ChatConfig{BaseURL: server.URL, APIKey: "test-key", Model: "test-model"}
}

func TestCompleteParsesResponse(t *testing.T) {
	_, cfg := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])
		assert.Equal(t, float64(0), req["temperature"])
		assert.Equal(t, map[string]interface{}{"type": "json_object"}, req["response_format"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"model": "served-model",
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": `{"answer":"hi","citations":[]}`}},
			},
			"usage": map[string]int{"total_tokens": 17},
		})
	})

	client := NewOpenAICompatibleClient()
	result, err := client.Complete(context.Background(), cfg, []ChatMessage{{Role: "user", Content: "hello"}})
	require.NoError(t, err)
	assert.Equal(t, `{"answer":"hi","citations":[]}`, result.Content)
	assert.Equal(t, "served-model", result.Model)
	assert.Equal(t, 17, result.TokenUsage)
}

func TestCompleteServerErrorIsTransient(t *testing.T) {
	_, cfg := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	})

	client := NewOpenAICompatibleClient()
	_, err := client.Complete(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestCompleteRateLimitIsTransient(t *testing.T) {
	_, cfg := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	client := NewOpenAICompatibleClient()
	_, err := client.Complete(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestCompleteClientErrorIsFatal(t *testing.T) {
	_, cfg := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	})

	client := NewOpenAICompatibleClient()
	_, err := client.Complete(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.False(t, IsTransient(err))
}

func TestCompleteEmptyChoicesIsTransient(t *testing.T) {
	_, cfg := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	})

	client := NewOpenAICompatibleClient()
	_, err := client.Complete(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestCompleteBlankContentIsTransient(t *testing.T) {
	_, cfg := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "   "}},
			},
		})
	})

	client := NewOpenAICompatibleClient()
	_, err := client.Complete(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestCompleteFallsBackToConfiguredModelName(t *testing.T) {
	_, cfg := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "reply"}},
			},
		})
	})

	client := NewOpenAICompatibleClient()
	result, err := client.Complete(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "test-model", result.Model)
}
