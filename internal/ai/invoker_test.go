package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botgpt/internal/pkg/logger"
)

type scriptedClient struct {
	calls   int
	results []func() (*CompletionResult, error)
}

func (c *scriptedClient) Complete(ctx context.Context, cfg ChatConfig, messages []ChatMessage) (*CompletionResult, error) {
	step := c.results[c.calls]
	c.calls++
	return step()
}

func transientFailure() (*CompletionResult, error) {
	return nil, &ServiceError{Op: "chat completion", StatusCode: 503, Transient: true, Err: errors.New("upstream flaked")}
}

func fatalFailure() (*CompletionResult, error) {
	return nil, &ServiceError{Op: "chat completion", StatusCode: 401, Err: errors.New("bad api key")}
}

func success() (*CompletionResult, error) {
	return &CompletionResult{Content: `{"answer":"ok","citations":[]}`, Model: "test-model", TokenUsage: 42}, nil
}

func testMessages() []ChatMessage {
	return []ChatMessage{{Role: "user", Content: "hello"}}
}

func TestInvokeSucceedsFirstAttempt(t *testing.T) {
	client := &scriptedClient{results: []func() (*CompletionResult, error){success}}
	inv := NewInvoker(client, ChatConfig{Model: "test-model"}, ZeroDelayPolicy(3), logger.NewNop())

	result, err := inv.Invoke(context.Background(), testMessages())
	require.NoError(t, err)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, "test-model", result.Model)
	assert.Equal(t, 42, result.TokenUsage)
}

func TestInvokeRetriesTransientThenSucceeds(t *testing.T) {
	client := &scriptedClient{results: []func() (*CompletionResult, error){
		transientFailure,
		transientFailure,
		success,
	}}
	inv := NewInvoker(client, ChatConfig{}, ZeroDelayPolicy(3), logger.NewNop())

	result, err := inv.Invoke(context.Background(), testMessages())
	require.NoError(t, err)
	assert.Equal(t, 3, client.calls)
	assert.Equal(t, `{"answer":"ok","citations":[]}`, result.Content)
}

func TestInvokeExhaustsRetries(t *testing.T) {
	client := &scriptedClient{results: []func() (*CompletionResult, error){
		transientFailure,
		transientFailure,
		transientFailure,
	}}
	inv := NewInvoker(client, ChatConfig{}, ZeroDelayPolicy(3), logger.NewNop())

	_, err := inv.Invoke(context.Background(), testMessages())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, 3, client.calls)
}

func TestInvokeFatalFailureNoRetry(t *testing.T) {
	client := &scriptedClient{results: []func() (*CompletionResult, error){fatalFailure}}
	inv := NewInvoker(client, ChatConfig{}, ZeroDelayPolicy(3), logger.NewNop())

	_, err := inv.Invoke(context.Background(), testMessages())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, 1, client.calls, "fatal responses must not be retried")
}

func TestInvokeNilClient(t *testing.T) {
	inv := NewInvoker(nil, ChatConfig{}, ZeroDelayPolicy(3), logger.NewNop())

	_, err := inv.Invoke(context.Background(), testMessages())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestRetryCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Retry(ctx, DefaultRetryPolicy(3), logger.NewNop(), "test op", func(context.Context) error {
		attempts++
		return &ServiceError{Op: "test op", Transient: true, Err: errors.New("flake")}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts, "cancellation must stop the loop at the backoff")
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&ServiceError{Transient: true}))
	assert.False(t, IsTransient(&ServiceError{}))
	assert.False(t, IsTransient(errors.New("plain error")))
	assert.True(t, IsTransient(&ServiceError{StatusCode: 429, Transient: classifyStatus(429)}))
	assert.True(t, IsTransient(&ServiceError{StatusCode: 500, Transient: classifyStatus(500)}))
	assert.False(t, IsTransient(&ServiceError{StatusCode: 404, Transient: classifyStatus(404)}))
}
