package ai

import (
	"context"
	"fmt"

	"botgpt/internal/pkg/logger"
)

// Invoker drives the chat-completion service under the bounded-retry policy.
// It is the only path through which turns reach the external model.
type Invoker struct {
	client CompletionClient
	cfg    ChatConfig
	policy RetryPolicy
	log    *logger.Logger
}

// NewInvoker accepts a nil client; invocation then fails with
// ErrServiceUnavailable instead of panicking, mirroring a client that could
// not be constructed at startup.
func NewInvoker(client CompletionClient, cfg ChatConfig, policy RetryPolicy, log *logger.Logger) *Invoker {
	return &Invoker{client: client, cfg: cfg, policy: policy, log: log}
}

func (i *Invoker) Invoke(ctx context.Context, messages []ChatMessage) (*CompletionResult, error) {
	if i.client == nil {
		return nil, fmt.Errorf("%v: %w", ErrClientNotInitialized, ErrServiceUnavailable)
	}

	var result *CompletionResult
	err := Retry(ctx, i.policy, i.log, "chat completion", func(ctx context.Context) error {
		r, err := i.client.Complete(ctx, i.cfg, messages)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
