package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// New dials the broker and declares the durable ingest queue up front, so
// publisher and worker never race on queue creation.
func New(ctx context.Context, url, ingestQueue string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq failed: %w", err)
	}

	declareCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	done := make(chan error, 1)
	go func() {
		_, declareErr := ch.QueueDeclare(
			ingestQueue,
			true,
			false,
			false,
			false,
			nil,
		)
		done <- declareErr
	}()

	select {
	case <-declareCtx.Done():
		_ = conn.Close()
		return nil, fmt.Errorf("declare ingest queue timeout: %w", declareCtx.Err())
	case err := <-done:
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("declare ingest queue failed: %w", err)
		}
		return conn, nil
	}
}
