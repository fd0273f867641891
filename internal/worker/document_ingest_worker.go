package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"botgpt/internal/app"
	"botgpt/internal/model"
	"botgpt/internal/pkg/logger"
)

// DocumentIngestWorker consumes queued ingest jobs and runs the chunk-embed
// pipeline off the request path. A failed job is nacked without requeue; the
// document is already marked FAILED by the service.
type DocumentIngestWorker struct {
	conn      *amqp.Connection
	documents *app.DocumentService
	queueName string
	log       *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDocumentIngestWorker(conn *amqp.Connection, documents *app.DocumentService, queueName string, log *logger.Logger) *DocumentIngestWorker {
	return &DocumentIngestWorker{
		conn:      conn,
		documents: documents,
		queueName: queueName,
		log:       log,
	}
}

func (w *DocumentIngestWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var job model.IngestJob
				if err := json.Unmarshal(d.Body, &job); err != nil {
					w.log.Error("decode ingest job failed", "error", err)
					_ = d.Nack(false, false)
					continue
				}

				if err := w.documents.Process(workerCtx, job); err != nil {
					w.log.Error("process document failed", "document_id", job.DocumentID, "error", err)
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *DocumentIngestWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
