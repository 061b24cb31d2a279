package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"media_gateway/internal/models"
	"media_gateway/internal/queue"
)

// CallRecordWorker persists provider call audit rows asynchronously so a
// slow insert never sits on the generation path.
type CallRecordWorker struct {
	queue       queue.Queue
	dlq         queue.DeadLetterQueue
	db          *DB
	config      *queue.Config
	logger      zerolog.Logger
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewCallRecordWorker creates a new call record worker
func NewCallRecordWorker(q queue.Queue, dlq queue.DeadLetterQueue, db *DB, config *queue.Config, logger zerolog.Logger) *CallRecordWorker {
	if config == nil {
		config = queue.DefaultConfig(queue.CallRecordQueueName)
	}

	return &CallRecordWorker{
		queue:       q,
		dlq:         dlq,
		db:          db,
		config:      config,
		logger:      logger.With().Str("component", "call-record-worker").Logger(),
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start starts the worker goroutine
func (w *CallRecordWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop gracefully stops the worker
func (w *CallRecordWorker) Stop() error {
	close(w.stopChan)
	<-w.stoppedChan
	return nil
}

// Enqueue adds a call record to the queue
func (w *CallRecordWorker) Enqueue(ctx context.Context, record *models.CallRecord) error {
	return w.queue.Enqueue(ctx, record)
}

// run is the main worker loop
func (w *CallRecordWorker) run(ctx context.Context) {
	defer close(w.stoppedChan)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info().Msg("call record worker stopping")
			return
		case <-ctx.Done():
			w.logger.Info().Msg("call record worker context cancelled")
			return
		default:
			w.processBatch(ctx)
		}
	}
}

// processBatch drains up to one batch from the queue and persists it
func (w *CallRecordWorker) processBatch(ctx context.Context) {
	items, err := w.queue.DequeueWithTimeout(ctx, w.config.BatchSize, w.config.BatchTimeout)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to dequeue call records")
		time.Sleep(1 * time.Second) // Back off on error
		return
	}

	if len(items) == 0 {
		return
	}

	records := make([]*models.CallRecord, 0, len(items))
	for _, item := range items {
		var record models.CallRecord
		if err := w.unmarshalItem(item, &record); err != nil {
			w.logger.Error().Err(err).Msg("failed to unmarshal call record")
			continue
		}
		records = append(records, &record)
	}

	if len(records) == 0 {
		return
	}

	if err := w.insertBatch(ctx, records); err != nil {
		w.logger.Error().Err(err).Msg("batch insert failed, falling back to individual inserts")
		for _, record := range records {
			if err := w.processItem(ctx, record); err != nil {
				w.logger.Error().Err(err).Str("task_id", record.TaskID.String()).Msg("failed to persist call record")
			}
		}
	}
}

// insertBatch inserts the records in a single transaction
func (w *CallRecordWorker) insertBatch(ctx context.Context, records []*models.CallRecord) error {
	repo := w.db.NewCallRecordRepository()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, record := range records {
		if err := repo.create(ctx, tx, record); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// processItem persists a single record with retries, parking it in the
// dead letter queue when retries are exhausted
func (w *CallRecordWorker) processItem(ctx context.Context, record *models.CallRecord) error {
	repo := w.db.NewCallRecordRepository()

	var lastErr error
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := w.config.RetryBackoff * time.Duration(1<<uint(attempt-1))
			time.Sleep(backoff)
		}

		if err := repo.Create(ctx, record); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	if w.dlq != nil {
		if err := w.dlq.Add(ctx, record, lastErr); err != nil {
			w.logger.Error().Err(err).Msg("failed to add call record to dead letter queue")
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// unmarshalItem converts a queue item back into a CallRecord
func (w *CallRecordWorker) unmarshalItem(item interface{}, record *models.CallRecord) error {
	switch v := item.(type) {
	case *models.CallRecord:
		*record = *v
		return nil
	case models.CallRecord:
		*record = v
		return nil
	case []byte:
		return json.Unmarshal(v, record)
	case json.RawMessage:
		return json.Unmarshal(v, record)
	default:
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("unsupported queue item type %T", item)
		}
		return json.Unmarshal(data, record)
	}
}
