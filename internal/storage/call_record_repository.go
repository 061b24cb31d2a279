package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"media_gateway/internal/models"
)

// CallRecordRepository handles provider call audit rows
type CallRecordRepository struct {
	db *DB
}

// NewCallRecordRepository creates a new call record repository
func NewCallRecordRepository(db *DB) *CallRecordRepository {
	return &CallRecordRepository{db: db}
}

// Create inserts a single call record
func (r *CallRecordRepository) Create(ctx context.Context, record *models.CallRecord) error {
	return r.create(ctx, r.db.conn, record)
}

func (r *CallRecordRepository) create(ctx context.Context, tx execer, record *models.CallRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	query := `
		INSERT INTO call_records (id, task_id, provider_id, model_name, endpoint,
		                          status_code, latency_ms, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := tx.ExecContext(ctx, query,
		record.ID, record.TaskID, record.ProviderID, record.ModelName,
		record.Endpoint, record.StatusCode, record.LatencyMS, record.ErrorMessage)
	if err != nil {
		return fmt.Errorf("failed to insert call record: %w", err)
	}
	return nil
}

// ListByTask returns every call made for a task, oldest first
func (r *CallRecordRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.CallRecord, error) {
	query := `
		SELECT id, task_id, provider_id, model_name, endpoint,
		       status_code, latency_ms, error_message, created_at
		FROM call_records
		WHERE task_id = $1
		ORDER BY created_at
	`

	var records []*models.CallRecord
	if err := r.db.conn.SelectContext(ctx, &records, query, taskID); err != nil {
		return nil, fmt.Errorf("failed to list call records: %w", err)
	}
	return records, nil
}
