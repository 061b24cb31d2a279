package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"media_gateway/internal/models"
)

// TaskRepository handles generation task database operations. Status
// transitions go through conditional updates guarded on status =
// 'processing', which is what makes finalize calls idempotent across
// concurrent processes.
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new generation task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `
	id, user_id, task_type, model_name, prompt, cost, status,
	content_url, thumbnail_url, external_task_id, fail_reason,
	request_params, parent_id, created_at, updated_at
`

// GetByID fetches a task by its identifier
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GenerationTask, error) {
	var task models.GenerationTask
	query := `SELECT ` + taskColumns + ` FROM generation_tasks WHERE id = $1`

	err := r.db.conn.GetContext(ctx, &task, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

// ListByUser returns a user's tasks, newest first
func (r *TaskRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.GenerationTask, error) {
	query := `SELECT ` + taskColumns + `
		FROM generation_tasks
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var tasks []*models.GenerationTask
	if err := r.db.conn.SelectContext(ctx, &tasks, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// MarkSuccess transitions a task from processing to success and records
// the primary content URL and thumbnail. Returns false when the task was
// already terminal, in which case nothing was changed.
func (r *TaskRepository) MarkSuccess(ctx context.Context, id uuid.UUID, contentURL, thumbnailURL string) (bool, error) {
	query := `
		UPDATE generation_tasks
		SET status = $2, content_url = $3, thumbnail_url = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5
	`

	res, err := r.db.conn.ExecContext(ctx, query, id,
		models.TaskStatusSuccess, contentURL, thumbnailURL, models.TaskStatusProcessing)
	if err != nil {
		return false, fmt.Errorf("failed to mark task success: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows == 1, nil
}

// SetExternalTaskID stores the provider-side task handle while the task
// stays in processing. Used for fire-and-forget submissions awaiting a
// later poll.
func (r *TaskRepository) SetExternalTaskID(ctx context.Context, id uuid.UUID, externalID string) error {
	query := `
		UPDATE generation_tasks
		SET external_task_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`

	_, err := r.db.conn.ExecContext(ctx, query, id, externalID, models.TaskStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to set external task id: %w", err)
	}
	return nil
}

// InsertSiblings creates the zero-cost task rows for every artifact beyond
// the first of a multi-result generation. Siblings carry no ledger entries.
func (r *TaskRepository) InsertSiblings(ctx context.Context, parent *models.GenerationTask, contentURLs []string) error {
	if len(contentURLs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, u := range contentURLs {
		sibling := parent.NewSibling(u)
		if err := insertTask(ctx, tx, sibling); err != nil {
			return fmt.Errorf("failed to insert sibling task: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit siblings: %w", err)
	}
	return nil
}

// insertTask writes one task row inside the given transaction.
func insertTask(ctx context.Context, tx execer, task *models.GenerationTask) error {
	query := `
		INSERT INTO generation_tasks (
			id, user_id, task_type, model_name, prompt, cost, status,
			content_url, thumbnail_url, external_task_id, fail_reason,
			request_params, parent_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := tx.ExecContext(ctx, query,
		task.ID, task.UserID, task.TaskType, task.ModelName, task.Prompt,
		task.Cost, task.Status, task.ContentURL, task.ThumbnailURL,
		task.ExternalTaskID, task.FailReason, task.RequestParams, task.ParentID)
	return err
}

// execer covers *sqlx.Tx and *sqlx.DB for shared insert helpers.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
