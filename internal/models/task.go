package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus enumerates generation task lifecycle states. A task is created
// processing and moves exactly once to success or failed.
type TaskStatus string

const (
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusSuccess    TaskStatus = "success"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSuccess || s == TaskStatusFailed
}

// GenerationTask is one unit of generation work with its own credit
// reservation. Rows are created at reservation time and mutated only by the
// lifecycle manager and the poller; this subsystem never deletes them.
type GenerationTask struct {
	ID             uuid.UUID  `db:"id"`
	UserID         uuid.UUID  `db:"user_id"`
	TaskType       string     `db:"task_type"`
	ModelName      string     `db:"model_name"`
	Prompt         string     `db:"prompt"`
	Cost           int        `db:"cost"`
	Status         TaskStatus `db:"status"`
	ContentURL     string     `db:"content_url"`
	ThumbnailURL   string     `db:"thumbnail_url"`
	ExternalTaskID *string    `db:"external_task_id"`
	FailReason     *string    `db:"fail_reason"`
	RequestParams  JSONB      `db:"request_params"`
	ParentID       *uuid.UUID `db:"parent_id"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// NewSibling builds a zero-cost task row representing one extra artifact of
// a multi-result generation. Siblings share model/prompt/type with the paid
// task but never carry ledger entries.
func (t *GenerationTask) NewSibling(contentURL string) *GenerationTask {
	parent := t.ID
	return &GenerationTask{
		ID:            uuid.New(),
		UserID:        t.UserID,
		TaskType:      t.TaskType,
		ModelName:     t.ModelName,
		Prompt:        t.Prompt,
		Cost:          0,
		Status:        TaskStatusSuccess,
		ContentURL:    contentURL,
		ThumbnailURL:  contentURL,
		RequestParams: t.RequestParams,
		ParentID:      &parent,
	}
}
