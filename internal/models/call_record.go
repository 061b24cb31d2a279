package models

import (
	"time"

	"github.com/google/uuid"
)

// CallRecord is a single provider call audit row. Records are written
// asynchronously through the queue worker so a slow audit insert never sits
// on the generation path.
type CallRecord struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TaskID       uuid.UUID `db:"task_id" json:"task_id"`
	ProviderID   uuid.UUID `db:"provider_id" json:"provider_id"`
	ModelName    string    `db:"model_name" json:"model_name"`
	Endpoint     string    `db:"endpoint" json:"endpoint"`
	StatusCode   int       `db:"status_code" json:"status_code"`
	LatencyMS    int       `db:"latency_ms" json:"latency_ms"`
	ErrorMessage string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
