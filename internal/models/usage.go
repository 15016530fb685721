package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord is an append-only log entry per completed conversion, used
// for quota counting and billing reporting. Never mutated after creation.
type UsageRecord struct {
	RecordID     uuid.UUID  `json:"record_id" db:"record_id"`
	UserID       uuid.UUID  `json:"user_id" db:"user_id" validate:"required"`
	JobID        *uuid.UUID `json:"job_id" db:"job_id"`
	InputFormat  string     `json:"input_format" db:"input_format"`
	OutputFormat string     `json:"output_format" db:"output_format"`
	InputBytes   int64      `json:"input_bytes" db:"input_bytes"`
	OutputBytes  int64      `json:"output_bytes" db:"output_bytes"`
	DurationMS   int64      `json:"duration_ms" db:"duration_ms"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}
