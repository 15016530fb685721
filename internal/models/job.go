package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/imageforge/imageforge/internal/convert"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// ConversionJob is the persisted job record. It is created by the request
// handler in PENDING and mutated only by the worker that owns it.
// OutputKey is set iff status is COMPLETED; Error is set iff FAILED.
type ConversionJob struct {
	JobID        uuid.UUID  `json:"job_id" db:"job_id"`
	BatchID      uuid.UUID  `json:"batch_id" db:"batch_id"`
	UserID       uuid.UUID  `json:"user_id" db:"user_id"`
	InputFormat  string     `json:"input_format" db:"input_format"`
	OutputFormat string     `json:"output_format" db:"output_format"`
	FileSize     int64      `json:"file_size" db:"file_size"`
	InputKey     string     `json:"input_key" db:"input_key"`
	OutputKey    *string    `json:"output_key" db:"output_key"`
	WebhookURL   *string    `json:"webhook_url,omitempty" db:"webhook_url"`
	Status       JobStatus  `json:"status" db:"status"`
	Error        *string    `json:"error" db:"error"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	StartedAt    *time.Time `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at" db:"completed_at"`
}

// QueueJob is the payload submitted to the queue; bytes stay on disk, the
// worker fetches them by FilePath.
type QueueJob struct {
	JobID        uuid.UUID       `json:"jobId" validate:"required"`
	UserID       uuid.UUID       `json:"userId" validate:"required"`
	BatchID      uuid.UUID       `json:"batchId" validate:"required"`
	FilePath     string          `json:"filePath" validate:"required"`
	OriginalName string          `json:"originalName" validate:"required"`
	OutputFormat string          `json:"outputFormat" validate:"required"`
	WebhookURL   string          `json:"webhookUrl,omitempty"`
	Options      convert.Options `json:"options"`
	Attempt      int             `json:"attempt"`
	EnqueuedAt   time.Time       `json:"enqueuedAt"`
}

// ResultKey is the deterministic storage key for a job's output.
// Layout: results/{batchId}/{jobId}.{ext}.
func ResultKey(batchID, jobID uuid.UUID, out convert.Format) string {
	return fmt.Sprintf("results/%s/%s.%s", batchID, jobID, out.Ext())
}

// InputKey describes the uploaded source of a batch file.
// Layout: batch/{batchId}/{originalFileName}.
func InputKey(batchID uuid.UUID, originalName string) string {
	return fmt.Sprintf("batch/%s/%s", batchID, originalName)
}

type JobList struct {
	Jobs       []*ConversionJob `json:"jobs"`
	TotalCount int              `json:"total_count"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	HasMore    bool             `json:"has_more"`
}

// JobStatusResponse is the polling view of a job, with a presigned download
// link once the result is materialized.
type JobStatusResponse struct {
	*ConversionJob
	DownloadURL *string `json:"download_url"`
}

type BatchFile struct {
	TempPath     string
	OriginalName string
	Size         int64
	ContentType  string
}

type BatchInput struct {
	UserID       uuid.UUID
	Files        []BatchFile
	OutputFormat string `validate:"required"`
	WebhookURL   string `validate:"omitempty,url"`
	Options      convert.Options
}

type BatchJobSummary struct {
	ID           uuid.UUID        `json:"id"`
	Status       JobStatus        `json:"status"`
	OriginalName string           `json:"originalName"`
}

type BatchResult struct {
	BatchID  uuid.UUID         `json:"batchId"`
	JobCount int               `json:"jobCount"`
	Jobs     []BatchJobSummary `json:"jobs"`
}

type SyncConvertInput struct {
	UserID       uuid.UUID
	Data         []byte
	Filename     string
	OutputFormat string `validate:"required"`
	Options      convert.Options
}
