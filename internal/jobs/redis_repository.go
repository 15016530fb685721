package jobs

import (
	"context"
	"time"

	"github.com/imageforge/imageforge/internal/models"
)

// QueueRepository is the redis-backed job queue. Guarantees: enqueue is
// idempotent per job id; at most one worker holds a job at a time (per-job
// lock); failed attempts are requeued with exponential backoff until the
// attempt budget is spent; completed and failed entries are retained for
// separate windows.
type QueueRepository interface {
	// Enqueue submits a job. Returns false when the job id was already
	// queued (duplicate submission is a no-op).
	Enqueue(ctx context.Context, job *models.QueueJob) (bool, error)

	// Dequeue blocks up to the configured timeout for the next available
	// job and acquires its processing lock. Returns a nil job on timeout.
	// The raw payload must be handed back to Ack or Retry untouched.
	Dequeue(ctx context.Context) (*models.QueueJob, string, error)

	// Ack finalizes a successfully processed job and records its terminal
	// status with the completed-side retention window.
	Ack(ctx context.Context, job *models.QueueJob, raw string) error

	// Retry handles a failed attempt: schedules a delayed requeue while
	// budget remains, otherwise moves the entry to the failed list.
	// Returns true when the failure is terminal.
	Retry(ctx context.Context, job *models.QueueJob, raw string, cause error) (bool, error)

	// ReleaseDue moves delayed retries whose backoff has elapsed back to
	// the pending list and returns how many were released.
	ReleaseDue(ctx context.Context) (int, error)

	// Fail finalizes a job whose error can never succeed on retry, moving
	// it straight to the failed list regardless of remaining budget.
	Fail(ctx context.Context, job *models.QueueJob, raw string) error

	// RecoverStale requeues processing-list entries older than the given
	// age (worker died between pickup and ack) and returns the jobs whose
	// budget was already spent so the caller can mark them failed.
	RecoverStale(ctx context.Context, olderThan time.Duration) (int, []*models.QueueJob, error)
}
