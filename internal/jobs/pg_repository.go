package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/imageforge/imageforge/internal/models"
	"github.com/imageforge/imageforge/pkg/utils"
)

// Repository is the relational store for job records. Status transitions
// follow PENDING -> PROCESSING -> COMPLETED|FAILED; the Mark methods are
// only ever called by the worker owning the job.
type Repository interface {
	CreateJob(ctx context.Context, job *models.ConversionJob) (*models.ConversionJob, error)
	GetJobByID(ctx context.Context, jobID uuid.UUID) (*models.ConversionJob, error)
	GetJobs(ctx context.Context, userID uuid.UUID, pq *utils.Pagination) (*models.JobList, error)
	MarkProcessing(ctx context.Context, jobID uuid.UUID, startedAt time.Time) error
	MarkCompleted(ctx context.Context, jobID uuid.UUID, outputKey string, completedAt time.Time) error
	MarkFailed(ctx context.Context, jobID uuid.UUID, errMsg string, completedAt time.Time) error
}
