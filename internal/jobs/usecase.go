package jobs

import (
	"context"

	"github.com/google/uuid"

	"github.com/imageforge/imageforge/internal/convert"
	"github.com/imageforge/imageforge/internal/models"
	"github.com/imageforge/imageforge/pkg/utils"
)

// UseCase drives conversions: synchronous one-shot requests and
// asynchronous batches picked up by workers.
type UseCase interface {
	ConvertSync(ctx context.Context, user *models.User, input *models.SyncConvertInput) (*convert.Result, error)
	CreateBatch(ctx context.Context, user *models.User, input *models.BatchInput) (*models.BatchResult, error)
	GetJob(ctx context.Context, user *models.User, jobID uuid.UUID) (*models.JobStatusResponse, error)
	ListJobs(ctx context.Context, user *models.User, pq *utils.Pagination) (*models.JobList, error)
}
