package usecase

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/imageforge/imageforge/internal/config"
	"github.com/imageforge/imageforge/internal/convert"
	"github.com/imageforge/imageforge/internal/jobs"
	"github.com/imageforge/imageforge/internal/models"
	"github.com/imageforge/imageforge/internal/usage"
	"github.com/imageforge/imageforge/pkg/logger"
	"github.com/imageforge/imageforge/pkg/utils"
)

const downloadURLTTL = time.Hour

type jobsUC struct {
	cfg         *config.Config
	jobsRepo    jobs.Repository
	queueRepo   jobs.QueueRepository
	storageRepo jobs.StorageRepository
	usageRepo   usage.Repository
	reporter    usage.Reporter
	converter   *convert.Converter
	logger      logger.Logger
}

func NewJobsUseCase(
	cfg *config.Config,
	jobsRepo jobs.Repository,
	queueRepo jobs.QueueRepository,
	storageRepo jobs.StorageRepository,
	usageRepo usage.Repository,
	reporter usage.Reporter,
	converter *convert.Converter,
	logger logger.Logger,
) jobs.UseCase {
	return &jobsUC{
		cfg:         cfg,
		jobsRepo:    jobsRepo,
		queueRepo:   queueRepo,
		storageRepo: storageRepo,
		usageRepo:   usageRepo,
		reporter:    reporter,
		converter:   converter,
		logger:      logger,
	}
}

func (u *jobsUC) ConvertSync(ctx context.Context, user *models.User, input *models.SyncConvertInput) (*convert.Result, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		return nil, errors.Wrap(err, "jobsUC.ConvertSync.ValidateStruct")
	}
	out, ok := convert.ParseOutputFormat(input.OutputFormat)
	if !ok {
		return nil, convert.BadOutputFormatErr(input.OutputFormat)
	}

	start := time.Now()
	result, err := u.converter.Convert(input.Data, out, input.Options, input.Filename)
	if err != nil {
		return nil, err
	}

	inFormat := ""
	if detected, derr := convert.DetectFormat(input.Data, input.Filename); derr == nil {
		inFormat = string(detected)
	}
	u.recordUsage(user, nil, &models.UsageRecord{
		UserID:       user.UserID,
		InputFormat:  inFormat,
		OutputFormat: string(result.Format),
		InputBytes:   int64(len(input.Data)),
		OutputBytes:  int64(result.Size),
		DurationMS:   time.Since(start).Milliseconds(),
	})
	return result, nil
}

func (u *jobsUC) CreateBatch(ctx context.Context, user *models.User, input *models.BatchInput) (*models.BatchResult, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		return nil, errors.Wrap(err, "jobsUC.CreateBatch.ValidateStruct")
	}
	out, ok := convert.ParseOutputFormat(input.OutputFormat)
	if !ok {
		return nil, convert.BadOutputFormatErr(input.OutputFormat)
	}

	batchID := uuid.New()
	result := &models.BatchResult{
		BatchID:  batchID,
		JobCount: len(input.Files),
		Jobs:     make([]models.BatchJobSummary, 0, len(input.Files)),
	}

	for _, file := range input.Files {
		data, err := os.ReadFile(file.TempPath)
		if err != nil {
			return nil, errors.Wrap(err, "jobsUC.CreateBatch.ReadFile")
		}

		inputKey := models.InputKey(batchID, file.OriginalName)
		if err := u.storageRepo.PutObject(ctx, inputKey, file.ContentType, data); err != nil {
			return nil, err
		}

		// Detection is repeated by the worker against the actual bytes;
		// this one only labels the record for listing.
		inputFormat := ""
		if detected, err := convert.DetectFormat(data, file.OriginalName); err == nil {
			inputFormat = string(detected)
		}

		job := &models.ConversionJob{
			UserID:       user.UserID,
			BatchID:      batchID,
			InputFormat:  inputFormat,
			OutputFormat: string(out),
			FileSize:     file.Size,
			InputKey:     inputKey,
		}
		if input.WebhookURL != "" {
			job.WebhookURL = &input.WebhookURL
		}
		created, err := u.jobsRepo.CreateJob(ctx, job)
		if err != nil {
			return nil, err
		}

		queued, err := u.queueRepo.Enqueue(ctx, &models.QueueJob{
			JobID:        created.JobID,
			UserID:       user.UserID,
			BatchID:      batchID,
			FilePath:     file.TempPath,
			OriginalName: file.OriginalName,
			OutputFormat: string(out),
			WebhookURL:   input.WebhookURL,
			Options:      input.Options,
		})
		if err != nil {
			return nil, err
		}
		if !queued {
			u.logger.Warnf("job %s was already queued", created.JobID)
		}

		result.Jobs = append(result.Jobs, models.BatchJobSummary{
			ID:           created.JobID,
			Status:       created.Status,
			OriginalName: file.OriginalName,
		})
	}
	return result, nil
}

func (u *jobsUC) GetJob(ctx context.Context, user *models.User, jobID uuid.UUID) (*models.JobStatusResponse, error) {
	job, err := u.jobsRepo.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != user.UserID {
		return nil, errors.New("job not found")
	}

	resp := &models.JobStatusResponse{ConversionJob: job}
	if job.Status == models.JobStatusCompleted && job.OutputKey != nil {
		url, err := u.storageRepo.GetPresignedURL(ctx, *job.OutputKey, downloadURLTTL)
		if err != nil {
			u.logger.Errorf("presigning result of job %s: %v", job.JobID, err)
		} else {
			resp.DownloadURL = &url
		}
	}
	return resp, nil
}

func (u *jobsUC) ListJobs(ctx context.Context, user *models.User, pq *utils.Pagination) (*models.JobList, error) {
	return u.jobsRepo.GetJobs(ctx, user.UserID, pq)
}

// recordUsage persists the usage row and pushes the billing meter event off
// the request path. Failures are logged only.
func (u *jobsUC) recordUsage(user *models.User, jobID *uuid.UUID, record *models.UsageRecord) {
	record.JobID = jobID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := u.usageRepo.CreateRecord(ctx, record); err != nil {
			u.logger.Errorf("recording usage for user %s: %v", user.UserID, err)
		}
		u.reporter.Report(ctx, user.UserID)
	}()
}
