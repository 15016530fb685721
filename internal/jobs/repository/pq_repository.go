package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/imageforge/imageforge/internal/jobs"
	"github.com/imageforge/imageforge/internal/models"
	"github.com/imageforge/imageforge/pkg/utils"
)

type jobsRepo struct {
	db *sqlx.DB
}

func NewJobsRepository(db *sqlx.DB) jobs.Repository {
	return &jobsRepo{db: db}
}

func (r *jobsRepo) CreateJob(ctx context.Context, job *models.ConversionJob) (*models.ConversionJob, error) {
	created := &models.ConversionJob{}
	if err := r.db.QueryRowxContext(ctx, createJobQuery,
		job.UserID,
		job.BatchID,
		job.InputFormat,
		job.OutputFormat,
		job.FileSize,
		job.InputKey,
		job.WebhookURL,
		models.JobStatusPending,
	).StructScan(created); err != nil {
		return nil, errors.Wrap(err, "jobsRepo.CreateJob.StructScan")
	}
	return created, nil
}

func (r *jobsRepo) GetJobByID(ctx context.Context, jobID uuid.UUID) (*models.ConversionJob, error) {
	job := &models.ConversionJob{}
	if err := r.db.GetContext(ctx, job, getJobByIDQuery, jobID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Wrap(err, "jobsRepo.GetJobByID.NotFound")
		}
		return nil, errors.Wrap(err, "jobsRepo.GetJobByID.GetContext")
	}
	return job, nil
}

func (r *jobsRepo) GetJobs(ctx context.Context, userID uuid.UUID, pq *utils.Pagination) (*models.JobList, error) {
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, getTotalJobsCountQuery, userID); err != nil {
		return nil, errors.Wrap(err, "jobsRepo.GetJobs.GetTotalCount")
	}

	if totalCount == 0 {
		return &models.JobList{
			TotalCount: totalCount,
			Page:       pq.GetPage(),
			PageSize:   pq.GetSize(),
			HasMore:    false,
			Jobs:       make([]*models.ConversionJob, 0),
		}, nil
	}

	rows, err := r.db.QueryxContext(ctx, getJobsQuery, userID, pq.GetOffset(), pq.GetLimit())
	if err != nil {
		return nil, errors.Wrap(err, "jobsRepo.GetJobs.QueryxContext")
	}
	defer rows.Close()

	jobList := make([]*models.ConversionJob, 0, pq.GetSize())
	for rows.Next() {
		job := &models.ConversionJob{}
		if err := rows.StructScan(job); err != nil {
			return nil, errors.Wrap(err, "jobsRepo.GetJobs.StructScan")
		}
		jobList = append(jobList, job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "jobsRepo.GetJobs.rows.Err")
	}

	return &models.JobList{
		TotalCount: totalCount,
		Page:       pq.GetPage(),
		PageSize:   pq.GetSize(),
		HasMore:    utils.GetHasMore(pq.GetPage(), totalCount, pq.GetSize()),
		Jobs:       jobList,
	}, nil
}

func (r *jobsRepo) MarkProcessing(ctx context.Context, jobID uuid.UUID, startedAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, markProcessingQuery, jobID, startedAt); err != nil {
		return errors.Wrap(err, "jobsRepo.MarkProcessing.ExecContext")
	}
	return nil
}

func (r *jobsRepo) MarkCompleted(ctx context.Context, jobID uuid.UUID, outputKey string, completedAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, markCompletedQuery, jobID, outputKey, completedAt); err != nil {
		return errors.Wrap(err, "jobsRepo.MarkCompleted.ExecContext")
	}
	return nil
}

func (r *jobsRepo) MarkFailed(ctx context.Context, jobID uuid.UUID, errMsg string, completedAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, markFailedQuery, jobID, errMsg, completedAt); err != nil {
		return errors.Wrap(err, "jobsRepo.MarkFailed.ExecContext")
	}
	return nil
}
