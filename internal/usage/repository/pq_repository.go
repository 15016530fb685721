package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/imageforge/imageforge/internal/models"
	"github.com/imageforge/imageforge/internal/usage"
)

type usageRepo struct {
	db *sqlx.DB
}

func NewUsageRepo(db *sqlx.DB) usage.Repository {
	return &usageRepo{db: db}
}

func (u *usageRepo) CreateRecord(ctx context.Context, record *models.UsageRecord) error {
	if err := u.db.QueryRowxContext(
		ctx,
		createRecordQuery,
		record.UserID,
		record.JobID,
		record.InputFormat,
		record.OutputFormat,
		record.InputBytes,
		record.OutputBytes,
		record.DurationMS,
	).StructScan(record); err != nil {
		return errors.Wrap(err, "usageRepo.CreateRecord")
	}
	return nil
}

func (u *usageRepo) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	if err := u.db.GetContext(ctx, &count, countSinceQuery, userID, since); err != nil {
		return 0, errors.Wrap(err, "usageRepo.CountSince")
	}
	return count, nil
}
