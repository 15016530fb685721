package usage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/imageforge/imageforge/internal/models"
)

type Repository interface {
	CreateRecord(ctx context.Context, record *models.UsageRecord) error
	CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
}
