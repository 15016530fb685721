package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/imageforge/imageforge/internal/models"
)

// Repository is the narrow user lookup surface the conversion API needs.
// Account management lives outside this service.
type Repository interface {
	GetUserByAPIKey(ctx context.Context, keyHash string) (*models.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
}
