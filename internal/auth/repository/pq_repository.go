package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/imageforge/imageforge/internal/auth"
	"github.com/imageforge/imageforge/internal/models"
)

type authRepo struct {
	db *sqlx.DB
}

func NewAuthRepo(db *sqlx.DB) auth.Repository {
	return &authRepo{db: db}
}

func (a *authRepo) GetUserByAPIKey(ctx context.Context, keyHash string) (*models.User, error) {
	user := &models.User{}
	if err := a.db.QueryRowxContext(ctx, getUserByAPIKeyQuery, keyHash).StructScan(user); err != nil {
		return nil, errors.Wrap(err, "authRepo.GetUserByAPIKey")
	}
	// last_used_at is bookkeeping only; a failed touch must not fail auth.
	_, _ = a.db.ExecContext(ctx, touchAPIKeyQuery, keyHash)
	return user, nil
}

func (a *authRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user := &models.User{}
	if err := a.db.QueryRowxContext(ctx, getUserByIDQuery, userID).StructScan(user); err != nil {
		return nil, errors.Wrap(err, "authRepo.GetUserByID")
	}
	return user, nil
}
