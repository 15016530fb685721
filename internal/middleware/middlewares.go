package middleware

import (
	"github.com/imageforge/imageforge/internal/auth"
	"github.com/imageforge/imageforge/internal/config"
	"github.com/imageforge/imageforge/internal/usage"
	"github.com/imageforge/imageforge/pkg/logger"
)

type MiddlewareManager struct {
	authRepo  auth.Repository
	usageRepo usage.Repository
	cfg       *config.Config
	origins   []string
	logger    logger.Logger
}

// Middleware manager constructor
func NewMiddlewareManager(authRepo auth.Repository, usageRepo usage.Repository, cfg *config.Config, origins []string, logger logger.Logger) *MiddlewareManager {
	return &MiddlewareManager{authRepo: authRepo, usageRepo: usageRepo, cfg: cfg, origins: origins, logger: logger}
}
