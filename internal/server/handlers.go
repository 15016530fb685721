package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	authRepository "github.com/imageforge/imageforge/internal/auth/repository"
	"github.com/imageforge/imageforge/internal/convert"
	jobsHttp "github.com/imageforge/imageforge/internal/jobs/delivery/http"
	jobsRepository "github.com/imageforge/imageforge/internal/jobs/repository"
	jobsUsecase "github.com/imageforge/imageforge/internal/jobs/usecase"
	"github.com/imageforge/imageforge/internal/middleware"
	usageRepository "github.com/imageforge/imageforge/internal/usage/repository"
	usageReporter "github.com/imageforge/imageforge/internal/usage/reporter"
	"github.com/imageforge/imageforge/pkg/utils"
)

func (s *Server) MapHandlers(e *echo.Echo) error {
	aRepo := authRepository.NewAuthRepo(s.db)
	jRepo := jobsRepository.NewJobsRepository(s.db)
	qRepo := jobsRepository.NewQueueRepository(s.redisClient, s.cfg, s.logger)
	stRepo := jobsRepository.NewStorageRepository(s.s3Client, s.preSignClient, s.cfg)
	uRepo := usageRepository.NewUsageRepo(s.db)

	reporter := usageReporter.NewMeterReporter(s.cfg, aRepo, s.logger)
	converter := convert.NewConverter()

	jobsUC := jobsUsecase.NewJobsUseCase(s.cfg, jRepo, qRepo, stRepo, uRepo, reporter, converter, s.logger)
	jobsHandlers := jobsHttp.NewJobsHandlers(s.cfg, jobsUC, s.logger)

	mw := middleware.NewMiddlewareManager(aRepo, uRepo, s.cfg, []string{"*"}, s.logger)

	v1 := e.Group("/api/v1")
	health := v1.Group("/health")

	jobsHttp.MapJobsRoutes(v1, jobsHandlers, mw)
	health.GET("", func(c echo.Context) error {
		s.logger.Infof("Health check RequestID: %s", utils.GetRequestID(c))
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})
	return nil
}
