package http

import (
	"github.com/labstack/echo/v4"

	"github.com/imageforge/imageforge/internal/jobs"
	"github.com/imageforge/imageforge/internal/middleware"
)

func MapJobsRoutes(group *echo.Group, h jobs.Handlers, mw *middleware.MiddlewareManager) {
	group.POST("/convert", h.ConvertSync(), mw.APIKeyMiddleware, mw.QuotaMiddleware)
	group.POST("/convert/batch", h.CreateBatch(), mw.APIKeyMiddleware, mw.QuotaMiddleware)
	group.GET("/jobs", h.GetJobs(), mw.APIKeyMiddleware)
	group.GET("/jobs/:job_id", h.GetJobByID(), mw.APIKeyMiddleware)
}
