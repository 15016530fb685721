package jobs

import "github.com/labstack/echo/v4"

// Handlers for the conversion HTTP surface.
type Handlers interface {
	ConvertSync() echo.HandlerFunc
	CreateBatch() echo.HandlerFunc
	GetJobByID() echo.HandlerFunc
	GetJobs() echo.HandlerFunc
}
