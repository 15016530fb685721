package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/imageforge/imageforge/internal/config"
	"github.com/imageforge/imageforge/internal/convert"
	"github.com/imageforge/imageforge/internal/jobs"
	"github.com/imageforge/imageforge/internal/models"
	"github.com/imageforge/imageforge/pkg/logger"
	"github.com/imageforge/imageforge/pkg/utils"
)

type jobsHandlers struct {
	cfg    *config.Config
	jobsUC jobs.UseCase
	logger logger.Logger
}

func NewJobsHandlers(cfg *config.Config, jobsUC jobs.UseCase, logger logger.Logger) jobs.Handlers {
	return &jobsHandlers{cfg: cfg, jobsUC: jobsUC, logger: logger}
}

func (h *jobsHandlers) ConvertSync() echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := utils.GetUserFromCtx(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing file"})
		}
		data, err := readMultipartFile(fileHeader)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "unreadable file"})
		}

		opts, err := parseOptions(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}

		result, err := h.jobsUC.ConvertSync(c.Request().Context(), user, &models.SyncConvertInput{
			UserID:       user.UserID,
			Data:         data,
			Filename:     fileHeader.Filename,
			OutputFormat: c.FormValue("format"),
			Options:      opts,
		})
		if err != nil {
			return h.conversionError(c, err)
		}

		c.Response().Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=converted.%s", result.Format.Ext()))
		c.Response().Header().Set("X-Image-Width", strconv.Itoa(result.Width))
		c.Response().Header().Set("X-Image-Height", strconv.Itoa(result.Height))
		return c.Blob(http.StatusOK, result.Format.ContentType(), result.Buffer)
	}
}

func (h *jobsHandlers) CreateBatch() echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := utils.GetUserFromCtx(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		form, err := c.MultipartForm()
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		}
		fileHeaders := form.File["files"]
		if len(fileHeaders) == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "no files submitted"})
		}

		opts, err := parseOptions(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}

		files := make([]models.BatchFile, 0, len(fileHeaders))
		for _, fh := range fileHeaders {
			tempPath, err := h.saveTempFile(fh)
			if err != nil {
				h.logger.Errorf("saving upload %s: %v", fh.Filename, err)
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not store upload"})
			}
			files = append(files, models.BatchFile{
				TempPath:     tempPath,
				OriginalName: fh.Filename,
				Size:         fh.Size,
				ContentType:  fh.Header.Get("Content-Type"),
			})
		}

		result, err := h.jobsUC.CreateBatch(c.Request().Context(), user, &models.BatchInput{
			UserID:       user.UserID,
			Files:        files,
			OutputFormat: c.FormValue("format"),
			WebhookURL:   c.FormValue("webhookUrl"),
			Options:      opts,
		})
		if err != nil {
			return h.conversionError(c, err)
		}
		return c.JSON(http.StatusAccepted, result)
	}
}

func (h *jobsHandlers) GetJobByID() echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := utils.GetUserFromCtx(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		jobID, err := uuid.Parse(c.Param("job_id"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid job id"})
		}
		job, err := h.jobsUC.GetJob(c.Request().Context(), user, jobID)
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
		}
		return c.JSON(http.StatusOK, job)
	}
}

func (h *jobsHandlers) GetJobs() echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := utils.GetUserFromCtx(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		pagination, err := utils.GetPaginationFromCtx(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		jobList, err := h.jobsUC.ListJobs(c.Request().Context(), user, pagination)
		if err != nil {
			h.logger.Errorf("listing jobs for user %s: %v", user.UserID, err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not list jobs"})
		}
		return c.JSON(http.StatusOK, jobList)
	}
}

// conversionError maps pipeline error kinds onto HTTP statuses. Unsupported
// conversions additionally return the permitted outputs for the input.
func (h *jobsHandlers) conversionError(c echo.Context, err error) error {
	switch convert.KindOf(err) {
	case convert.KindFileTooLarge:
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
	case convert.KindUnsupportedFormat:
		return c.JSON(http.StatusUnsupportedMediaType, map[string]string{"error": err.Error()})
	case convert.KindUnsupportedConversion:
		body := map[string]interface{}{"error": err.Error()}
		var ce *convert.Error
		if errors.As(err, &ce) && len(ce.Allowed) > 0 {
			body["allowedOutputs"] = ce.Allowed
		}
		return c.JSON(http.StatusUnprocessableEntity, body)
	case convert.KindPageOutOfRange:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.logger.Errorf("conversion failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "conversion failed"})
	}
}

func (h *jobsHandlers) saveTempFile(fh *multipart.FileHeader) (string, error) {
	data, err := readMultipartFile(fh)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(h.cfg.Upload.TempDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(h.cfg.Upload.TempDir, uuid.New().String()+filepath.Ext(fh.Filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func parseOptions(c echo.Context) (convert.Options, error) {
	opts := convert.Options{}
	var err error
	if opts.Quality, err = parseOptionalInt(c, "quality"); err != nil {
		return opts, err
	}
	if opts.Width, err = parseOptionalInt(c, "width"); err != nil {
		return opts, err
	}
	if opts.Height, err = parseOptionalInt(c, "height"); err != nil {
		return opts, err
	}
	if opts.DPI, err = parseOptionalInt(c, "dpi"); err != nil {
		return opts, err
	}
	if opts.Page, err = parseOptionalInt(c, "page"); err != nil {
		return opts, err
	}
	opts.Fit = convert.FitMode(c.FormValue("fit"))
	opts.Lossless = c.FormValue("lossless") == "true"
	return opts, nil
}

func parseOptionalInt(c echo.Context, field string) (int, error) {
	raw := c.FormValue(field)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", field, raw)
	}
	return v, nil
}
