package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/imageforge/imageforge/internal/models"
	"github.com/imageforge/imageforge/pkg/utils"
)

// APIKeyMiddleware resolves the X-API-Key header to a user. Keys are stored
// as SHA-256 hashes, so the lookup never sees the plaintext key.
func (mw *MiddlewareManager) APIKeyMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		apiKey := c.Request().Header.Get("X-API-Key")
		if apiKey == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing API key"})
		}

		sum := sha256.Sum256([]byte(apiKey))
		user, err := mw.authRepo.GetUserByAPIKey(c.Request().Context(), hex.EncodeToString(sum[:]))
		if err != nil {
			mw.logger.Warnf("api key rejected from %s: %v", utils.GetIPAddress(c), err)
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid API key"})
		}

		ctx := context.WithValue(c.Request().Context(), utils.UserCtxKey{}, user)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// QuotaMiddleware enforces the monthly conversion allowance for free-plan
// users. Metered plans are never rejected here.
func (mw *MiddlewareManager) QuotaMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := utils.GetUserFromCtx(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		if user.Plan != models.PlanFree {
			return next(c)
		}

		now := time.Now().UTC()
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		count, err := mw.usageRepo.CountSince(c.Request().Context(), user.UserID, monthStart)
		if err != nil {
			mw.logger.Errorf("quota check for user %s: %v", user.UserID, err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "quota check failed"})
		}
		if count >= mw.cfg.Quotas.FreeMonthlyConversions {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "monthly conversion quota exceeded"})
		}
		return next(c)
	}
}
