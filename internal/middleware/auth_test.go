package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/imageforge/imageforge/internal/config"
	"github.com/imageforge/imageforge/internal/models"
	"github.com/imageforge/imageforge/pkg/utils"
)

type nopLogger struct{}

func (nopLogger) InitLogger()                                 {}
func (nopLogger) Debug(args ...interface{})                   {}
func (nopLogger) Debugf(template string, args ...interface{}) {}
func (nopLogger) Info(args ...interface{})                    {}
func (nopLogger) Infof(template string, args ...interface{})  {}
func (nopLogger) Warn(args ...interface{})                    {}
func (nopLogger) Warnf(template string, args ...interface{})  {}
func (nopLogger) Error(args ...interface{})                   {}
func (nopLogger) Errorf(template string, args ...interface{}) {}
func (nopLogger) Fatal(args ...interface{})                   {}
func (nopLogger) Fatalf(template string, args ...interface{}) {}

type fakeAuthRepo struct {
	users map[string]*models.User
}

func (f *fakeAuthRepo) GetUserByAPIKey(ctx context.Context, keyHash string) (*models.User, error) {
	if user, ok := f.users[keyHash]; ok {
		return user, nil
	}
	return nil, errors.New("no such key")
}

func (f *fakeAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return nil, errors.New("not implemented")
}

type fakeUsageRepo struct {
	count int64
	err   error
}

func (f *fakeUsageRepo) CreateRecord(ctx context.Context, record *models.UsageRecord) error {
	return nil
}

func (f *fakeUsageRepo) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	return f.count, f.err
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func testManager(authRepo *fakeAuthRepo, usageRepo *fakeUsageRepo, quota int64) *MiddlewareManager {
	cfg := &config.Config{Quotas: config.QuotaConfig{FreeMonthlyConversions: quota}}
	return NewMiddlewareManager(authRepo, usageRepo, cfg, []string{"*"}, nopLogger{})
}

func runMiddleware(t *testing.T, mw echo.MiddlewareFunc, apiKey string) (*httptest.ResponseRecorder, *models.User) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/convert", nil)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *models.User
	handler := mw(func(c echo.Context) error {
		seen, _ = utils.GetUserFromCtx(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	return rec, seen
}

func TestAPIKeyMiddleware_ResolvesUser(t *testing.T) {
	t.Parallel()

	user := &models.User{UserID: uuid.New(), Email: "dev@example.com", Plan: models.PlanFree}
	authRepo := &fakeAuthRepo{users: map[string]*models.User{hashKey("secret-key"): user}}
	m := testManager(authRepo, &fakeUsageRepo{}, 100)

	rec, seen := runMiddleware(t, m.APIKeyMiddleware, "secret-key")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if seen == nil || seen.UserID != user.UserID {
		t.Fatal("resolved user must be placed in the request context")
	}
}

func TestAPIKeyMiddleware_RejectsMissingKey(t *testing.T) {
	t.Parallel()

	m := testManager(&fakeAuthRepo{}, &fakeUsageRepo{}, 100)
	rec, _ := runMiddleware(t, m.APIKeyMiddleware, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", rec.Code)
	}
}

func TestAPIKeyMiddleware_RejectsUnknownKey(t *testing.T) {
	t.Parallel()

	m := testManager(&fakeAuthRepo{users: map[string]*models.User{}}, &fakeUsageRepo{}, 100)
	rec, _ := runMiddleware(t, m.APIKeyMiddleware, "wrong-key")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", rec.Code)
	}
}

func quotaRequest(t *testing.T, m *MiddlewareManager, user *models.User) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/convert", nil)
	req = req.WithContext(context.WithValue(req.Context(), utils.UserCtxKey{}, user))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := m.QuotaMiddleware(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	return rec
}

func TestQuotaMiddleware_AllowsUnderQuota(t *testing.T) {
	t.Parallel()

	m := testManager(&fakeAuthRepo{}, &fakeUsageRepo{count: 99}, 100)
	user := &models.User{UserID: uuid.New(), Plan: models.PlanFree}
	if rec := quotaRequest(t, m, user); rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
}

func TestQuotaMiddleware_RejectsOverQuota(t *testing.T) {
	t.Parallel()

	m := testManager(&fakeAuthRepo{}, &fakeUsageRepo{count: 100}, 100)
	user := &models.User{UserID: uuid.New(), Plan: models.PlanFree}
	if rec := quotaRequest(t, m, user); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("got status %d, want 429", rec.Code)
	}
}

func TestQuotaMiddleware_MeteredPlanBypassesQuota(t *testing.T) {
	t.Parallel()

	m := testManager(&fakeAuthRepo{}, &fakeUsageRepo{count: 10_000}, 100)
	user := &models.User{UserID: uuid.New(), Plan: models.PlanPayAsYouGo, BillingAccountID: "ba_123"}
	if rec := quotaRequest(t, m, user); rec.Code != http.StatusOK {
		t.Fatalf("metered plan must never hit the free quota, got %d", rec.Code)
	}
}
