package reporter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/imageforge/imageforge/internal/config"
	"github.com/imageforge/imageforge/internal/models"
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

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type fakeAuthRepo struct {
	user *models.User
}

func (f *fakeAuthRepo) GetUserByAPIKey(ctx context.Context, keyHash string) (*models.User, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if f.user == nil {
		return nil, errors.New("no such user")
	}
	return f.user, nil
}

func billingConfig() *config.Config {
	return &config.Config{
		Billing: config.BillingConfig{
			MeterURL:  "http://billing.invalid/meter",
			APIKey:    "billing-token",
			EventName: "image_conversion",
		},
	}
}

func newTestReporter(cfg *config.Config, authRepo *fakeAuthRepo, rt roundTripFunc) *meterReporter {
	return &meterReporter{
		cfg:      cfg,
		authRepo: authRepo,
		client:   &http.Client{Transport: rt},
		logger:   nopLogger{},
	}
}

func TestReport_MeteredUserPostsOneEvent(t *testing.T) {
	t.Parallel()

	user := &models.User{
		UserID:           uuid.New(),
		Plan:             models.PlanPayAsYouGo,
		BillingAccountID: "ba_123",
	}

	var mu sync.Mutex
	var events []meterEvent
	var auths []string

	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(r.Body)
		var event meterEvent
		if err := json.Unmarshal(body, &event); err != nil {
			t.Errorf("unmarshaling event: %v", err)
		}
		mu.Lock()
		events = append(events, event)
		auths = append(auths, r.Header.Get("Authorization"))
		mu.Unlock()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("{}")),
			Header:     make(http.Header),
		}, nil
	})

	r := newTestReporter(billingConfig(), &fakeAuthRepo{user: user}, rt)
	r.Report(context.Background(), user.UserID)

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("expected exactly one meter event, got %d", len(events))
	}
	if events[0].EventName != "image_conversion" {
		t.Fatalf("event name %s", events[0].EventName)
	}
	if events[0].AccountID != "ba_123" {
		t.Fatalf("account id %s", events[0].AccountID)
	}
	if events[0].Value != "1" {
		t.Fatalf("value %s, each conversion meters one unit", events[0].Value)
	}
	if auths[0] != "Bearer billing-token" {
		t.Fatalf("authorization header %q", auths[0])
	}
}

func TestReport_FreeUserIsNoOp(t *testing.T) {
	t.Parallel()

	user := &models.User{UserID: uuid.New(), Plan: models.PlanFree}
	called := false
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		called = true
		return nil, errors.New("must not be reached")
	})

	r := newTestReporter(billingConfig(), &fakeAuthRepo{user: user}, rt)
	r.Report(context.Background(), user.UserID)

	if called {
		t.Fatal("free-plan usage must never hit the billing meter")
	}
}

func TestReport_DisabledWithoutMeterURL(t *testing.T) {
	t.Parallel()

	called := false
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		called = true
		return nil, errors.New("must not be reached")
	})

	cfg := &config.Config{}
	r := newTestReporter(cfg, &fakeAuthRepo{}, rt)
	r.Report(context.Background(), uuid.New())

	if called {
		t.Fatal("reporting must be disabled when no meter endpoint is configured")
	}
}

func TestReport_RetriesOnce(t *testing.T) {
	t.Parallel()

	user := &models.User{
		UserID:           uuid.New(),
		Plan:             models.PlanPayAsYouGo,
		BillingAccountID: "ba_123",
	}

	var mu sync.Mutex
	calls := 0
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Body:       io.NopCloser(strings.NewReader("")),
			Header:     make(http.Header),
		}, nil
	})

	r := newTestReporter(billingConfig(), &fakeAuthRepo{user: user}, rt)
	r.Report(context.Background(), user.UserID)

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("expected one retry after a failed post, got %d calls", calls)
	}
}
