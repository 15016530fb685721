package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/imageforge/imageforge/internal/auth"
	"github.com/imageforge/imageforge/internal/config"
	"github.com/imageforge/imageforge/internal/usage"
	"github.com/imageforge/imageforge/pkg/logger"
)

const (
	reportTimeout = 10 * time.Second
	retryDelay    = 2 * time.Second
)

// meterReporter posts one billing meter event per conversion. Only users on
// the metered plan generate events; for everyone else Report is a no-op.
type meterReporter struct {
	cfg      *config.Config
	authRepo auth.Repository
	client   *http.Client
	logger   logger.Logger
}

func NewMeterReporter(cfg *config.Config, authRepo auth.Repository, log logger.Logger) usage.Reporter {
	return &meterReporter{
		cfg:      cfg,
		authRepo: authRepo,
		client:   &http.Client{Timeout: reportTimeout},
		logger:   log,
	}
}

type meterEvent struct {
	EventName string `json:"event_name"`
	AccountID string `json:"account_id"`
	Value     string `json:"value"`
}

func (r *meterReporter) Report(ctx context.Context, userID uuid.UUID) {
	if r.cfg.Billing.MeterURL == "" {
		return
	}

	user, err := r.authRepo.GetUserByID(ctx, userID)
	if err != nil {
		r.logger.Errorf("usage report: lookup user %s: %v", userID, err)
		return
	}
	if !user.Metered() {
		return
	}

	event := meterEvent{
		EventName: r.cfg.Billing.EventName,
		AccountID: user.BillingAccountID,
		Value:     "1",
	}

	if err := r.post(ctx, event); err != nil {
		// one bounded retry, then give up; billing reconciles from
		// usage_records anyway
		time.Sleep(retryDelay)
		if err = r.post(ctx, event); err != nil {
			r.logger.Errorf("usage report: user %s: %v", userID, err)
		}
	}
}

func (r *meterReporter) post(ctx context.Context, event meterEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.Billing.MeterURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.Billing.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.Billing.APIKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("meter endpoint returned %d", resp.StatusCode)
	}
	return nil
}
