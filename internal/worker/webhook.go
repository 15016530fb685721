package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/imageforge/imageforge/internal/models"
	"github.com/imageforge/imageforge/pkg/logger"
)

const (
	webhookTimeout    = 10 * time.Second
	webhookRetryDelay = 2 * time.Second
)

// WebhookEvent is the payload delivered to a batch's callback URL when one
// of its jobs reaches a terminal state.
type WebhookEvent struct {
	JobID     uuid.UUID        `json:"jobId"`
	BatchID   uuid.UUID        `json:"batchId"`
	Status    models.JobStatus `json:"status"`
	OutputKey string           `json:"outputKey,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Notifier delivers terminal-state webhooks. Delivery is best effort: one
// retry, failures logged, never propagated to the conversion outcome.
type Notifier struct {
	client *http.Client
	logger logger.Logger
}

func NewNotifier(logger logger.Logger) *Notifier {
	return &Notifier{
		client: &http.Client{Timeout: webhookTimeout},
		logger: logger,
	}
}

func (n *Notifier) Notify(ctx context.Context, url string, event *WebhookEvent) {
	if url == "" {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		n.logger.Errorf("marshaling webhook for job %s: %v", event.JobID, err)
		return
	}

	if err := n.post(ctx, url, body); err != nil {
		n.logger.Warnf("webhook for job %s failed, retrying: %v", event.JobID, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(webhookRetryDelay):
		}
		if err := n.post(ctx, url, body); err != nil {
			n.logger.Errorf("webhook for job %s failed twice, giving up: %v", event.JobID, err)
		}
	}
}

func (n *Notifier) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
