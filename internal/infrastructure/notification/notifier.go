package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/approval-workflow/internal/application/port"
	"github.com/garyjia/approval-workflow/internal/domain/entity"
)

// WebhookNotifier delivers transition notifications by POSTing a JSON
// envelope to a configured endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(url string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// envelope is the wire format delivered to the webhook endpoint.
type envelope struct {
	Event      string                   `json:"event"`
	Workflow   *entity.WorkflowInstance `json:"workflow"`
	Recipients []string                 `json:"recipients"`
	SentAt     time.Time                `json:"sent_at"`
}

// Notify implements port.Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, eventName string, wf *entity.WorkflowInstance, recipients []string) error {
	body, err := json.Marshal(envelope{
		Event:      eventName,
		Workflow:   wf,
		Recipients: recipients,
		SentAt:     time.Now(),
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
	}

	n.logger.Debug("Notification delivered",
		zap.String("event", eventName),
		zap.String("workflow_id", wf.ID),
		zap.Strings("recipients", recipients))
	return nil
}

// LogNotifier records notifications in the application log. Used when no
// webhook endpoint is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements port.Notifier.
func (n *LogNotifier) Notify(_ context.Context, eventName string, wf *entity.WorkflowInstance, recipients []string) error {
	n.logger.Info("Notification",
		zap.String("event", eventName),
		zap.String("workflow_id", wf.ID),
		zap.String("state", wf.CurrentState.String()),
		zap.Strings("recipients", recipients))
	return nil
}

// Verify interface compliance
var (
	_ port.Notifier = (*WebhookNotifier)(nil)
	_ port.Notifier = (*LogNotifier)(nil)
)
