// Package notification delivers batch completion notifications: a log line
// always, a webhook POST when one is configured, and the tabular exports of
// the finished batch.
package notification

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	export "github.com/bduoto/omtx-hub/pkg/hub/component/export"
	port "github.com/bduoto/omtx-hub/pkg/hub/core/application/port"
	cfg "github.com/bduoto/omtx-hub/pkg/hub/core/config"
	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
	logger "github.com/bduoto/omtx-hub/pkg/hub/support/util/logger"
	serialization "github.com/bduoto/omtx-hub/pkg/hub/support/util/serialization"
)

// Notifier delivers one batch completion event.
type Notifier interface {
	NotifyBatchCompletion(ctx context.Context, parent *model.JobRecord, summary model.BatchSummary)
}

// LogNotifier logs completion events, at info for successful batches and
// warn for failed ones.
type LogNotifier struct{}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier() Notifier {
	return &LogNotifier{}
}

func (n *LogNotifier) NotifyBatchCompletion(ctx context.Context, parent *model.JobRecord, summary model.BatchSummary) {
	message := fmt.Sprintf(
		"Notification: Batch '%s' finished with status %s: %d/%d completed, %d failed (success rate %.0f%%).",
		parent.ID, parent.Status, summary.CompletedJobs, summary.TotalJobs, summary.FailedJobs, summary.SuccessRate*100)

	if parent.Status == model.StatusCompleted {
		logger.Infof(message)
	} else {
		logger.Warnf(message)
	}
}

var _ Notifier = (*LogNotifier)(nil)

// WebhookNotifier POSTs a JSON completion event to a configured URL. It
// wraps a fallback notifier that always runs first.
type WebhookNotifier struct {
	fallback   Notifier
	webhookURL string
	httpClient *http.Client
}

// NewWebhookNotifier creates a WebhookNotifier over the given fallback. With
// no webhook URL configured, the fallback alone is returned.
func NewWebhookNotifier(config *cfg.Config, fallback Notifier) Notifier {
	url := config.Hub.Notification.WebhookURL
	if url == "" {
		return fallback
	}
	timeout := time.Duration(config.Hub.Notification.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		fallback:   fallback,
		webhookURL: url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (n *WebhookNotifier) NotifyBatchCompletion(ctx context.Context, parent *model.JobRecord, summary model.BatchSummary) {
	n.fallback.NotifyBatchCompletion(ctx, parent, summary)

	body, err := serialization.MarshalJSON(map[string]interface{}{
		"event":    "batch_completed",
		"batch_id": parent.ID,
		"status":   string(parent.Status),
		"user_id":  parent.UserID,
		"summary":  summary,
	})
	if err != nil {
		logger.Errorf("Notification: Failed to encode webhook payload for batch '%s': %v", parent.ID, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		logger.Errorf("Notification: Failed to build webhook request for batch '%s': %v", parent.ID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		logger.Warnf("Notification: Webhook delivery for batch '%s' failed: %v", parent.ID, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warnf("Notification: Webhook for batch '%s' returned status %d.", parent.ID, resp.StatusCode)
		return
	}
	logger.Debugf("Notification: Webhook delivered for batch '%s'.", parent.ID)
}

var _ Notifier = (*WebhookNotifier)(nil)

// BatchCompletionNotifier is the port.BatchCompletionListener wired into the
// completion monitor. It notifies and then renders the batch's tabular
// exports; neither failure reaches the monitor loop.
type BatchCompletionNotifier struct {
	notifier Notifier
	exports  *export.Service
}

// NewBatchCompletionNotifier creates a BatchCompletionNotifier.
func NewBatchCompletionNotifier(notifier Notifier, exports *export.Service) port.BatchCompletionListener {
	return &BatchCompletionNotifier{notifier: notifier, exports: exports}
}

func (l *BatchCompletionNotifier) OnBatchComplete(ctx context.Context, parent *model.JobRecord, summary model.BatchSummary) {
	l.notifier.NotifyBatchCompletion(ctx, parent, summary)

	if err := l.exports.ExportBatch(ctx, parent.ID); err != nil {
		logger.Warnf("Notification: Export of batch '%s' failed: %v", parent.ID, err)
	}
}

var _ port.BatchCompletionListener = (*BatchCompletionNotifier)(nil)
