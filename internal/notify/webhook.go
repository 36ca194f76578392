package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// WebhookNotifier POSTs events as JSON to the delivery gateway.
type WebhookNotifier struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewWebhookNotifier authToken is sent as a bearer token when set.
func NewWebhookNotifier(url, authToken string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if authToken != "" {
		client.SetAuthToken(authToken)
	}
	return &WebhookNotifier{httpClient: client, url: url, logger: logger}
}

// Notify one POST per event; any non-2xx status is an error.
func (n *WebhookNotifier) Notify(ctx context.Context, ev Event) error {
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(ev).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to call notification webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode())
	}
	n.logger.Debug("Notification delivered",
		zap.String("type", ev.Type),
		zap.String("user_id", ev.UserID),
		zap.Int("status_code", resp.StatusCode()))
	return nil
}
