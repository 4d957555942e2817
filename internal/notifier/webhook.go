// Package notifier forwards vouch domain events to an external trading
// service over HTTP.
package notifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"github.com/pathofhideout/vouchbot/internal/database/types"
	"github.com/pathofhideout/vouchbot/internal/events"
	"go.uber.org/zap"
)

// ErrUnexpectedStatusCode indicates the webhook endpoint rejected a request.
var ErrUnexpectedStatusCode = errors.New("unexpected status code")

const (
	requestTimeout = 10 * time.Second
	maxRetries     = 3
)

// postVouchRequest is the payload for newly recorded vouches.
type postVouchRequest struct {
	OriginID    string `json:"originId"`
	Buyer       string `json:"buyer"`
	Seller      string `json:"seller"`
	ServiceType string `json:"serviceType"`
	IsNegative  bool   `json:"isNegative"`
	Detail      string `json:"detail"`
	Token       string `json:"token"`
}

// deleteVouchRequest is the payload for deleted vouches.
type deleteVouchRequest struct {
	OriginID string `json:"originId"`
	Token    string `json:"token"`
}

// WebhookClient posts vouch events to a configured endpoint.
type WebhookClient struct {
	url    string
	token  string
	client *http.Client
	logger *zap.Logger
}

// NewWebhook creates a webhook client for the given endpoint.
func NewWebhook(url, token string, logger *zap.Logger) *WebhookClient {
	return &WebhookClient{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: requestTimeout},
		logger: logger.Named("webhook"),
	}
}

// Register subscribes the client to the event bus. Delivery failures are
// logged and dropped; the ledger is the source of truth, not the webhook.
func (c *WebhookClient) Register(bus *events.Bus) {
	bus.SubscribeVouchAdded(func(vouch *types.Vouch) {
		if err := c.SendVouch(context.Background(), vouch); err != nil {
			c.logger.Error("Failed to deliver vouch-added webhook",
				zap.String("message_id", vouch.MessageID),
				zap.Error(err))
		}
	})

	bus.SubscribeVouchDeleted(func(messageID string) {
		if err := c.DeleteVouch(context.Background(), messageID); err != nil {
			c.logger.Error("Failed to deliver vouch-deleted webhook",
				zap.String("message_id", messageID),
				zap.Error(err))
		}
	})
}

// SendVouch posts a newly recorded vouch.
func (c *WebhookClient) SendVouch(ctx context.Context, vouch *types.Vouch) error {
	return c.post(ctx, "/vouch", postVouchRequest{
		OriginID:    vouch.MessageID,
		Buyer:       vouch.VouchedID,
		Seller:      vouch.VoucherID,
		ServiceType: "other",
		IsNegative:  vouch.Amount < 0,
		Detail:      vouch.Reason,
		Token:       c.token,
	})
}

// DeleteVouch notifies the endpoint that a vouch was removed.
func (c *WebhookClient) DeleteVouch(ctx context.Context, messageID string) error {
	return c.post(ctx, "/delete-vouch", deleteVouchRequest{
		OriginID: messageID,
		Token:    c.token,
	})
}

// post sends a JSON payload, retrying transient failures with exponential
// backoff. Client errors (4xx) are permanent and not retried.
func (c *WebhookClient) post(ctx context.Context, path string, payload any) error {
	body, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to build webhook request: %w", err))
		}

		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("webhook request failed: %w", err)
		}

		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}()

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			return nil
		}

		statusErr := fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
		if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
			return backoff.Permanent(statusErr)
		}

		return statusErr
	}

	return backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx))
}
