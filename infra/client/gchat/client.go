// Package gchat posts notifications to a Google Chat incoming webhook.
// Delivery is strictly best-effort, at-most-once: the order pipeline never
// observes an ack and never stalls on a chat outage.
package gchat

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/procurex/order-relay/config"
)

type Client struct {
	webhook string
	http    *http.Client
	logger  *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		webhook: cfg.Clients.GChatWebhookURL,
		http:    &http.Client{Timeout: cfg.Clients.Timeout},
		logger:  logger.With(slog.String("component", "gchat-client")),
	}
}

// Notify posts a text card; returns false (and logs) on any failure.
// A missing webhook configuration silently disables chat delivery.
func (c *Client) Notify(ctx context.Context, text string) bool {
	if c.webhook == "" {
		return false
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhook, bytes.NewReader(payload))
	if err != nil {
		c.logger.Warn("gchat request build failed", slog.Any("err", err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("gchat notify failed", slog.Any("err", err))
		return false
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		c.logger.Warn("gchat notify rejected", slog.Int("status", res.StatusCode))
		return false
	}
	return true
}
