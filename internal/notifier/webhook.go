package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bluelight-labs/vigia/internal/models"
)

// WebhookConfig holds webhook channel configuration.
type WebhookConfig struct {
	// URL is the webhook endpoint.
	URL string

	// MaxMessageLength caps each posted message; longer alerts are split.
	// Defaults to the Discord limit.
	MaxMessageLength int

	// RatePerSecond throttles posts to the webhook. Defaults to 1.
	RatePerSecond float64

	// Burst is the rate limiter burst size. Defaults to 1.
	Burst int
}

// Validate validates the webhook configuration.
func (c *WebhookConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	if !strings.HasPrefix(c.URL, "https://") && !strings.HasPrefix(c.URL, "http://") {
		return fmt.Errorf("webhook URL must be http(s)")
	}
	return nil
}

// WebhookNotifier posts alert messages to a Discord-style webhook as JSON
// {"content": ...} payloads, chunking long messages.
type WebhookNotifier struct {
	name       string
	config     WebhookConfig
	limiter    *rate.Limiter
	httpClient *http.Client
}

// NewWebhookNotifier creates a webhook notifier registered under name.
func NewWebhookNotifier(name string, config WebhookConfig) (*WebhookNotifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid webhook config: %w", err)
	}
	if config.MaxMessageLength <= 0 {
		config.MaxMessageLength = DefaultMaxMessageLength
	}
	if config.RatePerSecond <= 0 {
		config.RatePerSecond = 1
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}

	return &WebhookNotifier{
		name:    name,
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.RatePerSecond), config.Burst),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Name returns the channel name.
func (n *WebhookNotifier) Name() string {
	return n.name
}

// Send posts the alert message, one request per chunk, in order. A failed
// chunk aborts the remainder.
func (n *WebhookNotifier) Send(ctx context.Context, alert *models.Alert) error {
	chunks := ChunkMessage(alert.Message, n.config.MaxMessageLength)
	if len(chunks) == 0 {
		return fmt.Errorf("alert %s has an empty message", alert.ID)
	}

	for i, chunk := range chunks {
		if err := n.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		if err := n.post(ctx, chunk); err != nil {
			return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

// Close is a no-op for webhook notifiers.
func (n *WebhookNotifier) Close() error {
	return nil
}

func (n *WebhookNotifier) post(ctx context.Context, content string) error {
	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook error: status %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}
