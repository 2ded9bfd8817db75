package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/a11ysuite/aiscan/internal/common"
	"github.com/a11ysuite/aiscan/internal/config"
	"github.com/rs/zerolog"
)

// Client calls the upstream SaaS collaborator API. Both operations are side
// effects applied after results are persisted, so failures are logged at the
// call site and never abort batch processing. A nil *Client is a no-op.
type Client struct {
	cfg        config.CollabConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a collaborator client, or nil when no base URL is configured.
func NewClient(cfg config.CollabConfig, logger zerolog.Logger) *Client {
	if !cfg.Enabled() {
		return nil
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		logger:     logger.With().Str("component", "CollabClient").Logger(),
	}
}

// DeductTokens reports a run's total token consumption against the campaign
// budget, anchored to the first successfully processed scan id.
func (c *Client) DeductTokens(ctx context.Context, scanID string, totalTokens int) error {
	if c == nil {
		return nil
	}

	payload := map[string]interface{}{
		"scan_id":      scanID,
		"total_tokens": totalTokens,
	}
	if err := c.post(ctx, "/internal/ai-queue/deduct-tokens", payload); err != nil {
		return common.WrapError(err, "token deduction failed")
	}

	c.logger.Info().Str("scan_id", scanID).Int("total_tokens", totalTokens).Msg("Deducted tokens from campaign budget")
	return nil
}

// EnqueueNotification asks the notification queue to inform the scan owner.
// Fire-and-forget: the queue collaborator owns its own retry policy.
func (c *Client) EnqueueNotification(ctx context.Context, scanID, email, notificationType string) error {
	if c == nil {
		return nil
	}

	payload := map[string]interface{}{
		"scan_id": scanID,
		"email":   email,
		"type":    notificationType,
	}
	if err := c.post(ctx, "/internal/notifications/enqueue", payload); err != nil {
		return common.WrapError(err, "notification enqueue failed")
	}

	c.logger.Debug().Str("scan_id", scanID).Str("type", notificationType).Msg("Enqueued notification")
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return common.WrapError(err, "failed to marshal request payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return common.WrapError(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collaborator API returned status %d for %s", resp.StatusCode, path)
	}
	return nil
}
