package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"BreakoutScanner/internal/model"
)

// DiscordNotifier posts messages to a Discord channel webhook.
type DiscordNotifier struct {
	WebhookURL string
	Username   string
	MaxMessage int
	Client     *http.Client
}

// NewDiscordNotifier creates a notifier sharing the given client.
func NewDiscordNotifier(webhookURL string, client *http.Client) *DiscordNotifier {
	return &DiscordNotifier{
		WebhookURL: webhookURL,
		Username:   "Breakout Scanner",
		MaxMessage: DefaultMaxMessage,
		Client:     client,
	}
}

func (d *DiscordNotifier) Name() string { return "discord" }

// Send posts one message. There is no retry.
func (d *DiscordNotifier) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"content": text, "username": d.Username})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	// webhooks answer 204 unless ?wait=true
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord webhook error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Publish sends the scan summary, split to the message cap.
func (d *DiscordNotifier) Publish(ctx context.Context, res *model.ScanResult) error {
	return publishChunks(ctx, d, res, StyleMarkdown, d.MaxMessage)
}
