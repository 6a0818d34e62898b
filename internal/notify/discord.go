package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fhuezo/solarb/internal/netx"
)

// DiscordSender delivers notifications via a Discord webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
	policy     netx.RetryPolicy
}

// NewDiscordSender creates a DiscordSender for the given webhook URL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 15 * time.Second},
		policy:     senderPolicy(),
	}
}

// Send posts a message to the Discord webhook. The title is rendered in bold.
// Discord answers 204 No Content on success.
func (d *DiscordSender) Send(ctx context.Context, title, message string) error {
	payload := map[string]string{
		"content": fmt.Sprintf("**%s**\n%s", title, message),
	}

	if err := netx.PostJSON(ctx, d.client, d.policy, d.webhookURL, payload, nil); err != nil {
		return fmt.Errorf("discord: send: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}
