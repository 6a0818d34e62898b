package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fhuezo/solarb/internal/netx"
)

// senderPolicy retries alert delivery a couple of times. The unhedged alarm
// rides on this path, so transient channel hiccups must not drop it.
func senderPolicy() netx.RetryPolicy {
	return netx.RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Timeout:    10 * time.Second,
		Jitter:     250 * time.Millisecond,
	}
}

// TelegramSender delivers notifications via the Telegram Bot API.
type TelegramSender struct {
	token  string
	chatID string
	client *http.Client
	policy netx.RetryPolicy
}

// NewTelegramSender creates a TelegramSender for the given bot token and
// chat ID.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 15 * time.Second},
		policy: senderPolicy(),
	}
}

// Send posts a message to the configured Telegram chat using the sendMessage
// API. The title is rendered in bold.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)

	payload := map[string]string{
		"chat_id":    t.chatID,
		"text":       fmt.Sprintf("*%s*\n%s", title, message),
		"parse_mode": "Markdown",
	}

	if err := netx.PostJSON(ctx, t.client, t.policy, url, payload, nil); err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
