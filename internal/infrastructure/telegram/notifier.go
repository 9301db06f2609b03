package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"VideoCurator/internal/ports"
)

// Notifier sends operator alerts to a Telegram chat via bot API.
type Notifier struct {
	botToken      string
	defaultChatID string
	client        *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and the default chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken:      botToken,
		defaultChatID: chatID,
		client:        &http.Client{Timeout: 5 * time.Second},
	}
}

// Send posts a Markdown message. An empty recipient goes to the
// configured default chat.
func (n *Notifier) Send(ctx context.Context, recipient, subject, body string) error {
	chatID := recipient
	if chatID == "" {
		chatID = n.defaultChatID
	}
	if n.botToken == "" || chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	text := body
	if subject != "" {
		text = "*" + subject + "*\n\n" + body
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}
