package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/achupradeep3050/crypto/internal/domain"
)

const TelegramAPI = "https://api.telegram.org"

// Telegram posts events to a chat through the Bot API. It is a no-op
// unless both token and chat id are set.
type Telegram struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
}

func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		baseURL: TelegramAPI,
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL points the notifier at another Bot API host.
func (t *Telegram) WithBaseURL(u string) *Telegram {
	t.baseURL = strings.TrimRight(u, "/")
	return t
}

func (t *Telegram) Enabled() bool {
	return t.token != "" && t.chatID != ""
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Notify(ctx context.Context, e domain.Event) error {
	return t.Send(ctx, format(e))
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Enabled() {
		return nil
	}

	data, err := json.Marshal(map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

var icons = map[domain.EventKind]string{
	domain.EventEngineStarted:      "🟢",
	domain.EventEngineStopped:      "⏹",
	domain.EventOrderSubmitted:     "🚀",
	domain.EventOrderFailed:        "⚠️",
	domain.EventPositionClosed:     "✅",
	domain.EventConnectionLost:     "❌",
	domain.EventConnectionRestored: "📶",
	domain.EventStrategyError:      "🚨",
	domain.EventLiquidation:        "💀",
}

func format(e domain.Event) string {
	var b strings.Builder
	if icon, ok := icons[e.Kind]; ok {
		b.WriteString(icon)
		b.WriteByte(' ')
	}
	if e.Engine != "" {
		fmt.Fprintf(&b, "[%s] ", e.Engine)
	}
	b.WriteString(e.Message)
	return b.String()
}
