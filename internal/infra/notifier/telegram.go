package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"sentrywatch/internal/domain/entity"
	"sentrywatch/internal/resilience/circuitbreaker"
)

const telegramAPIBaseURL = "https://api.telegram.org"

// TelegramNotifier sends changes through a Telegram bot's sendMessage API.
type TelegramNotifier struct {
	httpClient  *http.Client
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
	baseURL     string
}

func NewTelegramNotifier(timeout time.Duration) *TelegramNotifier {
	return &TelegramNotifier{
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: NewRateLimiter(1.0, 1), // Telegram's global bot limit is ~30 msg/s, but per-chat is ~1/s.
		breaker:     circuitbreaker.New(circuitbreaker.NotifyChannelConfig("telegram")),
		baseURL:     telegramAPIBaseURL,
	}
}

type telegramSendMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (t *TelegramNotifier) Notify(ctx context.Context, target entity.NotificationTarget, payload Payload) error {
	if target.TelegramToken == "" || target.TelegramChatID == "" {
		return fmt.Errorf("telegram: target has no bot token/chat id configured")
	}
	if err := t.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("telegram rate limiter: %w", err)
	}

	title := payload.TargetName
	if payload.AgentTitle != "" {
		title = payload.AgentTitle
	}
	text := fmt.Sprintf("%s\n%s\n\n%s", title, payload.SourceURL, renderBody(payload))
	body, err := json.Marshal(telegramSendMessage{ChatID: target.TelegramChatID, Text: text})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, target.TelegramToken)

	slog.Info("sending telegram notification", slog.String("target_id", payload.TargetID))

	sendErr := sendWithRetry(ctx, "telegram", payload.TargetID, func() error {
		_, execErr := t.breaker.Execute(func() (interface{}, error) {
			return nil, postJSON(ctx, t.httpClient, url, body, nil)
		})
		return execErr
	})
	if sendErr != nil {
		return fmt.Errorf("telegram notification failed: %w", sendErr)
	}
	return nil
}
