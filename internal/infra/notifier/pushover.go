package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"sentrywatch/internal/domain/entity"
	"sentrywatch/internal/resilience/circuitbreaker"
)

// PushoverNotifier sends changes through the Pushover messages API, which
// takes application/x-www-form-urlencoded form fields rather than JSON.
type PushoverNotifier struct {
	httpClient  *http.Client
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
	messagesURL string
}

const pushoverMessagesURL = "https://api.pushover.net/1/messages.json"

func NewPushoverNotifier(timeout time.Duration) *PushoverNotifier {
	return &PushoverNotifier{
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: NewRateLimiter(2.0, 5),
		breaker:     circuitbreaker.New(circuitbreaker.NotifyChannelConfig("pushover")),
		messagesURL: pushoverMessagesURL,
	}
}

func (p *PushoverNotifier) Notify(ctx context.Context, target entity.NotificationTarget, payload Payload) error {
	if target.PushoverToken == "" || target.PushoverUser == "" {
		return fmt.Errorf("pushover: target has no app token/user key configured")
	}
	if err := p.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("pushover rate limiter: %w", err)
	}

	title := payload.TargetName
	if payload.AgentTitle != "" {
		title = payload.AgentTitle
	}
	form := url.Values{}
	form.Set("token", target.PushoverToken)
	form.Set("user", target.PushoverUser)
	form.Set("title", title)
	form.Set("message", renderBody(payload))
	form.Set("url", payload.SourceURL)
	body := []byte(form.Encode())

	slog.Info("sending pushover notification", slog.String("target_id", payload.TargetID))

	sendErr := sendWithRetry(ctx, "pushover", payload.TargetID, func() error {
		_, execErr := p.breaker.Execute(func() (interface{}, error) {
			return nil, postRaw(ctx, p.httpClient, http.MethodPost, p.messagesURL, body, "application/x-www-form-urlencoded", nil)
		})
		return execErr
	})
	if sendErr != nil {
		return fmt.Errorf("pushover notification failed: %w", sendErr)
	}
	return nil
}
