package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"sentrywatch/internal/domain/entity"
	"sentrywatch/internal/resilience/circuitbreaker"
)

// NtfyNotifier publishes changes to an ntfy topic via plain HTTP POST, per
// https://docs.ntfy.sh/publish/.
type NtfyNotifier struct {
	httpClient  *http.Client
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
}

func NewNtfyNotifier(timeout time.Duration) *NtfyNotifier {
	return &NtfyNotifier{
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: NewRateLimiter(2.0, 5),
		breaker:     circuitbreaker.New(circuitbreaker.NotifyChannelConfig("ntfy")),
	}
}

func (n *NtfyNotifier) Notify(ctx context.Context, target entity.NotificationTarget, payload Payload) error {
	if target.NtfyTopic == "" || target.NtfyServerURL == "" {
		return fmt.Errorf("ntfy: target has no topic/server configured")
	}
	if err := n.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("ntfy rate limiter: %w", err)
	}

	title := payload.TargetName
	if payload.AgentTitle != "" {
		title = payload.AgentTitle
	}
	url := fmt.Sprintf("%s/%s", target.NtfyServerURL, target.NtfyTopic)
	headers := map[string]string{
		"Title":    title,
		"Click":    payload.SourceURL,
		"Priority": "default",
	}

	slog.Info("sending ntfy notification", slog.String("target_id", payload.TargetID))

	err := sendWithRetry(ctx, "ntfy", payload.TargetID, func() error {
		_, execErr := n.breaker.Execute(func() (interface{}, error) {
			return nil, postRaw(ctx, n.httpClient, http.MethodPost, url, []byte(renderBody(payload)), "text/plain; charset=utf-8", headers)
		})
		return execErr
	})
	if err != nil {
		return fmt.Errorf("ntfy notification failed: %w", err)
	}
	return nil
}
