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

// GotifyNotifier publishes changes to a self-hosted Gotify server's
// /message endpoint.
type GotifyNotifier struct {
	httpClient  *http.Client
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
}

func NewGotifyNotifier(timeout time.Duration) *GotifyNotifier {
	return &GotifyNotifier{
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: NewRateLimiter(2.0, 5),
		breaker:     circuitbreaker.New(circuitbreaker.NotifyChannelConfig("gotify")),
	}
}

type gotifyMessage struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority int    `json:"priority"`
}

func (g *GotifyNotifier) Notify(ctx context.Context, target entity.NotificationTarget, payload Payload) error {
	if target.GotifyURL == "" || target.GotifyToken == "" {
		return fmt.Errorf("gotify: target has no url/token configured")
	}
	if err := g.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("gotify rate limiter: %w", err)
	}

	title := payload.TargetName
	if payload.AgentTitle != "" {
		title = payload.AgentTitle
	}
	body, err := json.Marshal(gotifyMessage{Title: title, Message: renderBody(payload), Priority: 5})
	if err != nil {
		return fmt.Errorf("marshal gotify payload: %w", err)
	}
	url := fmt.Sprintf("%s/message?token=%s", target.GotifyURL, target.GotifyToken)

	slog.Info("sending gotify notification", slog.String("target_id", payload.TargetID))

	sendErr := sendWithRetry(ctx, "gotify", payload.TargetID, func() error {
		_, execErr := g.breaker.Execute(func() (interface{}, error) {
			return nil, postJSON(ctx, g.httpClient, url, body, nil)
		})
		return execErr
	})
	if sendErr != nil {
		return fmt.Errorf("gotify notification failed: %w", sendErr)
	}
	return nil
}
