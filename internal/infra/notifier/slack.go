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

// SlackNotifier delivers changes to a Slack channel via incoming webhook.
type SlackNotifier struct {
	httpClient  *http.Client
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
}

// NewSlackNotifier builds a SlackNotifier. Slack's incoming webhook limit is
// roughly 1 message/second.
func NewSlackNotifier(timeout time.Duration) *SlackNotifier {
	return &SlackNotifier{
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: NewRateLimiter(1.0, 1),
		breaker:     circuitbreaker.New(circuitbreaker.NotifyChannelConfig("slack")),
	}
}

type slackWebhookPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string            `json:"type"`
	Text     *slackTextObject  `json:"text,omitempty"`
	Elements []slackTextObject `json:"elements,omitempty"`
}

type slackTextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

const (
	slackMaxSectionText = 3000
	slackMaxFallback    = 150
	slackTruncSuffix    = "..."
)

func (s *SlackNotifier) buildBlocks(payload Payload) slackWebhookPayload {
	title := payload.TargetName
	if payload.AgentTitle != "" {
		title = payload.AgentTitle
	}

	fallback := truncateText(fmt.Sprintf("%s changed", title), slackMaxFallback, slackTruncSuffix)

	titleLink := fmt.Sprintf("*<%s|%s>*", payload.SourceURL, title)
	sectionText := truncateText(fmt.Sprintf("%s\n\n%s", titleLink, renderBody(payload)), slackMaxSectionText, slackTruncSuffix)

	contextText := fmt.Sprintf("%s • %s", payload.TargetName, payload.DetectedAt.Format(time.RFC3339))

	return slackWebhookPayload{
		Text: fallback,
		Blocks: []slackBlock{
			{Type: "section", Text: &slackTextObject{Type: "mrkdwn", Text: sectionText}},
			{Type: "context", Elements: []slackTextObject{{Type: "mrkdwn", Text: contextText}}},
		},
	}
}

func (s *SlackNotifier) send(ctx context.Context, url string, payload Payload) error {
	body, err := json.Marshal(s.buildBlocks(payload))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}
	_, err = s.breaker.Execute(func() (interface{}, error) {
		return nil, postJSON(ctx, s.httpClient, url, body, nil)
	})
	return err
}

func (s *SlackNotifier) sendWithRetry(ctx context.Context, url string, payload Payload) error {
	const maxAttempts = 2
	delay := 5 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := s.send(ctx, url, payload)
		if err == nil {
			return nil
		}
		lastErr = err

		if rateLimitErr, ok := is429Error(err); ok {
			slog.Warn("slack rate limit hit, backing off",
				slog.String("target_id", payload.TargetID),
				slog.Duration("retry_after", rateLimitErr.RetryAfter))
			select {
			case <-time.After(rateLimitErr.RetryAfter):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if !isRetryableError(err) {
			return err
		}

		if attempt < maxAttempts {
			select {
			case <-time.After(delay):
				delay *= 2
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("slack notification failed after %d attempts: %w", maxAttempts, lastErr)
}

// Notify implements Notifier.
func (s *SlackNotifier) Notify(ctx context.Context, target entity.NotificationTarget, payload Payload) error {
	if target.SlackWebhookURL == "" {
		return fmt.Errorf("slack: target has no webhook configured")
	}
	if err := s.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("slack rate limiter: %w", err)
	}

	slog.Info("sending slack notification",
		slog.String("target_id", payload.TargetID),
		slog.String("target_name", payload.TargetName))

	err := s.sendWithRetry(ctx, target.SlackWebhookURL, payload)
	if err != nil {
		slog.Error("slack notification failed",
			slog.String("target_id", payload.TargetID),
			slog.Any("error", err))
		return fmt.Errorf("slack notification failed: %w", err)
	}
	return nil
}
