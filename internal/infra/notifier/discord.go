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

// DiscordNotifier delivers changes to a Discord channel via incoming
// webhook.
type DiscordNotifier struct {
	httpClient  *http.Client
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
}

// NewDiscordNotifier builds a DiscordNotifier. Discord's webhook limit is 30
// requests/minute, so the rate limiter is set to 0.5 req/s with a burst of 3.
func NewDiscordNotifier(timeout time.Duration) *DiscordNotifier {
	return &DiscordNotifier{
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: NewRateLimiter(0.5, 3),
		breaker:     circuitbreaker.New(circuitbreaker.NotifyChannelConfig("discord")),
	}
}

type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	URL         string             `json:"url"`
	Color       int                `json:"color"`
	Footer      discordEmbedFooter `json:"footer"`
	Timestamp   string             `json:"timestamp"`
}

type discordEmbedFooter struct {
	Text string `json:"text"`
}

const (
	discordMaxTitleLength = 256
	discordMaxDescLength  = 4096
	discordTruncSuffix    = "..."
	discordBlueColor      = 5793266
)

func (d *DiscordNotifier) buildEmbed(payload Payload) discordWebhookPayload {
	title := payload.TargetName
	if payload.AgentTitle != "" {
		title = payload.AgentTitle
	}
	if len(title) > discordMaxTitleLength {
		title = title[:discordMaxTitleLength]
	}

	description := renderBody(payload)
	description = truncateText(description, discordMaxDescLength, discordTruncSuffix)

	return discordWebhookPayload{
		Embeds: []discordEmbed{{
			Title:       title,
			Description: description,
			URL:         payload.SourceURL,
			Color:       discordBlueColor,
			Footer:      discordEmbedFooter{Text: payload.TargetName},
			Timestamp:   payload.DetectedAt.Format(time.RFC3339),
		}},
	}
}

// renderBody produces the channel-agnostic notification body text: agent
// bullets/summary when present, the raw diff otherwise, with the agent
// failure reason appended when the agent was consulted but errored.
func renderBody(payload Payload) string {
	var body string
	switch {
	case len(payload.AgentBullets) > 0 || payload.AgentSummary != "":
		for _, b := range payload.AgentBullets {
			body += "- " + b + "\n"
		}
		if payload.AgentSummary != "" {
			body += "\n" + payload.AgentSummary
		}
	default:
		body = payload.DiffText
	}
	if payload.AgentError != "" {
		body += fmt.Sprintf("\n\n(agent review unavailable: %s)", payload.AgentError)
	}
	return body
}

func (d *DiscordNotifier) send(ctx context.Context, url string, payload Payload) error {
	body, err := json.Marshal(d.buildEmbed(payload))
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}
	_, err = d.breaker.Execute(func() (interface{}, error) {
		return nil, postJSON(ctx, d.httpClient, url, body, nil)
	})
	return err
}

// sendWithRetry mirrors the teacher's hand-rolled webhook retry loop: 429s
// back off by the server's own retry_after, 4xx errors fail immediately, and
// 5xx/network errors get a short exponential backoff up to maxAttempts.
func (d *DiscordNotifier) sendWithRetry(ctx context.Context, url string, payload Payload) error {
	const maxAttempts = 2
	delay := 5 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := d.send(ctx, url, payload)
		if err == nil {
			return nil
		}
		lastErr = err

		if rateLimitErr, ok := is429Error(err); ok {
			slog.Warn("discord rate limit hit, backing off",
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
	return fmt.Errorf("discord notification failed after %d attempts: %w", maxAttempts, lastErr)
}

// Notify implements Notifier.
func (d *DiscordNotifier) Notify(ctx context.Context, target entity.NotificationTarget, payload Payload) error {
	if target.DiscordWebhook == "" {
		return fmt.Errorf("discord: target has no webhook configured")
	}
	if err := d.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("discord rate limiter: %w", err)
	}

	slog.Info("sending discord notification",
		slog.String("target_id", payload.TargetID),
		slog.String("target_name", payload.TargetName))

	err := d.sendWithRetry(ctx, target.DiscordWebhook, payload)
	if err != nil {
		slog.Error("discord notification failed",
			slog.String("target_id", payload.TargetID),
			slog.Any("error", err))
		return fmt.Errorf("discord notification failed: %w", err)
	}
	return nil
}
