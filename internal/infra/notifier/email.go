package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"sentrywatch/internal/domain/entity"
)

// EmailConfig carries the SMTP relay settings shared by every email-channel
// target; per-target state is limited to the recipient address.
type EmailConfig struct {
	SMTPHost string
	SMTPPort int
	Username string
	Password string
	From     string
}

// EmailNotifier delivers changes as a plain-text email through a configured
// SMTP relay. Unlike the webhook channels this has no vendor rate limit to
// respect; it still goes through the shared RateLimiter to avoid hammering
// a self-hosted relay.
type EmailNotifier struct {
	cfg         EmailConfig
	rateLimiter *RateLimiter
	sendMail    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailNotifier(cfg EmailConfig) *EmailNotifier {
	return &EmailNotifier{
		cfg:         cfg,
		rateLimiter: NewRateLimiter(2.0, 5),
		sendMail:    smtp.SendMail,
	}
}

func (e *EmailNotifier) Notify(ctx context.Context, target entity.NotificationTarget, payload Payload) error {
	if target.EmailTo == "" {
		return fmt.Errorf("email: target has no recipient configured")
	}
	if err := e.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("email rate limiter: %w", err)
	}

	title := payload.TargetName
	if payload.AgentTitle != "" {
		title = payload.AgentTitle
	}
	subject := fmt.Sprintf("[sentrywatch] %s changed", title)
	text := fmt.Sprintf("%s\n%s\n\n%s\n", title, payload.SourceURL, renderBody(payload))
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		e.cfg.From, target.EmailTo, subject, text))

	addr := fmt.Sprintf("%s:%d", e.cfg.SMTPHost, e.cfg.SMTPPort)
	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.SMTPHost)
	}

	slog.Info("sending email notification", slog.String("target_id", payload.TargetID))

	err := sendWithRetry(ctx, "email", payload.TargetID, func() error {
		if sendErr := e.sendMail(addr, auth, e.cfg.From, []string{target.EmailTo}, msg); sendErr != nil {
			return &ServerError{Message: sendErr.Error()}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("email notification failed: %w", err)
	}
	return nil
}
