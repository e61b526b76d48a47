package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentrywatch/internal/domain/entity"
)

func TestEmailNotifier_Notify_Success(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	e := NewEmailNotifier(EmailConfig{SMTPHost: "smtp.example.com", SMTPPort: 587, From: "alerts@example.com"})
	e.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	target := entity.NotificationTarget{Channel: entity.ChannelEmail, EmailTo: "me@example.com"}
	err := e.Notify(context.Background(), target, testPayload())

	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "alerts@example.com", gotFrom)
	assert.Equal(t, []string{"me@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Example Product Page")
}

func TestEmailNotifier_Notify_MissingRecipient(t *testing.T) {
	e := NewEmailNotifier(EmailConfig{SMTPHost: "smtp.example.com", SMTPPort: 587})
	err := e.Notify(context.Background(), entity.NotificationTarget{}, testPayload())
	assert.Error(t, err)
}

func TestEmailNotifier_Notify_RelayErrorRetriedThenFails(t *testing.T) {
	attempts := 0
	e := NewEmailNotifier(EmailConfig{SMTPHost: "smtp.example.com", SMTPPort: 587, From: "alerts@example.com"})
	e.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		attempts++
		return fmt.Errorf("connection refused")
	}

	target := entity.NotificationTarget{EmailTo: "me@example.com"}
	err := e.Notify(context.Background(), target, testPayload())

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
}
