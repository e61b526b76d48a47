package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentrywatch/internal/domain/entity"
)

func TestSlackNotifier_Notify_Success(t *testing.T) {
	var received slackWebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	s := NewSlackNotifier(5 * time.Second)
	target := entity.NotificationTarget{Channel: entity.ChannelSlack, SlackWebhookURL: server.URL}

	err := s.Notify(context.Background(), target, testPayload())

	require.NoError(t, err)
	require.Len(t, received.Blocks, 2)
	assert.Contains(t, received.Blocks[0].Text.Text, "Example Product Page")
}

func TestSlackNotifier_Notify_MissingWebhook(t *testing.T) {
	s := NewSlackNotifier(5 * time.Second)
	err := s.Notify(context.Background(), entity.NotificationTarget{}, testPayload())
	assert.Error(t, err)
}

func TestSlackNotifier_Notify_RateLimited(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"retry_after": 0.01}`))
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	s := NewSlackNotifier(5 * time.Second)
	target := entity.NotificationTarget{SlackWebhookURL: server.URL}

	err := s.Notify(context.Background(), target, testPayload())

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestSlackNotifier_BuildBlocks_UsesAgentTitle(t *testing.T) {
	s := NewSlackNotifier(time.Second)
	payload := testPayload()
	payload.AgentTitle = "Big price drop"

	blocks := s.buildBlocks(payload)

	assert.Contains(t, blocks.Blocks[0].Text.Text, "Big price drop")
}
