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

func TestMatrixNotifier_Notify_Success(t *testing.T) {
	var gotAuth string
	var received matrixRoomMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := NewMatrixNotifier(5 * time.Second)
	target := entity.NotificationTarget{
		Channel:          entity.ChannelMatrix,
		MatrixHomeserver: server.URL,
		MatrixRoomID:     "!room:example.org",
		MatrixToken:      "syt_token",
	}

	err := m.Notify(context.Background(), target, testPayload())

	require.NoError(t, err)
	assert.Equal(t, "Bearer syt_token", gotAuth)
	assert.Equal(t, "m.text", received.MsgType)
	assert.Contains(t, received.Body, "Example Product Page")
}

func TestMatrixNotifier_Notify_MissingConfig(t *testing.T) {
	m := NewMatrixNotifier(time.Second)
	err := m.Notify(context.Background(), entity.NotificationTarget{}, testPayload())
	assert.Error(t, err)
}
