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

// MatrixNotifier posts an m.room.message event into a Matrix room via the
// client-server API's PUT /rooms/{roomId}/send/{eventType}/{txnId} endpoint.
type MatrixNotifier struct {
	httpClient  *http.Client
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
}

func NewMatrixNotifier(timeout time.Duration) *MatrixNotifier {
	return &MatrixNotifier{
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: NewRateLimiter(1.0, 2),
		breaker:     circuitbreaker.New(circuitbreaker.NotifyChannelConfig("matrix")),
	}
}

type matrixRoomMessage struct {
	MsgType string `json:"msgtype"`
	Body    string `json:"body"`
}

func (m *MatrixNotifier) Notify(ctx context.Context, target entity.NotificationTarget, payload Payload) error {
	if target.MatrixHomeserver == "" || target.MatrixRoomID == "" || target.MatrixToken == "" {
		return fmt.Errorf("matrix: target has no homeserver/room/token configured")
	}
	if err := m.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("matrix rate limiter: %w", err)
	}

	title := payload.TargetName
	if payload.AgentTitle != "" {
		title = payload.AgentTitle
	}
	body, err := json.Marshal(matrixRoomMessage{
		MsgType: "m.text",
		Body:    fmt.Sprintf("%s\n%s\n\n%s", title, payload.SourceURL, renderBody(payload)),
	})
	if err != nil {
		return fmt.Errorf("marshal matrix payload: %w", err)
	}

	// A deterministic transaction id keyed on the change lets a retried PUT
	// be treated as the same event by the homeserver instead of double-posting.
	txnID := fmt.Sprintf("sentrywatch-%s-%d", payload.TargetID, payload.DetectedAt.UnixNano())
	reqURL := fmt.Sprintf("%s/_matrix/client/v3/rooms/%s/send/m.room.message/%s",
		target.MatrixHomeserver, target.MatrixRoomID, txnID)
	headers := map[string]string{"Authorization": "Bearer " + target.MatrixToken}

	slog.Info("sending matrix notification", slog.String("target_id", payload.TargetID))

	sendErr := sendWithRetry(ctx, "matrix", payload.TargetID, func() error {
		_, execErr := m.breaker.Execute(func() (interface{}, error) {
			return nil, postRaw(ctx, m.httpClient, http.MethodPut, reqURL, body, "application/json", headers)
		})
		return execErr
	})
	if sendErr != nil {
		return fmt.Errorf("matrix notification failed: %w", sendErr)
	}
	return nil
}
