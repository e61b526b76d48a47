package sqlite

import (
	"encoding/json"

	"sentrywatch/internal/domain/entity"
)

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

// notifyToColumn marshals an optional NotificationTarget to a column value,
// returning SQL NULL (not the literal string "null") when nt is nil.
func notifyToColumn(nt *entity.NotificationTarget) (any, error) {
	if nt == nil {
		return nil, nil
	}
	s, err := marshalJSON(nt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// scanNotifyTo unmarshals a nullable notify_json column into a
// *NotificationTarget, leaving it nil when the column was NULL.
func scanNotifyTo(raw *string) (*entity.NotificationTarget, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var nt entity.NotificationTarget
	if err := json.Unmarshal([]byte(*raw), &nt); err != nil {
		return nil, err
	}
	return &nt, nil
}

// agentResponseColumn marshals an optional AgentResponse column value.
func agentResponseColumn(a *entity.AgentResponse) (any, error) {
	if a == nil {
		return nil, nil
	}
	s, err := marshalJSON(a)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func scanAgentResponse(raw *string) (*entity.AgentResponse, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var a entity.AgentResponse
	if err := json.Unmarshal([]byte(*raw), &a); err != nil {
		return nil, err
	}
	return &a, nil
}
