package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"spacetraveling/internal/trace"
)

// NewJSONEvent 는 payload 를 JSON 으로 담은 Event 를 만든다.
// id 가 비어 있으면 UUID 를, requestID 는 ctx 의 추적 정보를 쓴다.
func NewJSONEvent(ctx context.Context, id string, payload any, maxRetry int) (Event, error) {
	if maxRetry <= 0 || maxRetry > len(RetryDelays) {
		maxRetry = len(RetryDelays)
	}
	if id == "" {
		id = uuid.NewString()
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal payload: %w", err)
	}
	return Event{
		ID:        id,
		Payload:   b,
		RequestID: trace.RequestID(ctx),
		MaxRetry:  maxRetry,
	}, nil
}

func DecodeJSON[T any](evt Event) (T, error) {
	var out T
	if err := json.Unmarshal(evt.Payload, &out); err != nil {
		var zero T
		return zero, fmt.Errorf("unmarshal payload of %s: %w", evt.ID, err)
	}
	return out, nil
}
