package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType 이벤트 타입 정의
type EventType string

const (
	PostRevalidationRequested EventType = "post.revalidation_requested"
)

const schemaVersion = "1"

// BaseEvent 모든 이벤트의 기본 구조
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

func NewBaseEvent(t EventType, source string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().UTC(),
		Source:    source,
		Version:   schemaVersion,
	}
}

// PostRevalidationRequestedEvent 글 페이지 재생성 요청
//
// Prismic webhook 은 변경된 문서 id 만 알려 주므로 DocumentIDs 를 워커가 uid 로 바꾼다.
// 관리자 요청처럼 slug 를 이미 아는 경우 Slugs 에 바로 담는다.
type PostRevalidationRequestedEvent struct {
	BaseEvent
	DocumentIDs []string `json:"document_ids,omitempty"`
	Slugs       []string `json:"slugs,omitempty"`
	WebhookType string   `json:"webhook_type,omitempty"`
}

func NewPostRevalidationRequested(source string, documentIDs, slugs []string) PostRevalidationRequestedEvent {
	return PostRevalidationRequestedEvent{
		BaseEvent:   NewBaseEvent(PostRevalidationRequested, source),
		DocumentIDs: documentIDs,
		Slugs:       slugs,
	}
}

// Empty 는 재생성할 대상이 하나도 없는지 확인한다.
func (e PostRevalidationRequestedEvent) Empty() bool {
	return len(e.DocumentIDs) == 0 && len(e.Slugs) == 0
}

// ErrUnknownEventType 은 이 서비스가 처리하지 않는 이벤트 타입이다.
var ErrUnknownEventType = errors.New("unknown event type")

// DeserializeEvent 이벤트 타입에 따라 적절한 구조체로 역직렬화
func DeserializeEvent(eventType EventType, data []byte) (any, error) {
	var event any
	switch eventType {
	case PostRevalidationRequested:
		event = &PostRevalidationRequestedEvent{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}
