package main

import (
	"context"
	"errors"

	"spacetraveling/eventbus"
	"spacetraveling/events"
	"spacetraveling/internal/logger"
	"spacetraveling/internal/trace"
)

// revalidationHandler 는 services.RevalidationService 가 구현한다.
type revalidationHandler interface {
	Handle(ctx context.Context, evt events.PostRevalidationRequestedEvent) ([]string, error)
}

// newEventHandler 는 재검증 토픽의 이벤트를 타입별로 나눠 처리한다.
// 에러를 반환하면 eventbus 가 retry 토픽 또는 DLQ 로 보낸다.
func newEventHandler(svc revalidationHandler) eventbus.EventHandler {
	return func(ctx context.Context, ev eventbus.Event) error {
		// 이벤트 타입만 먼저 파싱 (BaseEvent.Type 은 top-level)
		base, err := eventbus.DecodeJSON[events.BaseEvent](ev)
		if err != nil {
			return err
		}
		decoded, err := events.DeserializeEvent(base.Type, ev.Payload)
		if errors.Is(err, events.ErrUnknownEventType) {
			// 다른 서비스용 이벤트는 무시 (커밋)
			logger.DebugWithFields("skipping unknown event", logger.Fields{"event_id": ev.ID, "type": base.Type})
			return nil
		}
		if err != nil {
			return err
		}

		ctx = trace.With(ctx, ev.RequestID)
		switch e := decoded.(type) {
		case *events.PostRevalidationRequestedEvent:
			_, err := svc.Handle(ctx, *e)
			return err
		}
		return nil
	}
}
