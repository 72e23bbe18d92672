package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"spacetraveling/eventbus"
	"spacetraveling/events"
	"spacetraveling/internal/logger"
	"spacetraveling/internal/trace"
	"spacetraveling/models"
)

// SlugResolver 는 Prismic 문서 id 를 posts uid 로 바꾼다. page.Generator 가 구현한다.
type SlugResolver interface {
	SlugsByID(ctx context.Context, ids []string) ([]string, error)
}

// PageRevalidator 는 slug 페이지를 즉시 다시 만든다. pagecache.Cache 가 구현한다.
type PageRevalidator interface {
	Revalidate(ctx context.Context, slug string) (*models.Page, error)
}

// RevalidationService 는 재검증 요청 하나를 처리한다.
type RevalidationService struct {
	resolver SlugResolver
	pages    PageRevalidator
}

func NewRevalidationService(resolver SlugResolver, pages PageRevalidator) *RevalidationService {
	return &RevalidationService{resolver: resolver, pages: pages}
}

// Handle 은 문서 id 를 slug 로 바꾸고 명시된 slug 와 합쳐 중복 없이 재생성한다.
// 일부 slug 가 실패해도 나머지는 계속 진행하고 에러를 모아 반환한다.
func (s *RevalidationService) Handle(ctx context.Context, evt events.PostRevalidationRequestedEvent) ([]string, error) {
	resolved, err := s.resolver.SlugsByID(ctx, evt.DocumentIDs)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	var slugs []string
	for _, slug := range append(append([]string{}, evt.Slugs...), resolved...) {
		if _, ok := seen[slug]; ok || slug == "" {
			continue
		}
		seen[slug] = struct{}{}
		slugs = append(slugs, slug)
	}

	var errs []error
	for _, slug := range slugs {
		if _, err := s.pages.Revalidate(ctx, slug); err != nil {
			errs = append(errs, fmt.Errorf("revalidate %s: %w", slug, err))
		}
	}
	logger.InfoWithFields("revalidation handled", logger.Fields{
		"event_id":   evt.ID,
		"source":     evt.Source,
		"slugs":      slugs,
		"failed":     len(errs),
		"request_id": trace.RequestID(ctx),
	})
	return slugs, errors.Join(errs...)
}

// Requester 는 재검증 요청을 접수한다. 처리 완료를 기다리지 않는다.
type Requester interface {
	Request(ctx context.Context, evt events.PostRevalidationRequestedEvent) error
}

// LocalRequester 는 같은 프로세스에서 백그라운드로 처리한다. (Kafka 미사용 시)
type LocalRequester struct {
	svc *RevalidationService
	wg  sync.WaitGroup
}

func NewLocalRequester(svc *RevalidationService) *LocalRequester {
	return &LocalRequester{svc: svc}
}

func (l *LocalRequester) Request(ctx context.Context, evt events.PostRevalidationRequestedEvent) error {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if _, err := l.svc.Handle(context.WithoutCancel(ctx), evt); err != nil {
			logger.ErrorWithFields("local revalidation failed", logger.Fields{
				"event_id":   evt.ID,
				"error":      err.Error(),
				"request_id": trace.RequestID(ctx),
			})
		}
	}()
	return nil
}

// Wait 는 접수된 요청이 모두 처리될 때까지 기다린다.
func (l *LocalRequester) Wait() {
	l.wg.Wait()
}

// KafkaRequester 는 요청을 이벤트로 발행해 cmd/revalidator 가 처리하게 한다.
type KafkaRequester struct {
	bus   eventbus.EventBus
	topic eventbus.Topic
}

func NewKafkaRequester(bus eventbus.EventBus, topic eventbus.Topic) *KafkaRequester {
	return &KafkaRequester{bus: bus, topic: topic}
}

func (k *KafkaRequester) Request(ctx context.Context, evt events.PostRevalidationRequestedEvent) error {
	msg, err := eventbus.NewJSONEvent(ctx, evt.ID, evt, 0)
	if err != nil {
		return err
	}
	if err := k.bus.Publish(ctx, k.topic.Base(), msg); err != nil {
		return fmt.Errorf("publish revalidation %s: %w", evt.ID, err)
	}
	return nil
}
