// Package pagecache 는 글 페이지의 증분 정적 재생성(ISR)을 담당한다.
//
// 생성된 페이지는 revalidate 창(기본 1800초) 동안 그대로 제공되고, 창이 지나면
// 기존 페이지를 내보내면서 백그라운드에서 다시 만든다. 한 번도 만들어지지 않은
// slug 는 fallback 상태로 응답하고 생성을 시작한다.
package pagecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"spacetraveling/internal/logger"
	"spacetraveling/internal/trace"
	"spacetraveling/models"
)

const (
	DefaultTTL     = 1800 * time.Second
	DefaultTimeout = 30 * time.Second
)

type State int

const (
	Fresh State = iota
	Stale
	Fallback
	NotFound
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Fallback:
		return "fallback"
	case NotFound:
		return "not_found"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result 는 Lookup 결과다. Fallback 이면 Page 는 nil 이다.
type Result struct {
	State State
	Page  *models.Page
}

// GenerateFunc 는 slug 하나의 페이지를 새로 만든다.
// 문서가 없으면 에러 대신 NotFound 가 표시된 페이지를 반환한다.
type GenerateFunc func(ctx context.Context, slug string) (*models.Page, error)

// Recorder 는 캐시 동작 지표를 받는다. metrics.Recorder 가 구현한다.
type Recorder interface {
	ObserveGeneration(result string, d time.Duration)
	IncLookup(state string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveGeneration(string, time.Duration) {}
func (noopRecorder) IncLookup(string)                        {}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithTimeout 은 백그라운드 재생성 1회의 제한 시간이다.
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Cache) {
		if r != nil {
			c.rec = r
		}
	}
}

type Cache struct {
	store    Store
	generate GenerateFunc
	ttl      time.Duration
	timeout  time.Duration
	now      func() time.Time
	rec      Recorder

	group singleflight.Group
	wg    sync.WaitGroup

	// 없는 slug 표시는 저장소에 남기지 않고 이 프로세스 메모리에만 둔다.
	mu       sync.Mutex
	notFound map[string]*models.Page
}

func New(store Store, generate GenerateFunc, opts ...Option) *Cache {
	c := &Cache{
		store:    store,
		generate: generate,
		ttl:      DefaultTTL,
		timeout:  DefaultTimeout,
		now:      time.Now,
		rec:      noopRecorder{},
		notFound: make(map[string]*models.Page),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup 은 저장된 페이지와 그 상태를 반환한다.
// Stale 이거나 Fallback 이면 백그라운드 재생성을 시작한다.
func (c *Cache) Lookup(ctx context.Context, slug string) (Result, error) {
	page, err := c.store.Get(ctx, slug)
	if errors.Is(err, ErrMiss) {
		if marker, ok := c.notFoundMarker(slug); ok {
			if c.now().Sub(marker.GeneratedAt) >= c.ttl {
				c.regenerateAsync(ctx, slug)
			}
			return c.record(Result{State: NotFound, Page: marker}), nil
		}
		c.regenerateAsync(ctx, slug)
		return c.record(Result{State: Fallback}), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("pagecache lookup %s: %w", slug, err)
	}

	expired := c.now().Sub(page.GeneratedAt) >= c.ttl
	if expired {
		c.regenerateAsync(ctx, slug)
	}
	switch {
	case page.NotFound:
		return c.record(Result{State: NotFound, Page: page}), nil
	case expired:
		return c.record(Result{State: Stale, Page: page}), nil
	}
	return c.record(Result{State: Fresh, Page: page}), nil
}

func (c *Cache) record(r Result) Result {
	c.rec.IncLookup(r.State.String())
	return r
}

// Revalidate 는 slug 페이지를 즉시 다시 만들어 저장한다.
// 같은 slug 에 대한 동시 호출은 한 번의 생성으로 합쳐진다.
func (c *Cache) Revalidate(ctx context.Context, slug string) (*models.Page, error) {
	v, err, _ := c.group.Do(slug, func() (any, error) {
		return c.generateAndStore(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Page), nil
}

func (c *Cache) generateAndStore(ctx context.Context, slug string) (*models.Page, error) {
	start := c.now()
	page, err := c.generate(ctx, slug)
	if err != nil {
		c.rec.ObserveGeneration("error", c.now().Sub(start))
		return nil, fmt.Errorf("generate %s: %w", slug, err)
	}

	page.Slug = slug
	if page.GeneratedAt.IsZero() {
		page.GeneratedAt = c.now()
	}
	if page.NotFound {
		// 발행 취소/삭제된 글은 저장된 페이지를 지운다.
		if err := c.store.Delete(ctx, slug); err != nil {
			c.rec.ObserveGeneration("error", c.now().Sub(start))
			return nil, fmt.Errorf("delete %s: %w", slug, err)
		}
		c.markNotFound(page)
		c.rec.ObserveGeneration("not_found", c.now().Sub(start))
		return page, nil
	}

	if err := c.store.Put(ctx, page); err != nil {
		c.rec.ObserveGeneration("error", c.now().Sub(start))
		return nil, fmt.Errorf("store %s: %w", slug, err)
	}
	c.mu.Lock()
	delete(c.notFound, slug)
	c.mu.Unlock()
	c.rec.ObserveGeneration("ok", c.now().Sub(start))
	return page, nil
}

func (c *Cache) notFoundMarker(slug string) (*models.Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.notFound[slug]
	return p, ok
}

// markNotFound 는 표시를 남기면서 revalidate 창이 두 번 지난 표시를 정리한다.
// 임의 slug 요청이 이어져도 표시 수는 최근 창 안의 요청 수로 제한된다.
func (c *Cache) markNotFound(page *models.Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for slug, p := range c.notFound {
		if now.Sub(p.GeneratedAt) >= 2*c.ttl {
			delete(c.notFound, slug)
		}
	}
	c.notFound[page.Slug] = page
}

// regenerateAsync 는 요청 컨텍스트가 끝나도 재생성이 계속되도록 취소만 떼어낸다.
// 실패하면 기존 페이지를 그대로 둔다.
func (c *Cache) regenerateAsync(ctx context.Context, slug string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		if _, err := c.Revalidate(bg, slug); err != nil {
			logger.WarnWithFields("background regeneration failed", logger.Fields{
				"slug":       slug,
				"request_id": trace.RequestID(ctx),
				"error":      err.Error(),
			})
		}
	}()
}

// Prerender 는 slugs 를 최대 concurrency 개씩 동시에 생성한다. 하나라도 실패하면 에러다.
func (c *Cache) Prerender(ctx context.Context, slugs []string, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, slug := range slugs {
		g.Go(func() error {
			_, err := c.Revalidate(gctx, slug)
			return err
		})
	}
	return g.Wait()
}

// Missing 은 slugs 중 아직 생성된 적 없는 것만 돌려준다.
// 저장소가 SlugLister 면 한 번의 조회로 비교한다.
func (c *Cache) Missing(ctx context.Context, slugs []string) ([]string, error) {
	if lister, ok := c.store.(SlugLister); ok {
		stored, err := lister.ListSlugs(ctx)
		if err != nil {
			return nil, fmt.Errorf("pagecache list slugs: %w", err)
		}
		have := make(map[string]struct{}, len(stored))
		for _, slug := range stored {
			have[slug] = struct{}{}
		}
		var out []string
		for _, slug := range slugs {
			if _, ok := have[slug]; !ok {
				out = append(out, slug)
			}
		}
		return out, nil
	}

	var out []string
	for _, slug := range slugs {
		_, err := c.store.Get(ctx, slug)
		switch {
		case errors.Is(err, ErrMiss):
			out = append(out, slug)
		case err != nil:
			return nil, fmt.Errorf("pagecache missing %s: %w", slug, err)
		}
	}
	return out, nil
}

// Wait 는 진행 중인 백그라운드 재생성이 모두 끝날 때까지 기다린다.
func (c *Cache) Wait() {
	c.wg.Wait()
}
