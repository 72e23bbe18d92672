package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"spacetraveling/internal/logger"
	"spacetraveling/internal/trace"
)

// SlugSource 는 page.Generator 가 구현한다.
type SlugSource interface {
	Slugs(ctx context.Context) ([]string, error)
}

// Prerenderer 는 pagecache.Cache 가 구현한다.
type Prerenderer interface {
	Missing(ctx context.Context, slugs []string) ([]string, error)
	Prerender(ctx context.Context, slugs []string, concurrency int) error
}

// Discover 는 경로 목록을 다시 받아 아직 생성되지 않은 slug 만 미리 만든다.
// 이미 있는 페이지는 요청 시 revalidate 창 기준으로 갱신되므로 건드리지 않는다.
func Discover(ctx context.Context, src SlugSource, pages Prerenderer, concurrency int) (int, error) {
	slugs, err := src.Slugs(ctx)
	if err != nil {
		return 0, err
	}
	missing, err := pages.Missing(ctx, slugs)
	if err != nil {
		return 0, err
	}
	if len(missing) == 0 {
		return 0, nil
	}
	if err := pages.Prerender(ctx, missing, concurrency); err != nil {
		return 0, err
	}
	return len(missing), nil
}

// Scheduler wraps gocron for the periodic path discovery job.
type Scheduler struct {
	scheduler gocron.Scheduler
}

func New() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// ScheduleDiscovery 는 시작 직후 한 번, 이후 interval 마다 Discover 를 실행한다.
// 이전 실행이 끝나지 않았으면 이번 실행은 건너뛴다.
func (s *Scheduler) ScheduleDiscovery(interval, timeout time.Duration, src SlugSource, pages Prerenderer, concurrency int) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(trace.With(context.Background(), ""), timeout)
			defer cancel()

			start := time.Now()
			n, err := Discover(ctx, src, pages, concurrency)
			fields := logger.Fields{
				"request_id": trace.RequestID(ctx),
				"generated":  n,
				"duration":   time.Since(start).String(),
			}
			if err != nil {
				fields["error"] = err.Error()
				logger.ErrorWithFields("path discovery failed", fields)
				return
			}
			logger.InfoWithFields("path discovery finished", fields)
		}),
		gocron.WithName("post-path-discovery"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("schedule path discovery: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
}

func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}
