package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"spacetraveling/config"
	"spacetraveling/db"
	"spacetraveling/eventbus"
	"spacetraveling/internal/logger"
	"spacetraveling/page"
	"spacetraveling/pagecache"
	"spacetraveling/post"
	"spacetraveling/prismic"
	"spacetraveling/renderer"
	"spacetraveling/repositories"
	"spacetraveling/services"
)

// revalidator 는 재검증 이벤트를 소비해 MongoDB 의 페이지를 다시 만든다.
// 사이트 서버와 같은 pages 컬렉션을 공유해야 하므로 MONGO_URI 가 필수다.
func main() {
	config.InitApp()
	cfg := config.GetConfig()
	logger.Init(cfg.Logging.Level, "revalidator")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Mongo.URI == "" {
		logger.Log.Error("revalidator requires mongo.uri (MONGO_URI)")
		os.Exit(1)
	}
	if err := db.Init(ctx); err != nil {
		logger.Log.Errorf("failed to initialize MongoDB: %v", err)
		os.Exit(1)
	}
	defer db.Close(context.Background())

	locale, err := post.LookupLocale(cfg.Site.Locale, cfg.Site.Timezone)
	if err != nil {
		logger.Log.Errorf("invalid locale settings: %v", err)
		os.Exit(1)
	}
	rdr, err := renderer.New(locale, cfg.Site.Title)
	if err != nil {
		logger.Log.Errorf("failed to load templates: %v", err)
		os.Exit(1)
	}

	gen := page.NewGenerator(prismic.New(cfg.Prismic), cfg.Prismic.PaginateEnabled())
	cache := pagecache.New(repositories.NewPageRepository(db.Database()), page.NewBuilder(gen, rdr).Build,
		pagecache.WithTTL(page.Revalidate*time.Second),
	)
	svc := services.NewRevalidationService(gen, cache)

	// EventBus 초기화 및 토픽 보장
	for _, t := range eventbus.AllTopics {
		if err := eventbus.EnsureTopics(ctx, cfg.Kafka.BootstrapServers, t, cfg.Kafka.Partitions); err != nil {
			logger.Log.Errorf("failed to ensure eventbus topics for %s: %v", t.Base(), err)
		}
	}
	bus, err := eventbus.NewKafkaEventBus(cfg.Kafka)
	if err != nil {
		logger.Log.Errorf("failed to create event bus: %v", err)
		os.Exit(1)
	}
	defer bus.Close()

	groupID := cfg.Kafka.GroupID
	handler := newEventHandler(svc)

	logger.Log.Info("starting revalidator service with eventbus...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	// 메인 구독
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := bus.Subscribe(ctx, groupID, eventbus.TopicPostRevalidation, handler); err != nil && !errors.Is(err, context.Canceled) {
			logger.Log.Errorf("eventbus subscribe error: %v", err)
		}
	}()

	// 재주입기 (지연 토픽 -> 기본 토픽)
	for _, t := range eventbus.AllTopics {
		topic := t
		wg.Add(1)
		go func() {
			defer wg.Done()
			topicGroupID := groupID + "-retry-" + strings.ReplaceAll(topic.Base(), ".", "-")
			if err := bus.StartRetryReinjector(ctx, topicGroupID, topic); err != nil && !errors.Is(err, context.Canceled) {
				logger.Log.Errorf("eventbus retry reinjector error for %s: %v", topic.Base(), err)
			}
		}()
	}

	<-sigChan
	logger.Log.Info("received shutdown signal, shutting down revalidator service...")

	cancel()
	wg.Wait()

	logger.Log.Info("revalidator service stopped")
}
