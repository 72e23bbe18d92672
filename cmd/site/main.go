package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spacetraveling/cmd/site/router"
	"spacetraveling/cmd/site/scheduler"
	"spacetraveling/config"
	"spacetraveling/db"
	"spacetraveling/eventbus"
	"spacetraveling/internal/logger"
	"spacetraveling/metrics"
	"spacetraveling/page"
	"spacetraveling/pagecache"
	"spacetraveling/post"
	"spacetraveling/prismic"
	"spacetraveling/renderer"
	"spacetraveling/repositories"
	"spacetraveling/services"
)

func main() {
	config.InitApp()
	cfg := config.GetConfig()
	logger.Init(cfg.Logging.Level, "site")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	content := prismic.New(cfg.Prismic)
	gen := page.NewGenerator(content, cfg.Prismic.PaginateEnabled())
	builder := page.NewBuilder(gen, rdr)
	fallbackHTML, err := builder.Fallback()
	if err != nil {
		logger.Log.Errorf("failed to render fallback page: %v", err)
		os.Exit(1)
	}

	var store pagecache.Store = pagecache.NewMemoryStore()
	if cfg.Mongo.URI != "" {
		if err := db.Init(ctx); err != nil {
			logger.Log.Errorf("failed to initialize MongoDB: %v", err)
			os.Exit(1)
		}
		defer db.Close(context.Background())
		store = repositories.NewPageRepository(db.Database())
	}

	rec := metrics.NewRecorder(nil)
	cache := pagecache.New(store, builder.Build,
		pagecache.WithTTL(page.Revalidate*time.Second),
		pagecache.WithTimeout(time.Duration(cfg.Prismic.TimeoutSeconds)*3*time.Second),
		pagecache.WithRecorder(rec),
	)
	defer cache.Wait()

	var requester services.Requester
	if cfg.Kafka.Enabled {
		if err := eventbus.EnsureTopics(ctx, cfg.Kafka.BootstrapServers, eventbus.TopicPostRevalidation, cfg.Kafka.Partitions); err != nil {
			logger.Log.Errorf("failed to ensure eventbus topics: %v", err)
		}
		bus, err := eventbus.NewKafkaEventBus(cfg.Kafka)
		if err != nil {
			logger.Log.Errorf("failed to create event bus: %v", err)
			os.Exit(1)
		}
		defer bus.Close()
		requester = services.NewKafkaRequester(bus, eventbus.TopicPostRevalidation)
	} else {
		local := services.NewLocalRequester(services.NewRevalidationService(gen, cache))
		defer local.Wait()
		requester = local
	}

	sched, err := scheduler.New()
	if err != nil {
		logger.Log.Errorf("failed to create scheduler: %v", err)
		os.Exit(1)
	}
	if err := sched.ScheduleDiscovery(page.Revalidate*time.Second, 10*time.Minute, gen, cache, cfg.Site.PrerenderConcurrency); err != nil {
		logger.Log.Errorf("failed to schedule path discovery: %v", err)
		os.Exit(1)
	}
	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			logger.Log.Warnf("scheduler shutdown: %v", err)
		}
	}()

	srv := &http.Server{
		Addr: cfg.Site.Addr,
		Handler: router.New(router.Deps{
			Pages:          cache,
			FallbackHTML:   fallbackHTML,
			Generator:      gen,
			Content:        content,
			Requester:      requester,
			Counter:        rec,
			WebhookSecret:  cfg.Prismic.WebhookSecret,
			AllowedOrigins: cfg.Site.AllowedOrigins,
			Metrics:        rec.Handler(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoWithFields("site server listening", logger.Fields{"addr": cfg.Site.Addr, "store": storeName(cfg), "kafka": cfg.Kafka.Enabled})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Errorf("site server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Log.Info("received shutdown signal, shutting down site server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorf("site server shutdown: %v", err)
	}
}

func storeName(cfg config.AppConfig) string {
	if cfg.Mongo.URI != "" {
		return "mongo"
	}
	return "memory"
}
