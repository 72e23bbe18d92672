package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"spacetraveling/config"
	"spacetraveling/internal/logger"
	"spacetraveling/internal/trace"
	"spacetraveling/page"
	"spacetraveling/post"
	"spacetraveling/prismic"
	"spacetraveling/renderer"
)

// build 는 모든 post 페이지를 site.output_dir 아래 정적 파일로 내보낸다.
func main() {
	config.InitApp()
	cfg := config.GetConfig()
	logger.Init(cfg.Logging.Level, "build")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = trace.With(ctx, "")

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
	builder := page.NewBuilder(gen, rdr)
	fallback, err := builder.Fallback()
	if err != nil {
		logger.Log.Errorf("failed to render fallback page: %v", err)
		os.Exit(1)
	}

	exp := &exporter{
		paths:       gen,
		generate:    builder.Build,
		fallback:    fallback,
		outDir:      cfg.Site.OutputDir,
		concurrency: cfg.Site.PrerenderConcurrency,
	}
	sum, err := exp.run(ctx)
	if err != nil {
		logger.ErrorWithFields("static export failed", logger.Fields{"error": err.Error(), "request_id": trace.RequestID(ctx)})
		os.Exit(1)
	}
	logger.InfoWithFields("static export finished", logger.Fields{
		"out":        cfg.Site.OutputDir,
		"written":    sum.Written,
		"skipped":    sum.Skipped,
		"duration":   sum.Duration.String(),
		"request_id": trace.RequestID(ctx),
	})
}
