package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"spacetraveling/internal/logger"
	"spacetraveling/page"
	"spacetraveling/pagecache"
)

// 정적 산출물 레이아웃
//
//	<out>/post/paths.json
//	<out>/post/_fallback.html
//	<out>/post/<slug>/index.html
//	<out>/post/<slug>.json
const (
	postDir      = "post"
	pathsFile    = "paths.json"
	fallbackFile = "_fallback.html"
)

type pathSource interface {
	StaticPaths(ctx context.Context) (page.PathsResult, error)
}

type exporter struct {
	paths       pathSource
	generate    pagecache.GenerateFunc
	fallback    []byte
	outDir      string
	concurrency int
}

type summary struct {
	Written  int
	Skipped  []string
	Duration time.Duration
}

// run 은 경로 목록을 받아 모든 페이지를 동시에 생성하고 파일로 쓴다.
// 페이지 하나라도 실패하면 아무것도 쓰지 않고 에러를 반환한다.
func (e *exporter) run(ctx context.Context) (summary, error) {
	start := time.Now()

	paths, err := e.paths.StaticPaths(ctx)
	if err != nil {
		return summary{}, fmt.Errorf("static paths: %w", err)
	}
	slugs := make([]string, 0, len(paths.Paths))
	for _, p := range paths.Paths {
		slugs = append(slugs, p.Params.Slug)
	}

	store := pagecache.NewMemoryStore()
	cache := pagecache.New(store, e.generate)
	if err := cache.Prerender(ctx, slugs, e.concurrency); err != nil {
		return summary{}, err
	}

	root := filepath.Join(e.outDir, postDir)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return summary{}, err
	}
	pathsJSON, err := json.Marshal(paths)
	if err != nil {
		return summary{}, err
	}
	if err := os.WriteFile(filepath.Join(root, pathsFile), pathsJSON, 0o644); err != nil {
		return summary{}, err
	}
	if err := os.WriteFile(filepath.Join(root, fallbackFile), e.fallback, 0o644); err != nil {
		return summary{}, err
	}

	var sum summary
	for _, slug := range slugs {
		p, err := store.Get(ctx, slug)
		if errors.Is(err, pagecache.ErrMiss) || (err == nil && p.NotFound) {
			// 목록 조회와 생성 사이에 문서가 삭제된 경우
			logger.WarnWithFields("post disappeared during export", logger.Fields{"slug": slug})
			sum.Skipped = append(sum.Skipped, slug)
			continue
		}
		if err != nil {
			return sum, err
		}

		dir := filepath.Join(root, slug)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return sum, err
		}
		if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(p.HTML), 0o644); err != nil {
			return sum, err
		}
		if err := os.WriteFile(filepath.Join(root, slug+".json"), p.Props, 0o644); err != nil {
			return sum, err
		}
		sum.Written++
	}
	sum.Duration = time.Since(start)
	return sum, nil
}
