package page

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"spacetraveling/internal/logger"
	"spacetraveling/internal/trace"
	"spacetraveling/models"
	"spacetraveling/prismic"
	"spacetraveling/renderer"
)

// Builder 는 props 로드와 렌더링을 묶어 저장 가능한 페이지를 만든다.
type Builder struct {
	gen      *Generator
	renderer *renderer.Renderer
}

func NewBuilder(gen *Generator, r *renderer.Renderer) *Builder {
	return &Builder{gen: gen, renderer: r}
}

// Build 는 pagecache.GenerateFunc 로 쓰인다.
// 문서가 없으면 에러 대신 NotFound 페이지를 반환해 404 를 캐시한다.
func (b *Builder) Build(ctx context.Context, slug string) (*models.Page, error) {
	start := time.Now()
	fields := logger.Fields{"slug": slug, "request_id": trace.RequestID(ctx)}

	props, err := b.gen.StaticProps(ctx, slug)
	if errors.Is(err, prismic.ErrNotFound) {
		logger.InfoWithFields("post not found", fields)
		return &models.Page{Slug: slug, NotFound: true, GeneratedAt: time.Now()}, nil
	}
	if err != nil {
		return nil, err
	}

	var html bytes.Buffer
	if err := b.renderer.Render(&html, renderer.StateReady, &props.Props.Post); err != nil {
		return nil, fmt.Errorf("render %s: %w", slug, err)
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("marshal props %s: %w", slug, err)
	}

	elapsed := time.Since(start)
	fields["duration"] = elapsed.String()
	logger.DebugWithFields("post page generated", fields)
	return &models.Page{
		Slug:        slug,
		HTML:        html.String(),
		Props:       raw,
		GeneratedAt: time.Now(),
		DurationMs:  elapsed.Milliseconds(),
	}, nil
}

// Fallback 은 아직 생성되지 않은 slug 에 내보내는 로딩 화면이다.
func (b *Builder) Fallback() ([]byte, error) {
	return b.renderer.RenderBytes(renderer.StateFallback, nil)
}
