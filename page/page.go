// Package page 는 글 페이지의 정적 생성 계약을 구현한다.
//
// StaticPaths 는 미리 만들 slug 목록을, StaticProps 는 slug 하나의 props 를 만든다.
// 두 결과의 JSON 모양은 {paths, fallback} / {props: {post}, revalidate} 로 고정이다.
package page

import (
	"context"
	"fmt"

	"spacetraveling/post"
	"spacetraveling/prismic"
)

// Revalidate 는 생성된 페이지를 재사용하는 시간(초)이다.
const Revalidate = 1800

type Params struct {
	Slug string `json:"slug"`
}

type Path struct {
	Params Params `json:"params"`
}

type PathsResult struct {
	Paths    []Path `json:"paths"`
	Fallback bool   `json:"fallback"`
}

type Props struct {
	Post post.Post `json:"post"`
}

type PropsResult struct {
	Props      Props `json:"props"`
	Revalidate int   `json:"revalidate"`
}

// ContentSource 는 prismic.Client 중 페이지 생성에 쓰는 부분이다.
type ContentSource interface {
	Query(ctx context.Context, preds []prismic.Predicate, opts prismic.QueryOptions) (prismic.SearchResponse, error)
	QueryAll(ctx context.Context, preds []prismic.Predicate, opts prismic.QueryOptions) ([]prismic.Document, error)
	GetByUID(ctx context.Context, docType, uid string, opts prismic.QueryOptions) (prismic.Document, error)
}

// listOptions 는 경로 수집용 조회 옵션이다. 최신 글부터, uid 외 data 는 title 만 받는다.
var listOptions = prismic.QueryOptions{
	Orderings: "[document.first_publication_date desc]",
	Fetch:     []string{post.DocumentType + ".title"},
}

type Generator struct {
	source   ContentSource
	paginate bool
}

// NewGenerator 는 paginate 가 false 면 경로 수집 시 첫 결과 페이지만 읽는다.
func NewGenerator(source ContentSource, paginate bool) *Generator {
	return &Generator{source: source, paginate: paginate}
}

// Slugs 는 posts 문서의 uid 를 처음 나온 순서대로 중복 없이 반환한다. 빈 uid 는 건너뛴다.
func (g *Generator) Slugs(ctx context.Context) ([]string, error) {
	docs, err := g.documents(ctx, []prismic.Predicate{prismic.At("document.type", post.DocumentType)})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", post.DocumentType, err)
	}
	return uniqueUIDs(docs), nil
}

// SlugsByID 는 문서 id 목록을 posts uid 로 바꾼다. posts 가 아닌 문서는 무시한다.
func (g *Generator) SlugsByID(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	docs, err := g.source.QueryAll(ctx, []prismic.Predicate{
		prismic.At("document.type", post.DocumentType),
		prismic.In("document.id", ids...),
	}, listOptions)
	if err != nil {
		return nil, fmt.Errorf("resolve %d document ids: %w", len(ids), err)
	}
	return uniqueUIDs(docs), nil
}

func (g *Generator) documents(ctx context.Context, preds []prismic.Predicate) ([]prismic.Document, error) {
	if g.paginate {
		return g.source.QueryAll(ctx, preds, listOptions)
	}
	resp, err := g.source.Query(ctx, preds, listOptions)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func uniqueUIDs(docs []prismic.Document) []string {
	seen := make(map[string]struct{}, len(docs))
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.UID == "" {
			continue
		}
		if _, ok := seen[d.UID]; ok {
			continue
		}
		seen[d.UID] = struct{}{}
		out = append(out, d.UID)
	}
	return out
}

// StaticPaths 는 미리 생성할 경로 목록이다. 목록에 없는 slug 는 첫 요청 때 생성된다.
func (g *Generator) StaticPaths(ctx context.Context) (PathsResult, error) {
	slugs, err := g.Slugs(ctx)
	if err != nil {
		return PathsResult{}, err
	}
	paths := make([]Path, 0, len(slugs))
	for _, s := range slugs {
		paths = append(paths, Path{Params: Params{Slug: s}})
	}
	return PathsResult{Paths: paths, Fallback: true}, nil
}

// StaticProps 는 slug 의 글을 읽어 props 를 만든다.
// 문서가 없으면 prismic.ErrNotFound 가 감싸진 에러를 그대로 돌려준다.
func (g *Generator) StaticProps(ctx context.Context, slug string) (PropsResult, error) {
	doc, err := g.source.GetByUID(ctx, post.DocumentType, slug, prismic.QueryOptions{Fetch: post.FetchFields()})
	if err != nil {
		return PropsResult{}, err
	}
	p, err := post.FromDocument(doc)
	if err != nil {
		return PropsResult{}, err
	}
	return PropsResult{Props: Props{Post: p}, Revalidate: Revalidate}, nil
}
