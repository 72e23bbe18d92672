package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacetraveling/dto"
	"spacetraveling/events"
	"spacetraveling/models"
	"spacetraveling/page"
	"spacetraveling/pagecache"
	"spacetraveling/post"
	"spacetraveling/prismic"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubPages map[string]pagecache.Result

func (s stubPages) Lookup(_ context.Context, slug string) (pagecache.Result, error) {
	if slug == "explode" {
		return pagecache.Result{}, errors.New("store down")
	}
	if r, ok := s[slug]; ok {
		return r, nil
	}
	return pagecache.Result{State: pagecache.Fallback}, nil
}

func serve(h gin.HandlerFunc, method, route, target, body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, route, h)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	return rec
}

func TestPostPageHandlerStates(t *testing.T) {
	pages := stubPages{
		"fresh": {State: pagecache.Fresh, Page: &models.Page{HTML: "<h1>fresh</h1>"}},
		"stale": {State: pagecache.Stale, Page: &models.Page{HTML: "<h1>stale</h1>"}},
		"sumiu": {State: pagecache.NotFound, Page: &models.Page{NotFound: true}},
	}
	h := PostPageHandler(pages, []byte("<div>Carregando...</div>"))

	testCases := []struct {
		slug         string
		wantStatus   int
		wantBody     string
		wantState    string
		wantCacheCtl string
	}{
		{"fresh", http.StatusOK, "<h1>fresh</h1>", "fresh", "s-maxage=1800, stale-while-revalidate"},
		{"stale", http.StatusOK, "<h1>stale</h1>", "stale", "s-maxage=1800, stale-while-revalidate"},
		{"novo", http.StatusOK, "<div>Carregando...</div>", "fallback", "no-store"},
		{"sumiu", http.StatusNotFound, "post not found", "not_found", "no-store"},
	}
	for _, tc := range testCases {
		t.Run(tc.slug, func(t *testing.T) {
			rec := serve(h, http.MethodGet, "/post/:slug", "/post/"+tc.slug, "")
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantBody)
			assert.Equal(t, tc.wantState, rec.Header().Get(headerPageState))
			assert.Equal(t, tc.wantCacheCtl, rec.Header().Get("Cache-Control"))
		})
	}
}

func TestPostPageHandlerError(t *testing.T) {
	rec := serve(PostPageHandler(stubPages{}, nil), http.MethodGet, "/post/:slug", "/post/explode", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type stubGenerator struct {
	paths page.PathsResult
	err   error
}

func (s stubGenerator) StaticPaths(context.Context) (page.PathsResult, error) {
	return s.paths, s.err
}

func (s stubGenerator) StaticProps(_ context.Context, slug string) (page.PropsResult, error) {
	if s.err != nil {
		return page.PropsResult{}, s.err
	}
	if slug != "como-utilizar-hooks" {
		return page.PropsResult{}, fmt.Errorf("prismic GetByUID posts/%s: %w", slug, prismic.ErrNotFound)
	}
	return page.PropsResult{Props: page.Props{Post: post.Post{UID: slug}}, Revalidate: page.Revalidate}, nil
}

func TestPathsHandler(t *testing.T) {
	gen := stubGenerator{paths: page.PathsResult{Paths: []page.Path{{Params: page.Params{Slug: "a"}}}, Fallback: true}}
	rec := serve(PathsHandler(gen), http.MethodGet, "/api/posts/paths", "/api/posts/paths", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"paths":[{"params":{"slug":"a"}}],"fallback":true}`, rec.Body.String())

	rec = serve(PathsHandler(stubGenerator{err: errors.New("down")}), http.MethodGet, "/api/posts/paths", "/api/posts/paths", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPropsHandler(t *testing.T) {
	h := PropsHandler(stubGenerator{})

	rec := serve(h, http.MethodGet, "/api/posts/:slug", "/api/posts/como-utilizar-hooks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1800), body["revalidate"])

	rec = serve(h, http.MethodGet, "/api/posts/:slug", "/api/posts/nao-existe", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type stubRequester struct {
	got []events.PostRevalidationRequestedEvent
	err error
}

func (s *stubRequester) Request(_ context.Context, evt events.PostRevalidationRequestedEvent) error {
	s.got = append(s.got, evt)
	return s.err
}

type stubCounter map[string]int

func (s stubCounter) IncRevalidation(source, outcome string) { s[source+"/"+outcome]++ }

func TestRevalidateHandler(t *testing.T) {
	testCases := []struct {
		name        string
		secret      string
		body        string
		wantStatus  int
		wantOutcome string
		wantEvents  int
	}{
		{"invalid body", "s3cret", `{`, http.StatusBadRequest, "", 0},
		{"disabled", "", `{"type":"api-update","secret":"x","documents":["YE1"]}`, http.StatusForbidden, "webhook/disabled", 0},
		{"wrong secret", "s3cret", `{"type":"api-update","secret":"nope","documents":["YE1"]}`, http.StatusUnauthorized, "webhook/unauthorized", 0},
		{"test trigger", "s3cret", `{"type":"test-trigger","secret":"s3cret"}`, http.StatusOK, "webhook/test", 0},
		{"empty", "s3cret", `{"type":"api-update","secret":"s3cret","documents":[]}`, http.StatusOK, "webhook/empty", 0},
		{"webhook", "s3cret", `{"type":"api-update","secret":"s3cret","documents":["YE1","YE2"]}`, http.StatusAccepted, "webhook/accepted", 1},
		{"admin slugs", "s3cret", `{"secret":"s3cret","slugs":["como-utilizar-hooks"]}`, http.StatusAccepted, "admin/accepted", 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := &stubRequester{}
			counter := stubCounter{}
			rec := serve(RevalidateHandler(tc.secret, req, counter), http.MethodPost, "/api/revalidate", "/api/revalidate", tc.body)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Len(t, req.got, tc.wantEvents)
			if tc.wantOutcome != "" {
				assert.Equal(t, 1, counter[tc.wantOutcome])
			}
		})
	}
}

func TestRevalidateHandlerPassesDocuments(t *testing.T) {
	req := &stubRequester{}
	rec := serve(RevalidateHandler("s3cret", req, stubCounter{}), http.MethodPost, "/api/revalidate", "/api/revalidate",
		`{"type":"api-update","secret":"s3cret","documents":["YE1"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp dto.RevalidateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, req.got, 1)
	assert.True(t, resp.Revalidated)
	assert.Equal(t, req.got[0].ID, resp.EventID)
	assert.Equal(t, []string{"YE1"}, req.got[0].DocumentIDs)
	assert.Equal(t, "api-update", req.got[0].WebhookType)
}

func TestRevalidateHandlerRequesterError(t *testing.T) {
	counter := stubCounter{}
	rec := serve(RevalidateHandler("s3cret", &stubRequester{err: errors.New("kafka down")}, counter), http.MethodPost, "/api/revalidate", "/api/revalidate",
		`{"type":"api-update","secret":"s3cret","documents":["YE1"]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1, counter["webhook/failed"])
}

type stubHealth struct{ err error }

func (s stubHealth) Health(context.Context) error { return s.err }

func TestHealthHandler(t *testing.T) {
	rec := serve(HealthHandler(stubHealth{}), http.MethodGet, "/health", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(HealthHandler(stubHealth{err: errors.New("timeout")}), http.MethodGet, "/health", "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}
