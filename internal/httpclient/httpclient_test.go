package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacetraveling/internal/trace"
)

func TestNewRequestJoinsPathAndQuery(t *testing.T) {
	c := NewBaseClient("https://repo.cdn.prismic.io/api/v2", Config{})

	req, err := c.NewRequest(context.Background(), http.MethodGet, "/documents/search", url.Values{"page": {"2"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://repo.cdn.prismic.io/api/v2/documents/search?page=2", req.URL.String())
}

func TestNewRequestRejectsQueryInPath(t *testing.T) {
	c := NewBaseClient("https://repo.cdn.prismic.io/api/v2", Config{})

	_, err := c.NewRequest(context.Background(), http.MethodGet, "/documents/search?page=1", nil, nil)
	assert.Error(t, err)
}

func TestRoundTripPropagatesTraceHeaders(t *testing.T) {
	var gotRequestID, gotSpan string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRequestID = r.Header.Get(trace.HeaderRequestID)
		gotSpan = r.Header.Get(trace.HeaderSpanID)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewBaseClient(srv.URL, Config{})
	ctx := trace.With(context.Background(), "req-42")
	req, err := c.NewRequest(ctx, http.MethodGet, "/", nil, nil)
	require.NoError(t, err)

	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "req-42", gotRequestID)
	assert.Equal(t, "1", gotSpan)
	// 호출자의 요청은 그대로여야 한다.
	assert.Empty(t, req.Header.Get(trace.HeaderRequestID))
	assert.Empty(t, req.Header.Get(trace.HeaderSpanID))
}

func TestRedactHidesAccessToken(t *testing.T) {
	u, _ := url.Parse("https://repo.cdn.prismic.io/api/v2?access_token=secret&ref=abc")
	got := redact(u)
	assert.NotContains(t, got, "secret")
	assert.Contains(t, got, "ref=abc")
}
