package renderer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacetraveling/post"
	"spacetraveling/richtext"
)

func newRenderer(t *testing.T, loc post.Locale) *Renderer {
	t.Helper()
	r, err := New(loc, "spacetraveling")
	require.NoError(t, err)
	return r
}

func samplePost(words int) *post.Post {
	date := "2021-03-15T12:00:00Z"
	return &post.Post{
		UID:                  "como-utilizar-hooks",
		FirstPublicationDate: &date,
		Data: post.Data{
			Title:  "Como utilizar Hooks",
			Banner: post.Banner{URL: "https://images.prismic.io/banner.png"},
			Author: "Joseph Oliveira",
			Content: []post.Content{{
				Heading: "Proin et varius",
				Body: richtext.RichText{
					{Type: richtext.Paragraph, Text: strings.TrimSpace(strings.Repeat("lorem ", words)), Spans: []richtext.Span{{Start: 0, End: 5, Type: richtext.Strong}}},
				},
			}},
		},
	}
}

func TestRenderFallbackWithoutPost(t *testing.T) {
	r := newRenderer(t, post.PtBR)

	var buf bytes.Buffer
	require.NotPanics(t, func() {
		require.NoError(t, r.Render(&buf, StateFallback, nil))
	})
	out := buf.String()
	assert.Contains(t, out, "<div>Carregando...</div>")
	assert.Contains(t, out, `<meta http-equiv="refresh" content="2">`)
	assert.Contains(t, out, `<html lang="pt-BR">`)
	assert.NotContains(t, out, "<article")
}

func TestRenderReadyMetadata(t *testing.T) {
	r := newRenderer(t, post.EnUS)

	out, err := r.RenderBytes(StateReady, samplePost(400))
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, `<img src="https://images.prismic.io/banner.png" alt="banner">`)
	assert.Contains(t, html, "<h1>Como utilizar Hooks</h1>")
	assert.Contains(t, html, "15 Mar 2021</time>")
	assert.Contains(t, html, "Joseph Oliveira</span>")
	assert.Contains(t, html, "2 min</span>")
	assert.Contains(t, html, "icon-calendar")
	assert.Contains(t, html, "icon-user")
	assert.Contains(t, html, "icon-clock")
	assert.Contains(t, html, "<h3>Proin et varius</h3>")
	assert.NotContains(t, html, "http-equiv")
}

func TestRenderInjectsRichTextRaw(t *testing.T) {
	r := newRenderer(t, post.PtBR)

	out, err := r.RenderBytes(StateReady, samplePost(3))
	require.NoError(t, err)
	assert.Contains(t, string(out), `<div class="postContent"><p><strong>lorem</strong> lorem lorem</p></div>`)
	assert.Contains(t, string(out), "15 mar 2021")
}

func TestRenderEscapesPlainFields(t *testing.T) {
	r := newRenderer(t, post.PtBR)
	p := samplePost(1)
	p.Data.Title = "<script>alert(1)</script>"

	out, err := r.RenderBytes(StateReady, p)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>alert(1)</script>")
	assert.Contains(t, string(out), "&lt;script&gt;")
}

func TestRenderResolvesDocumentLinks(t *testing.T) {
	r := newRenderer(t, post.PtBR)
	p := samplePost(1)
	p.Data.Content[0].Body = richtext.RichText{{
		Type: richtext.Paragraph, Text: "veja",
		Spans: []richtext.Span{{Start: 0, End: 4, Type: richtext.Hyperlink, Data: &richtext.SpanData{
			Link: richtext.Link{LinkType: "Document", Type: post.DocumentType, UID: "outro-post"},
		}}},
	}}

	out, err := r.RenderBytes(StateReady, p)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<a href="/post/outro-post">veja</a>`)
}

func TestRenderReadyRequiresPost(t *testing.T) {
	r := newRenderer(t, post.PtBR)
	err := r.Render(&bytes.Buffer{}, StateReady, nil)
	assert.ErrorIs(t, err, ErrNoPost)
}

func TestRenderInvalidDate(t *testing.T) {
	r := newRenderer(t, post.PtBR)
	p := samplePost(1)
	bad := "not-a-date"
	p.FirstPublicationDate = &bad

	var buf bytes.Buffer
	assert.Error(t, r.Render(&buf, StateReady, p))
	assert.Zero(t, buf.Len())
}
