package renderer

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"

	"spacetraveling/post"
	"spacetraveling/richtext"
)

//go:embed templates/*.html
var templateFS embed.FS

// State 는 페이지 준비 상태다.
type State int

const (
	// StateFallback 은 아직 생성되지 않은 페이지를 요청받아 생성 중인 상태다.
	StateFallback State = iota
	// StateReady 는 글 데이터가 준비된 상태다.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateFallback:
		return "fallback"
	case StateReady:
		return "ready"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var ErrNoPost = errors.New("renderer: ready state requires a post")

// FallbackRefreshSeconds 는 로딩 화면이 스스로 새로고침하는 간격이다.
const FallbackRefreshSeconds = 2

// Renderer 는 글 페이지 HTML 을 만든다. 여러 고루틴에서 동시에 써도 된다.
type Renderer struct {
	tmpl      *template.Template
	locale    post.Locale
	siteTitle string
	resolve   richtext.LinkResolver
}

func New(locale post.Locale, siteTitle string) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{
		tmpl:      tmpl,
		locale:    locale,
		siteTitle: siteTitle,
		resolve:   ResolveDocumentLink,
	}, nil
}

// ResolveDocumentLink 는 다른 글을 가리키는 문서 링크를 /post/{uid} 로 바꾼다.
func ResolveDocumentLink(l richtext.Link) string {
	if l.LinkType == "Document" && l.Type == post.DocumentType && l.UID != "" {
		return "/post/" + l.UID
	}
	return l.URL
}

type section struct {
	Heading string
	Body    template.HTML
}

type view struct {
	Lang        string
	SiteTitle   string
	LoadingText string
	Refresh     int
	Post        *post.Formatted
	Sections    []section
}

// Render 는 state 에 맞는 페이지를 w 에 쓴다.
// StateFallback 에서는 p 를 보지 않으므로 nil 이어도 된다.
func (r *Renderer) Render(w io.Writer, state State, p *post.Post) error {
	v := view{
		Lang:        r.locale.Tag.String(),
		SiteTitle:   r.siteTitle,
		LoadingText: r.locale.LoadingText,
	}

	switch state {
	case StateFallback:
		v.Refresh = FallbackRefreshSeconds
	case StateReady:
		if p == nil {
			return ErrNoPost
		}
		f, err := post.Format(*p, r.locale)
		if err != nil {
			return err
		}
		v.Post = &f
		for _, c := range p.Data.Content {
			body, err := richtext.AsHTMLWith(c.Body, r.resolve)
			if err != nil {
				return fmt.Errorf("render section %q: %w", c.Heading, err)
			}
			v.Sections = append(v.Sections, section{Heading: c.Heading, Body: trustedHTML(body)})
		}
	default:
		return fmt.Errorf("renderer: unknown state %v", state)
	}

	// 템플릿 실패 시 반쯤 쓰인 응답이 나가지 않도록 버퍼에 먼저 쓴다.
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "layout", v); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// RenderBytes 는 Render 결과를 바이트로 돌려준다.
func (r *Renderer) RenderBytes(state State, p *post.Post) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, state, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// trustedHTML 은 리치 텍스트 직렬화 결과를 그대로 삽입한다.
// 텍스트는 직렬화 단계에서 이스케이프되고 oEmbed html 은 CMS 가 준 그대로다.
func trustedHTML(s string) template.HTML {
	return template.HTML(s)
}
