// Package richtext 는 Prismic 의 StructuredText(리치 텍스트) 필드를 다룬다.
//
// 블록 목록을 평문(AsText)이나 HTML(AsHTML)로 직렬화한다. span 의 start/end 는
// JS 문자열 인덱스와 같은 UTF-16 코드 유닛 기준이다.
package richtext

// 블록 타입
const (
	Heading1     = "heading1"
	Heading2     = "heading2"
	Heading3     = "heading3"
	Heading4     = "heading4"
	Heading5     = "heading5"
	Heading6     = "heading6"
	Paragraph    = "paragraph"
	Preformatted = "preformatted"
	ListItem     = "list-item"
	OListItem    = "o-list-item"
	Image        = "image"
	Embed        = "embed"
)

// span 타입
const (
	Strong    = "strong"
	Em        = "em"
	Hyperlink = "hyperlink"
	Label     = "label"
)

// RichText 는 순서가 있는 블록 목록이다.
type RichText []Block

type Block struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Spans []Span `json:"spans,omitempty"`
	// Label 은 커스텀 블록 라벨(class 로 출력)이다.
	Label string `json:"label,omitempty"`

	// image
	URL        string      `json:"url,omitempty"`
	Alt        *string     `json:"alt,omitempty"`
	Copyright  *string     `json:"copyright,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
	LinkTo     *Link       `json:"linkTo,omitempty"`

	// embed
	Oembed *Oembed `json:"oembed,omitempty"`
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Span struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Type  string    `json:"type"`
	Data  *SpanData `json:"data,omitempty"`
}

// SpanData 는 hyperlink 의 링크 정보 또는 label 의 이름이다.
// label span 은 data 가 {"label": "..."} 형태로 온다.
type SpanData struct {
	Link
	Label string `json:"label,omitempty"`
}

type Link struct {
	LinkType string `json:"link_type,omitempty"`
	URL      string `json:"url,omitempty"`
	Target   string `json:"target,omitempty"`
	ID       string `json:"id,omitempty"`
	UID      string `json:"uid,omitempty"`
	Type     string `json:"type,omitempty"`
}

type Oembed struct {
	Type         string `json:"type,omitempty"`
	EmbedURL     string `json:"embed_url,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
	HTML         string `json:"html,omitempty"`
}

// hasText 는 텍스트를 가지는 블록 타입인지 판단한다.
func (b Block) hasText() bool {
	switch b.Type {
	case Image, Embed:
		return false
	}
	return true
}
