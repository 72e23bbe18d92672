// Package post 는 Prismic "posts" 문서를 페이지 렌더링용 모델로 바꾸고
// 발행일 포맷과 읽기 시간 같은 표시용 값을 계산한다.
package post

import (
	"encoding/json"
	"fmt"

	"spacetraveling/prismic"
	"spacetraveling/richtext"
)

const (
	// DocumentType 은 글 문서의 Prismic 커스텀 타입 이름이다.
	DocumentType = "posts"
	// WordsPerMinute 은 읽기 시간 계산에 쓰는 분당 단어 수다.
	WordsPerMinute = 200
)

// Post 는 문서에서 화이트리스트 필드만 뽑아낸 정규화 모델이다.
type Post struct {
	UID                  string  `json:"uid"`
	FirstPublicationDate *string `json:"first_publication_date"`
	Data                 Data    `json:"data"`
}

type Data struct {
	Title    string    `json:"title"`
	Subtitle string    `json:"subtitle"`
	Banner   Banner    `json:"banner"`
	Author   string    `json:"author"`
	Content  []Content `json:"content"`
}

type Banner struct {
	URL string `json:"url"`
}

// Content 는 본문 섹션 하나(소제목 + 리치 텍스트)다.
type Content struct {
	Heading string            `json:"heading"`
	Body    richtext.RichText `json:"body"`
}

// sourceData 는 문서 data 중 읽어 들이는 필드다. 나머지 필드는 디코딩 단계에서 버려진다.
type sourceData struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Banner   *struct {
		URL string `json:"url"`
	} `json:"banner"`
	Author  string `json:"author"`
	Content []struct {
		Heading string            `json:"heading"`
		Body    richtext.RichText `json:"body"`
	} `json:"content"`
}

// FetchFields 는 Prismic fetch 파라미터로 넘길 data 필드 목록이다. sourceData 와 같은 필드다.
func FetchFields() []string {
	fields := []string{"title", "subtitle", "banner", "author", "content"}
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = DocumentType + "." + f
	}
	return out
}

// FromDocument 는 Prismic 문서를 Post 로 투영한다.
func FromDocument(doc prismic.Document) (Post, error) {
	var src sourceData
	if len(doc.Data) > 0 {
		if err := json.Unmarshal(doc.Data, &src); err != nil {
			return Post{}, fmt.Errorf("decode post %q: %w", doc.UID, err)
		}
	}

	p := Post{
		UID:                  doc.UID,
		FirstPublicationDate: doc.FirstPublicationDate,
		Data: Data{
			Title:    src.Title,
			Subtitle: src.Subtitle,
			Author:   src.Author,
			Content:  make([]Content, 0, len(src.Content)),
		},
	}
	if src.Banner != nil {
		p.Data.Banner.URL = src.Banner.URL
	}
	for _, c := range src.Content {
		p.Data.Content = append(p.Data.Content, Content{Heading: c.Heading, Body: c.Body})
	}
	return p, nil
}

// Formatted 는 렌더링 직전에만 만들어지는 표시용 값이다. 저장하지 않는다.
type Formatted struct {
	Post
	FirstPublicationDate string `json:"first_publication_date"`
	Read                 int    `json:"read"`
}

// Format 은 발행일을 locale 에 맞게 바꾸고 읽기 시간을 계산한다.
// 발행일이 없으면(미발행 미리보기) epoch 날짜 대신 빈 문자열이 된다.
func Format(p Post, loc Locale) (Formatted, error) {
	f := Formatted{Post: p, Read: ReadingTime(p.Data.Content)}
	if p.FirstPublicationDate != nil {
		date, err := FormatDate(*p.FirstPublicationDate, loc)
		if err != nil {
			return Formatted{}, fmt.Errorf("format post %q: %w", p.UID, err)
		}
		f.FirstPublicationDate = date
	}
	return f, nil
}
