package prismic

import "encoding/json"

// Document 는 documents/search 결과 한 건이다.
// data 는 커스텀 타입마다 모양이 달라 호출 측에서 필요한 필드만 디코딩한다.
type Document struct {
	ID                   string          `json:"id"`
	UID                  string          `json:"uid"`
	Type                 string          `json:"type"`
	Href                 string          `json:"href"`
	Tags                 []string        `json:"tags"`
	FirstPublicationDate *string         `json:"first_publication_date"`
	LastPublicationDate  *string         `json:"last_publication_date"`
	Slugs                []string        `json:"slugs"`
	Lang                 string          `json:"lang"`
	Data                 json.RawMessage `json:"data"`
}

// SearchResponse 는 documents/search 응답 한 페이지다.
type SearchResponse struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	ResultsSize      int        `json:"results_size"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         *string    `json:"next_page"`
	PrevPage         *string    `json:"prev_page"`
	Results          []Document `json:"results"`
}

type Ref struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef"`
}

// APIInfo 는 엔드포인트 루트(GET /api/v2) 응답 중 사용하는 부분이다.
type APIInfo struct {
	Refs []Ref `json:"refs"`
}

// QueryOptions 는 documents/search 의 선택 파라미터다. 0 값은 생략된다.
type QueryOptions struct {
	Ref       string
	Page      int
	PageSize  int
	Lang      string
	Orderings string
	Fetch     []string
}
