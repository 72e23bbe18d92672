package prismic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spacetraveling/config"
	"spacetraveling/internal/httpclient"
)

// Client는 Prismic REST API v2 를 호출하는 얇은 클라이언트다.
//
// - 모든 검색은 master ref 기준으로 수행한다. (opts.Ref 로 덮어쓸 수 있다)
// - 재시도는 하지 않는다. 실패는 그대로 호출 측에 전달한다.
//
// endpoint 예: https://spacetraveling.cdn.prismic.io/api/v2
type Client struct {
	base        *httpclient.BaseClient
	accessToken string
	pageSize    int
}

var ErrNotFound = errors.New("document not found")

func New(cfg config.PrismicConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	return NewWithBase(httpclient.NewBaseClient(cfg.Endpoint, httpclient.Config{Timeout: timeout}), cfg.AccessToken, cfg.PageSize)
}

// NewWithBase 는 이미 만들어진 BaseClient 를 사용한다. pageSize 가 0이면 100.
func NewWithBase(base *httpclient.BaseClient, accessToken string, pageSize int) *Client {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	return &Client{base: base, accessToken: accessToken, pageSize: pageSize}
}

// MasterRef 는 현재 게시된 콘텐츠의 ref 를 조회한다.
func (c *Client) MasterRef(ctx context.Context) (string, error) {
	var info APIInfo
	if err := c.get(ctx, "MasterRef", "", c.tokenQuery(), &info); err != nil {
		return "", err
	}
	for _, r := range info.Refs {
		if r.IsMasterRef {
			return r.Ref, nil
		}
	}
	return "", fmt.Errorf("prismic MasterRef: no master ref in %d refs", len(info.Refs))
}

// Query 는 술어에 맞는 문서를 한 페이지만 조회한다.
func (c *Client) Query(ctx context.Context, preds []Predicate, opts QueryOptions) (SearchResponse, error) {
	if opts.Ref == "" {
		ref, err := c.MasterRef(ctx)
		if err != nil {
			return SearchResponse{}, err
		}
		opts.Ref = ref
	}
	var out SearchResponse
	if err := c.get(ctx, "Query", "/documents/search", c.searchQuery(preds, opts), &out); err != nil {
		return SearchResponse{}, err
	}
	return out, nil
}

// QueryAll 은 next_page 가 없어질 때까지 모든 페이지를 따라가며 결과를 모은다.
func (c *Client) QueryAll(ctx context.Context, preds []Predicate, opts QueryOptions) ([]Document, error) {
	if opts.Ref == "" {
		ref, err := c.MasterRef(ctx)
		if err != nil {
			return nil, err
		}
		opts.Ref = ref
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}

	var all []Document
	for {
		resp, err := c.Query(ctx, preds, opts)
		if err != nil {
			return nil, fmt.Errorf("prismic QueryAll page %d: %w", opts.Page, err)
		}
		all = append(all, resp.Results...)
		if resp.NextPage == nil || len(resp.Results) == 0 || (resp.TotalPages > 0 && opts.Page >= resp.TotalPages) {
			break
		}
		opts.Page++
	}
	return all, nil
}

// GetByUID 는 docType 문서 중 uid 가 일치하는 한 건을 조회한다.
// 존재하지 않으면 ErrNotFound 를 반환한다.
func (c *Client) GetByUID(ctx context.Context, docType, uid string, opts QueryOptions) (Document, error) {
	opts.Page = 1
	opts.PageSize = 1
	resp, err := c.Query(ctx, []Predicate{At("my."+docType+".uid", uid)}, opts)
	if err != nil {
		return Document{}, err
	}
	if len(resp.Results) == 0 {
		return Document{}, fmt.Errorf("prismic GetByUID %s/%s: %w", docType, uid, ErrNotFound)
	}
	return resp.Results[0], nil
}

// Health 는 API 루트가 응답하는지만 확인한다.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.MasterRef(ctx)
	return err
}

func (c *Client) tokenQuery() url.Values {
	q := url.Values{}
	if c.accessToken != "" {
		q.Set("access_token", c.accessToken)
	}
	return q
}

func (c *Client) searchQuery(preds []Predicate, opts QueryOptions) url.Values {
	q := c.tokenQuery()
	q.Set("ref", opts.Ref)
	if len(preds) > 0 {
		q.Set("q", BuildQuery(preds))
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	q.Set("page", strconv.Itoa(page))
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = c.pageSize
	}
	q.Set("pageSize", strconv.Itoa(pageSize))
	if opts.Lang != "" {
		q.Set("lang", opts.Lang)
	}
	if opts.Orderings != "" {
		q.Set("orderings", opts.Orderings)
	}
	if len(opts.Fetch) > 0 {
		q.Set("fetch", strings.Join(opts.Fetch, ","))
	}
	return q
}

func (c *Client) get(ctx context.Context, op, relPath string, q url.Values, out any) error {
	req, err := c.base.NewRequest(ctx, http.MethodGet, relPath, q, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.base.Do(req)
	if err != nil {
		return fmt.Errorf("prismic %s: %w", op, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("prismic %s: decode: %w", op, err)
		}
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("prismic %s: %w", op, ErrNotFound)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("prismic %s: status=%d body=%s", op, resp.StatusCode, string(body))
	}
}
