package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"spacetraveling/page"
	"spacetraveling/pagecache"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	headerPageState = "X-Page-State"
)

// PageLookup 은 pagecache.Cache 중 페이지 응답에 필요한 부분이다.
type PageLookup interface {
	Lookup(ctx context.Context, slug string) (pagecache.Result, error)
}

var cacheControlReady = "s-maxage=" + strconv.Itoa(page.Revalidate) + ", stale-while-revalidate"

// PostPageHandler serves GET /post/:slug
//
//	fresh, stale: 저장된 HTML (stale 이면 백그라운드 재생성 중)
//	fallback:     로딩 화면, 생성이 끝나면 새로고침으로 실제 페이지를 받는다
//	not_found:    404
func PostPageHandler(pages PageLookup, fallbackHTML []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("slug")
		res, err := pages.Lookup(c.Request.Context(), slug)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.Header(headerPageState, res.State.String())
		switch res.State {
		case pagecache.Fallback:
			c.Header("Cache-Control", "no-store")
			c.Data(http.StatusOK, contentTypeHTML, fallbackHTML)
		case pagecache.NotFound:
			c.Header("Cache-Control", "no-store")
			c.String(http.StatusNotFound, "404 | post not found")
		default:
			c.Header("Cache-Control", cacheControlReady)
			c.Data(http.StatusOK, contentTypeHTML, []byte(res.Page.HTML))
		}
	}
}
