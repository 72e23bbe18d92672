package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"spacetraveling/page"
	"spacetraveling/prismic"
)

// StaticGenerator 는 page.Generator 의 정적 생성 계약이다.
type StaticGenerator interface {
	StaticPaths(ctx context.Context) (page.PathsResult, error)
	StaticProps(ctx context.Context, slug string) (page.PropsResult, error)
}

// PathsHandler serves GET /api/posts/paths as {"paths":[...],"fallback":true}
func PathsHandler(gen StaticGenerator) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := gen.StaticPaths(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// PropsHandler serves GET /api/posts/:slug as {"props":{"post":...},"revalidate":1800}
func PropsHandler(gen StaticGenerator) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := gen.StaticProps(c.Request.Context(), c.Param("slug"))
		if errors.Is(err, prismic.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
