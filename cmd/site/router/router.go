package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spacetraveling/cmd/site/handlers"
	"spacetraveling/cmd/site/middleware"
	"spacetraveling/services"
)

// Deps 는 라우터가 쓰는 구성요소다. main 에서 한 번 조립한다.
type Deps struct {
	Pages          handlers.PageLookup
	FallbackHTML   []byte
	Generator      handlers.StaticGenerator
	Content        handlers.HealthChecker
	Requester      services.Requester
	Counter        handlers.RevalidationCounter
	WebhookSecret  string
	AllowedOrigins []string
	Metrics        http.Handler
}

func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestTrace(), middleware.CORS(d.AllowedOrigins))

	r.GET("/health", handlers.HealthHandler(d.Content))
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	r.GET("/post/:slug", handlers.PostPageHandler(d.Pages, d.FallbackHTML))

	api := r.Group("/api")
	{
		api.GET("/posts/paths", handlers.PathsHandler(d.Generator))
		api.GET("/posts/:slug", handlers.PropsHandler(d.Generator))
		api.POST("/revalidate", handlers.RevalidateHandler(d.WebhookSecret, d.Requester, d.Counter))
	}

	return r
}
