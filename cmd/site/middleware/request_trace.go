package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"spacetraveling/internal/logger"
	"spacetraveling/internal/trace"
)

// RequestTrace 는 모든 요청에 Request ID 를 보장해 컨텍스트와 응답 헤더에 싣고,
// 처리가 끝나면 한 줄의 구조화 로그를 남긴다. 재생성 중 Prismic 호출은 같은 ID 로 span 이 증가한다.
func RequestTrace() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		req := c.Request

		ctx := trace.With(req.Context(), req.Header.Get(trace.HeaderRequestID))
		requestID := trace.RequestID(ctx)
		c.Request = req.WithContext(ctx)
		c.Writer.Header().Set(trace.HeaderRequestID, requestID)
		c.Writer.Header().Set(trace.HeaderSpanID, trace.CurrentSpan(ctx))

		c.Next()

		fields := logger.Fields{
			"method":     req.Method,
			"path":       req.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
			"request_id": requestID,
			"span_id":    trace.CurrentSpan(ctx),
		}
		if state := c.Writer.Header().Get("X-Page-State"); state != "" {
			fields["page_state"] = state
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}
		logger.InfoWithFields("completed request", fields)
	}
}
