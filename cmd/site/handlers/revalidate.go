package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"spacetraveling/dto"
	"spacetraveling/events"
	"spacetraveling/services"
)

// RevalidationCounter 는 metrics.Recorder 가 구현한다.
type RevalidationCounter interface {
	IncRevalidation(source, outcome string)
}

// RevalidateHandler serves POST /api/revalidate
//
// Prismic webhook 의 secret 이 설정값과 같아야 한다. secret 이 설정되지 않았으면 엔드포인트를 막는다.
// 요청은 접수만 하고 202 를 돌려준다. 실제 재생성은 requester 가 비동기로 처리한다.
func RevalidateHandler(secret string, requester services.Requester, counter RevalidationCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in dto.PrismicWebhook
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}

		source := "webhook"
		if in.Type == "" {
			source = "admin"
		}
		if secret == "" {
			counter.IncRevalidation(source, "disabled")
			c.JSON(http.StatusForbidden, gin.H{"error": "revalidation disabled"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(in.Secret), []byte(secret)) != 1 {
			counter.IncRevalidation(source, "unauthorized")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret"})
			return
		}
		if in.Type == dto.WebhookTypeTestTrigger {
			counter.IncRevalidation(source, "test")
			c.JSON(http.StatusOK, dto.RevalidateResponse{Message: "test trigger received"})
			return
		}

		evt := events.NewPostRevalidationRequested(source, in.Documents, in.Slugs)
		evt.WebhookType = in.Type
		if evt.Empty() {
			counter.IncRevalidation(source, "empty")
			c.JSON(http.StatusOK, dto.RevalidateResponse{Message: "nothing to revalidate"})
			return
		}

		if err := requester.Request(c.Request.Context(), evt); err != nil {
			_ = c.Error(err)
			counter.IncRevalidation(source, "failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		counter.IncRevalidation(source, "accepted")
		c.JSON(http.StatusAccepted, dto.RevalidateResponse{Revalidated: true, EventID: evt.ID})
	}
}
