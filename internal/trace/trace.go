package trace

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	HeaderRequestID = "X-Request-Id"
	HeaderSpanID    = "X-Span-Id"
)

type ctxKey struct{}

// span 은 요청(또는 빌드/재검증 작업) 하나의 추적 정보다.
// seq 는 같은 requestID 안에서 Prismic 호출마다 1씩 증가한다.
type span struct {
	requestID string
	seq       atomic.Int64
}

// NewID 는 하이픈 없는 UUID 문자열을 만든다.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// With 는 requestID 를 담은 새 컨텍스트를 반환한다. requestID 가 비어 있으면 새로 만든다.
func With(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = NewID()
	}
	return context.WithValue(ctx, ctxKey{}, &span{requestID: requestID})
}

func from(ctx context.Context) *span {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(ctxKey{}).(*span)
	return s
}

// RequestID 는 컨텍스트의 requestID 를 반환한다. 없으면 빈 문자열.
func RequestID(ctx context.Context) string {
	if s := from(ctx); s != nil {
		return s.requestID
	}
	return ""
}

// CurrentSpan 은 현재 span 번호를 증가 없이 반환한다.
func CurrentSpan(ctx context.Context) string {
	s := from(ctx)
	if s == nil {
		return "0"
	}
	return strconv.FormatInt(s.seq.Load(), 10)
}

// NextSpan 은 span 번호를 1 올리고 (requestID, spanID) 를 반환한다.
// 추적 정보가 없는 컨텍스트(스케줄러 등)에서는 새 requestID 와 "1" 을 돌려준다.
func NextSpan(ctx context.Context) (string, string) {
	s := from(ctx)
	if s == nil {
		return NewID(), "1"
	}
	return s.requestID, strconv.FormatInt(s.seq.Add(1), 10)
}
