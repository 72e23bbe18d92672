package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RetryDelays 는 재시도 횟수(1-based)별 지연 시간이다.
// 재검증은 콘텐츠 게시 직후라 짧게 잡는다.
var RetryDelays = []time.Duration{
	10 * time.Second,
	1 * time.Minute,
	5 * time.Minute,
}

// Topic 은 기본 토픽 이름에서 재시도/DLQ 토픽 이름을 만든다.
//
//	base            예: spacetraveling.post.revalidation
//	base.retry.<n>  n 번째 재시도 (RetryDelays[n-1] 뒤에 base 로 재주입)
//	base.dlq        최대 재시도 초과
type Topic struct {
	base string
}

func NewTopic(base string) Topic {
	return Topic{base: base}
}

func (t Topic) Base() string { return t.base }

func (t Topic) DLQ() string { return t.base + ".dlq" }

// RetryTopics 는 모든 재시도 토픽 이름을 순서대로 반환한다.
func (t Topic) RetryTopics() []string {
	topics := make([]string, len(RetryDelays))
	for i := range RetryDelays {
		topics[i] = t.retryTopic(i + 1)
	}
	return topics
}

// RetryTopic 은 n 번째(1-based) 재시도 토픽이다. 범위를 벗어나면 ErrMaxAttemptsExceeded.
func (t Topic) RetryTopic(n int) (string, error) {
	if n <= 0 || n > len(RetryDelays) {
		return "", ErrMaxAttemptsExceeded
	}
	return t.retryTopic(n), nil
}

func (t Topic) retryTopic(n int) string {
	return t.base + ".retry." + strconv.Itoa(n)
}

// RetryDelayOf 는 재시도 토픽 이름에서 지연 시간을 구한다.
func RetryDelayOf(topicName string) (time.Duration, bool) {
	idx := strings.LastIndex(topicName, ".retry.")
	if idx == -1 {
		return 0, false
	}
	n, err := strconv.Atoi(topicName[idx+len(".retry."):])
	if err != nil || n <= 0 || n > len(RetryDelays) {
		return 0, false
	}
	return RetryDelays[n-1], true
}

// Event 는 Kafka 메시지 값으로 쓰이는 봉투다.
type Event struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
	Retry     int             `json:"retry"`
	MaxRetry  int             `json:"max_retry"`
	LastError string          `json:"last_error,omitempty"`
}

// EventHandler 가 에러를 반환하면 이벤트는 재시도 토픽이나 DLQ 로 간다.
type EventHandler func(ctx context.Context, event Event) error

type EventBus interface {
	Publish(ctx context.Context, topic string, event Event) error
	// Subscribe 는 기본 토픽을 구독해 handler 를 실행한다. ctx 가 끝날 때까지 블로킹한다.
	Subscribe(ctx context.Context, groupID string, topic Topic, handler EventHandler) error
	// StartRetryReinjector 는 재시도 토픽들을 구독해 지연이 지난 이벤트를 기본 토픽으로 되돌린다.
	StartRetryReinjector(ctx context.Context, groupID string, topic Topic) error
	Close()
}

var ErrMaxAttemptsExceeded = errors.New("eventbus: max attempts exceeded")

// Route 는 handler 실패 후 이벤트를 보낼 토픽과 갱신된 이벤트를 결정한다.
func Route(topic Topic, evt Event, handlerErr error) (string, Event) {
	evt.LastError = handlerErr.Error()
	if evt.MaxRetry <= 0 || evt.MaxRetry > len(RetryDelays) {
		evt.MaxRetry = len(RetryDelays)
	}
	next := evt.Retry + 1
	if next > evt.MaxRetry {
		return topic.DLQ(), evt
	}
	dest, err := topic.RetryTopic(next)
	if err != nil {
		return topic.DLQ(), evt
	}
	evt.Retry = next
	return dest, evt
}

func describe(evt Event) string {
	if evt.Retry > 0 {
		return fmt.Sprintf("%s (retry %d/%d)", evt.ID, evt.Retry, evt.MaxRetry)
	}
	return evt.ID
}
