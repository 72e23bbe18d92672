package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"spacetraveling/config"
	"spacetraveling/internal/logger"
)

const pollTimeout = 100 * time.Millisecond

// KafkaEventBus 는 confluent-kafka-go 기반 EventBus 다.
type KafkaEventBus struct {
	producer *kafka.Producer
	brokers  string
}

var _ EventBus = (*KafkaEventBus)(nil)

func NewKafkaEventBus(cfg config.KafkaConfig) (*KafkaEventBus, error) {
	if cfg.BootstrapServers == "" {
		return nil, errors.New("kafka bootstrap servers not configured")
	}
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.BootstrapServers,
		"acks":              "all",
		"retries":           5,
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	// 전달 보고서 중 Publish 가 기다리지 않는 것(에러)만 로그로 남긴다.
	go func() {
		for e := range p.Events() {
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					logger.Log.Errorf("kafka delivery failed %v: %v", ev.TopicPartition, ev.TopicPartition.Error)
				}
			case kafka.Error:
				logger.Log.Errorf("kafka error: %v", ev)
			}
		}
	}()

	return &KafkaEventBus{producer: p, brokers: cfg.BootstrapServers}, nil
}

func (k *KafkaEventBus) Close() {
	if k.producer == nil {
		return
	}
	if remaining := k.producer.Flush(5000); remaining > 0 {
		logger.Log.Warnf("kafka producer closed with %d unflushed messages", remaining)
	}
	k.producer.Close()
}

// Publish 는 전달 보고서를 받을 때까지 기다린다. 키는 이벤트 id 다.
func (k *KafkaEventBus) Publish(ctx context.Context, topic string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}

	delivery := make(chan kafka.Event, 1)
	err = k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.ID),
		Value:          data,
	}, delivery)
	if err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}

	select {
	case ev := <-delivery:
		if m, ok := ev.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			return fmt.Errorf("deliver to %s: %w", topic, m.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (k *KafkaEventBus) newConsumer(groupID string, topics []string) (*kafka.Consumer, error) {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":             k.brokers,
		"group.id":                      groupID,
		"auto.offset.reset":             "earliest",
		"enable.auto.commit":            false,
		"partition.assignment.strategy": "range",
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer %s: %w", groupID, err)
	}
	if err := c.SubscribeTopics(topics, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("subscribe %v: %w", topics, err)
	}
	return c, nil
}

// poll 은 메시지 하나를 읽는다. 타임아웃이면 (nil, nil), 치명적 오류면 에러를 반환한다.
func poll(c *kafka.Consumer) (*kafka.Message, error) {
	msg, err := c.ReadMessage(pollTimeout)
	if err == nil {
		return msg, nil
	}
	var kerr kafka.Error
	if errors.As(err, &kerr) {
		if kerr.Code() == kafka.ErrTimedOut {
			return nil, nil
		}
		if kerr.IsFatal() {
			return nil, err
		}
	}
	logger.Log.Warnf("kafka read failed: %v", err)
	return nil, nil
}

// Subscribe 는 handler 실패 시 Route 에 따라 재시도 토픽이나 DLQ 로 보낸 뒤 커밋한다.
// 발행에 실패하면 커밋하지 않아 같은 메시지를 다시 받는다.
func (k *KafkaEventBus) Subscribe(ctx context.Context, groupID string, topic Topic, handler EventHandler) error {
	c, err := k.newConsumer(groupID, []string{topic.Base()})
	if err != nil {
		return err
	}
	defer c.Close()
	logger.InfoWithFields("consumer started", logger.Fields{"group_id": groupID, "topic": topic.Base()})

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := poll(c)
		if err != nil {
			return fmt.Errorf("consumer %s: %w", groupID, err)
		}
		if msg == nil {
			continue
		}

		var evt Event
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Log.Errorf("skip malformed event on %s: %v", topic.Base(), err)
			commit(c, msg)
			continue
		}

		logger.DebugWithFields("event received", logger.Fields{"event": describe(evt), "request_id": evt.RequestID})
		if herr := handler(ctx, evt); herr != nil {
			dest, next := Route(topic, evt, herr)
			fields := logger.Fields{"event": describe(evt), "dest": dest, "error": herr.Error(), "request_id": evt.RequestID}
			if dest == topic.DLQ() {
				logger.ErrorWithFields("event moved to DLQ", fields)
			} else {
				logger.WarnWithFields("event scheduled for retry", fields)
			}
			if err := k.Publish(ctx, dest, next); err != nil {
				logger.Log.Errorf("publish %s to %s failed, offset not committed: %v", evt.ID, dest, err)
				continue
			}
		}
		commit(c, msg)
	}
}

// StartRetryReinjector 는 지연 시간이 지나지 않은 메시지를 같은 오프셋으로 되감아 다시 확인한다.
func (k *KafkaEventBus) StartRetryReinjector(ctx context.Context, groupID string, topic Topic) error {
	c, err := k.newConsumer(groupID, topic.RetryTopics())
	if err != nil {
		return err
	}
	defer c.Close()
	logger.InfoWithFields("retry reinjector started", logger.Fields{"group_id": groupID, "topics": topic.RetryTopics()})

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := poll(c)
		if err != nil {
			return fmt.Errorf("reinjector %s: %w", groupID, err)
		}
		if msg == nil {
			continue
		}

		name := *msg.TopicPartition.Topic
		delay, ok := RetryDelayOf(name)
		if !ok {
			logger.Log.Errorf("skip message on unknown retry topic %s", name)
			commit(c, msg)
			continue
		}
		if wait := time.Until(msg.Timestamp.Add(delay)); wait > 0 {
			time.Sleep(min(max(wait, 50*time.Millisecond), 500*time.Millisecond))
			if err := c.Seek(msg.TopicPartition, 1000); err != nil {
				logger.Log.Errorf("reinjector seek %v failed: %v", msg.TopicPartition, err)
			}
			continue
		}

		var evt Event
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Log.Errorf("skip malformed event on %s: %v", name, err)
			commit(c, msg)
			continue
		}
		if err := k.Publish(ctx, topic.Base(), evt); err != nil {
			logger.Log.Errorf("reinject %s failed, offset not committed: %v", evt.ID, err)
			continue
		}
		logger.InfoWithFields("event reinjected", logger.Fields{"event": describe(evt), "from": name, "request_id": evt.RequestID})
		commit(c, msg)
	}
}

func commit(c *kafka.Consumer, msg *kafka.Message) {
	if _, err := c.CommitMessage(msg); err != nil {
		logger.Log.Errorf("commit offset %v failed: %v", msg.TopicPartition, err)
	}
}
