package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSender 把领域事件写入 Kafka 主题
type KafkaSender struct {
	w *kafka.Writer
}

// NewKafkaSender 创建事件发送器。写入是同步的，本身已在异步任务中执行。
func NewKafkaSender(brokers []string, topic string) (*KafkaSender, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, errors.New("kafka brokers and topic are required")
	}
	return &KafkaSender{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
	}, nil
}

// Send 写入一条事件
func (s *KafkaSender) Send(ctx context.Context, msg Message) error {
	err := s.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Key),
		Value: msg.Payload,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(msg.Event)},
		},
	})
	if err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

// Close 刷新并关闭 writer
func (s *KafkaSender) Close() error {
	return s.w.Close()
}
