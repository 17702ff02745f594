package events

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"bistro/server/internal/metrics"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaFeedConsumer reads the ledger topic and hands every event to a
// Notifier, usually the WebSocket hub. With several server instances this is
// how readers on one instance learn about writes on another.
type KafkaFeedConsumer struct {
	reader  messageReader
	topic   string
	groupID string
	sink    Notifier
	metrics *metrics.Metrics
}

func NewKafkaFeedConsumer(cfg KafkaConfig, groupID string, sink Notifier, m *metrics.Metrics) *KafkaFeedConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     ParseBrokers(cfg.Brokers),
		Topic:       cfg.Topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
		Dialer:      NewKafkaDialer(cfg.Username, cfg.Password, cfg.CACert),
	})
	return &KafkaFeedConsumer{
		reader:  reader,
		topic:   cfg.Topic,
		groupID: groupID,
		sink:    sink,
		metrics: m,
	}
}

// Run blocks until ctx is cancelled.
func (c *KafkaFeedConsumer) Run(ctx context.Context) {
	log.Printf("📡 Kafka feed consumer started: topic=%s, groupID=%s", c.topic, c.groupID)
	defer func() {
		if err := c.reader.Close(); err != nil {
			log.Printf("⚠️ Kafka reader close: %v", err)
		}
		log.Println("🛑 Kafka feed consumer stopped")
	}()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			log.Printf("⚠️ Kafka feed read error: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		event, err := decodeEvent(msg.Value)
		c.metrics.RecordConsume(err)
		if err != nil {
			log.Printf("⚠️ Kafka feed: skipping offset=%d partition=%d: %v", msg.Offset, msg.Partition, err)
			continue
		}
		c.sink.Notify(ctx, event)
	}
}

var (
	_ Notifier = (*KafkaNotifier)(nil)
	_ Notifier = (*RedisNotifier)(nil)
	_ Notifier = Multi(nil)
	_ Notifier = (*Recorder)(nil)
)
