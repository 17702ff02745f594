package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"bistro/server/internal/metrics"
	"bistro/server/internal/models"
)

const LedgerChannel = "ledger:changed"

// Publisher is the slice of utils.RedisClient the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message string) error
}

// RedisNotifier publishes each event as JSON on a Redis pub/sub channel so
// other server instances can invalidate their caches and push to their own
// WebSocket readers.
type RedisNotifier struct {
	pub     Publisher
	channel string
	timeout time.Duration
	metrics *metrics.Metrics
}

func NewRedisNotifier(pub Publisher, m *metrics.Metrics) *RedisNotifier {
	return &RedisNotifier{
		pub:     pub,
		channel: LedgerChannel,
		timeout: 2 * time.Second,
		metrics: m,
	}
}

func (n *RedisNotifier) Notify(ctx context.Context, event models.LedgerEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("⚠️ Failed to encode ledger event %s: %v", event.Type, err)
		return
	}

	// The request context may already be done once the response is written.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	err = n.pub.Publish(pubCtx, n.channel, string(payload))
	n.metrics.RecordPublish("redis", string(event.Type), err)
	if err != nil {
		log.Printf("⚠️ Redis publish %s failed: %v", event.Type, err)
	}
}
