package events

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/sony/gobreaker"

	"bistro/server/internal/metrics"
	"bistro/server/internal/models"
)

// NewKafkaDialer builds a dialer with SASL/PLAIN when credentials are given
// and TLS whenever SASL or a CA certificate is in use.
func NewKafkaDialer(username, password, caCert string) *kafka.Dialer {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	if username != "" && password != "" {
		dialer.SASLMechanism = plain.Mechanism{Username: username, Password: password}
		log.Printf("🔐 Kafka: SASL/PLAIN enabled (username: %s)", username)
	}

	if dialer.SASLMechanism == nil && caCert == "" {
		return dialer
	}

	// nil RootCAs means system certificates
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if caCert != "" {
		pool := x509.NewCertPool()
		if pool.AppendCertsFromPEM([]byte(caCert)) {
			tlsConfig.RootCAs = pool
			log.Println("🔒 Kafka: TLS with custom CA")
		} else {
			log.Println("⚠️ Kafka: could not parse CA certificate, using system certificates")
		}
	} else {
		log.Println("🔒 Kafka: TLS with system certificates")
	}
	dialer.TLS = tlsConfig
	return dialer
}

// ParseBrokers splits a comma-separated broker list.
func ParseBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(strings.ReplaceAll(brokers, " ", ""), ",") {
		if b != "" {
			out = append(out, b)
		}
	}
	return out
}

// messageWriter is the part of *kafka.Writer the notifier uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier queues ledger events and publishes them to a topic from a
// single background goroutine. Publishing goes through a circuit breaker so
// a dead broker does not stall the queue on every event.
type KafkaNotifier struct {
	writer  messageWriter
	topic   string
	breaker *gobreaker.CircuitBreaker
	queue   chan models.LedgerEvent
	metrics *metrics.Metrics

	timeout  time.Duration
	stopOnce sync.Once
	done     chan struct{}
}

type KafkaConfig struct {
	Brokers  string
	Topic    string
	Username string
	Password string
	CACert   string
}

func NewKafkaNotifier(cfg KafkaConfig, m *metrics.Metrics) *KafkaNotifier {
	dialer := NewKafkaDialer(cfg.Username, cfg.Password, cfg.CACert)
	transport := &kafka.Transport{
		SASL: dialer.SASLMechanism,
		TLS:  dialer.TLS,
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(ParseBrokers(cfg.Brokers)...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Transport:              transport,
	}
	return newKafkaNotifier(writer, cfg.Topic, m)
}

func newKafkaNotifier(w messageWriter, topic string, m *metrics.Metrics) *KafkaNotifier {
	n := &KafkaNotifier{
		writer:  w,
		topic:   topic,
		queue:   make(chan models.LedgerEvent, 256),
		metrics: m,
		timeout: 5 * time.Second,
		done:    make(chan struct{}),
	}
	n.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kafka-" + topic,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("⚠️ Circuit breaker %s: %s -> %s", name, from, to)
			m.SetCircuitBreakerState(name, int(to))
		},
	})
	return n
}

// Notify enqueues the event; when the queue is full the event is dropped.
// Readers re-fetch state on the next event anyway.
func (n *KafkaNotifier) Notify(_ context.Context, event models.LedgerEvent) {
	select {
	case n.queue <- event:
	default:
		log.Printf("⚠️ Kafka queue full, dropping %s %s", event.Type, event.EntityID)
		n.metrics.RecordPublish("kafka", string(event.Type), errors.New("queue full"))
	}
}

// Run publishes queued events until ctx is cancelled, then flushes what is
// left in the queue and closes the writer.
func (n *KafkaNotifier) Run(ctx context.Context) {
	defer close(n.done)
	log.Printf("📡 Kafka ledger publisher started: topic=%s", n.topic)
	for {
		select {
		case event := <-n.queue:
			n.publish(ctx, event)
		case <-ctx.Done():
			n.drain()
			if err := n.writer.Close(); err != nil {
				log.Printf("⚠️ Kafka writer close: %v", err)
			}
			log.Println("🛑 Kafka ledger publisher stopped")
			return
		}
	}
}

// Wait blocks until Run has returned.
func (n *KafkaNotifier) Wait() {
	<-n.done
}

func (n *KafkaNotifier) drain() {
	flushCtx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	for {
		select {
		case event := <-n.queue:
			n.publish(flushCtx, event)
		default:
			return
		}
	}
}

func (n *KafkaNotifier) publish(ctx context.Context, event models.LedgerEvent) {
	payload, err := encodeEvent(event)
	if err != nil {
		log.Printf("❌ Kafka encode %s: %v", event.Type, err)
		n.metrics.RecordPublish("kafka", string(event.Type), err)
		return
	}

	_, err = n.breaker.Execute(func() (interface{}, error) {
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()
		return nil, n.writer.WriteMessages(writeCtx, kafka.Message{
			Key:   []byte(event.EntityID),
			Value: payload,
			Time:  event.OccurredAt,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.Type)},
			},
		})
	})
	n.metrics.RecordPublish("kafka", string(event.Type), err)
	if err != nil {
		log.Printf("⚠️ Kafka publish %s %s failed: %v", event.Type, event.EntityID, err)
	}
}

// State exposes the breaker state for health reporting.
func (n *KafkaNotifier) State() gobreaker.State {
	return n.breaker.State()
}
