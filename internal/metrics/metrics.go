package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors on a private registry.
// All Record methods are safe on a nil *Metrics so services can run without
// metrics in tests.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	LedgerOperations     *prometheus.CounterVec
	StockClamps          *prometheus.CounterVec
	UnresolvedReferences *prometheus.CounterVec
	OrdersTotal          *prometheus.CounterVec
	OrderValue           *prometheus.HistogramVec

	EventsPublished     *prometheus.CounterVec
	EventsConsumed      *prometheus.CounterVec
	CircuitBreakerState *prometheus.GaugeVec
	WebSocketClients    prometheus.Gauge
}

func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	m.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path"})

	m.HTTPRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_flight",
		Help:      "Number of HTTP requests currently being processed",
	})

	m.LedgerOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_operations_total",
		Help:      "Ledger operations by kind and outcome",
	}, []string{"operation", "status"})

	m.StockClamps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_clamps_total",
		Help:      "Order deductions floored at zero kitchen stock",
	}, []string{"ingredient_id"})

	m.UnresolvedReferences = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unresolved_references_total",
		Help:      "Recipe or menu references that could not be resolved",
	}, []string{"operation"})

	m.OrdersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_total",
		Help:      "Order transitions by order type and resulting status",
	}, []string{"order_type", "status"})

	m.OrderValue = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "order_value",
		Help:      "Order totals at creation",
		Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"order_type"})

	m.EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_events_published_total",
		Help:      "Ledger change notifications by sink and outcome",
	}, []string{"sink", "event_type", "status"})

	m.EventsConsumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_events_consumed_total",
		Help:      "Ledger events read from Kafka by the live feed",
	}, []string{"status"})

	m.CircuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	m.WebSocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "websocket_clients",
		Help:      "Connected live-feed WebSocket clients",
	})

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.LedgerOperations,
		m.StockClamps,
		m.UnresolvedReferences,
		m.OrdersTotal,
		m.OrderValue,
		m.EventsPublished,
		m.EventsConsumed,
		m.CircuitBreakerState,
		m.WebSocketClients,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// GinMiddleware records request count, latency and in-flight requests.
// The route template is used as the path label to keep cardinality bounded.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordLedgerOperation counts a ledger call by outcome.
func (m *Metrics) RecordLedgerOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.LedgerOperations.WithLabelValues(operation, status(err)).Inc()
}

func (m *Metrics) RecordClamp(ingredientID string) {
	if m == nil {
		return
	}
	m.StockClamps.WithLabelValues(ingredientID).Inc()
}

func (m *Metrics) RecordUnresolved(operation string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.UnresolvedReferences.WithLabelValues(operation).Add(float64(n))
}

func (m *Metrics) RecordOrder(orderType, orderStatus string, total float64, created bool) {
	if m == nil {
		return
	}
	m.OrdersTotal.WithLabelValues(orderType, orderStatus).Inc()
	if created {
		m.OrderValue.WithLabelValues(orderType).Observe(total)
	}
}

func (m *Metrics) RecordPublish(sink, eventType string, err error) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(sink, eventType, status(err)).Inc()
}

func (m *Metrics) RecordConsume(err error) {
	if m == nil {
		return
	}
	m.EventsConsumed.WithLabelValues(status(err)).Inc()
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) SetWebSocketClients(n int) {
	if m == nil {
		return
	}
	m.WebSocketClients.Set(float64(n))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
