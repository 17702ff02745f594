package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordLedgerOperation("purchase", nil)
		m.RecordClamp("abc")
		m.RecordUnresolved("cancel", 2)
		m.RecordOrder("dine-in", "pending", 10, true)
		m.RecordPublish("kafka", "order.created", nil)
		m.RecordConsume(nil)
		m.SetCircuitBreakerState("kafka", 2)
		m.SetWebSocketClients(3)
	})
}

func TestRecordLedgerOperation(t *testing.T) {
	m := New("test")

	m.RecordLedgerOperation("transfer", nil)
	m.RecordLedgerOperation("transfer", nil)
	m.RecordLedgerOperation("transfer", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LedgerOperations.WithLabelValues("transfer", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerOperations.WithLabelValues("transfer", "error")))
}

func TestRecordUnresolvedSkipsZero(t *testing.T) {
	m := New("test")

	m.RecordUnresolved("cancel", 0)
	m.RecordUnresolved("cancel", 3)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.UnresolvedReferences.WithLabelValues("cancel")))
}

func TestGinMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New("test")

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/items/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/items/:id", "200")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "test_http_requests_total"))
}
