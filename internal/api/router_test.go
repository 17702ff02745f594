package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bistro/server/internal/database"
	"bistro/server/internal/events"
	"bistro/server/internal/metrics"
	"bistro/server/internal/models"
	"bistro/server/internal/services"
	"bistro/server/internal/utils"
)

type testServer struct {
	router *gin.Engine
	svc    Services
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.ConnectSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	m := metrics.New("bistro_test")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := NewHub(m)
	go hub.Run(ctx)

	stock := services.NewStockService(db)
	menu := services.NewMenuService(db, nil)
	tables := services.NewTableService(db)
	orders := services.NewOrderService(db, stock, tables, services.OrderConfig{
		Pricing:  services.PricingConfig{GSTEnabled: true, TaxRate: 0.05},
		Policy:   services.EntryAutoCompleteCounter,
		Cutoff:   utils.Cutoff{Hour: 5},
		Location: time.UTC,
	})
	notifier := HubNotifier{Hub: hub}
	for _, s := range []interface{ SetNotifier(events.Notifier) }{stock, menu, tables, orders} {
		s.SetNotifier(notifier)
	}

	svc := Services{
		DB:      db,
		Stock:   stock,
		Menu:    menu,
		Tables:  tables,
		Orders:  orders,
		Reports: services.NewReportService(db, nil, utils.Cutoff{Hour: 5}, time.UTC),
		Hub:     hub,
		Metrics: m,
	}
	return &testServer{router: SetupRouter(svc), svc: svc}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
	req.Header.Set("Origin", "http://pos.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestInventoryFlow(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/inventory/ingredients", gin.H{"name": "Flour", "unit": "kg", "low_stock_threshold": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var ing models.Ingredient
	decode(t, w, &ing)

	w = ts.do(t, http.MethodPost, "/api/v1/inventory/purchases", gin.H{"ingredient_id": ing.ID, "quantity": 10, "unit_cost": 100})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = ts.do(t, http.MethodPost, "/api/v1/inventory/purchases", gin.H{"ingredient_id": ing.ID, "quantity": 10, "unit_cost": 200})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var purchase struct {
		Ingredient models.Ingredient `json:"ingredient"`
	}
	decode(t, w, &purchase)
	assert.InDelta(t, 150, purchase.Ingredient.CostPerUnit, 1e-9)
	assert.InDelta(t, 20, purchase.Ingredient.StoreStock, 1e-9)

	w = ts.do(t, http.MethodPost, "/api/v1/inventory/transfer", gin.H{"ingredient_id": ing.ID, "quantity": 25, "from": "store", "to": "kitchen"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), CodeInsufficientStock)

	w = ts.do(t, http.MethodPost, "/api/v1/inventory/transfer", gin.H{"ingredient_id": ing.ID, "quantity": 5, "from": "store", "to": "kitchen"})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/v1/inventory/remove", gin.H{"ingredient_id": ing.ID, "quantity": 1, "location": "kitchen"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/inventory/ingredients/"+ing.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &ing)
	assert.InDelta(t, 15, ing.StoreStock, 1e-9)
	assert.InDelta(t, 5, ing.KitchenStock, 1e-9)

	w = ts.do(t, http.MethodGet, "/api/v1/inventory/transfers?ingredient_id="+ing.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Count int `json:"count"`
	}
	decode(t, w, &list)
	assert.Equal(t, 3, list.Count, "two purchase receipts and one transfer")

	w = ts.do(t, http.MethodGet, "/api/v1/inventory/purchases?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/inventory/ingredients/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), CodeNotFound)
}

func TestOrderFlow(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	cheese, err := ts.svc.Stock.CreateIngredient(ctx, services.IngredientInput{Name: "Cheese"})
	require.NoError(t, err)
	_, err = ts.svc.Stock.AddPurchase(ctx, services.PurchaseInput{IngredientID: cheese.ID, Quantity: 1, UnitCost: 10})
	require.NoError(t, err)
	_, err = ts.svc.Stock.Transfer(ctx, services.TransferInput{IngredientID: cheese.ID, Quantity: 0.8, From: models.LocationStore, To: models.LocationKitchen})
	require.NoError(t, err)

	w := ts.do(t, http.MethodPost, "/api/v1/menu/items", gin.H{
		"name": "Pizza", "price": 500,
		"recipe": []gin.H{{"ingredient_id": cheese.ID, "quantity": 0.5}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var item models.MenuItem
	decode(t, w, &item)

	w = ts.do(t, http.MethodPost, "/api/v1/tables", gin.H{"number": 4})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var table models.Table
	decode(t, w, &table)

	w = ts.do(t, http.MethodPost, "/api/v1/orders", gin.H{"items": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/orders", gin.H{
		"items":          []gin.H{{"menu_item_id": item.ID, "quantity": 2}},
		"order_type":     "dine-in",
		"table_id":       table.ID,
		"discount_type":  "percentage",
		"discount_value": 10,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Order   models.Order           `json:"order"`
		Clamped []models.StockMovement `json:"clamped"`
	}
	decode(t, w, &created)
	assert.InDelta(t, 950, created.Order.Total, 1e-9)
	assert.Equal(t, models.OrderStatusPending, created.Order.Status)
	assert.Len(t, created.Clamped, 1)

	w = ts.do(t, http.MethodPost, "/api/v1/orders", gin.H{
		"items":    []gin.H{{"menu_item_id": item.ID, "quantity": 1}},
		"table_id": table.ID,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/orders/"+created.Order.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	ing, err := ts.svc.Stock.GetIngredient(ctx, cheese.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, ing.KitchenStock, 1e-9)

	w = ts.do(t, http.MethodPost, "/api/v1/orders/"+created.Order.ID+"/settle", gin.H{"payment_method": "cash"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/orders/number/"+created.Order.OrderNumber, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/orders?status=cancelled", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Total int `json:"total"`
	}
	decode(t, w, &list)
	assert.Equal(t, 1, list.Total)

	w = ts.do(t, http.MethodGet, "/api/v1/orders/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportsAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/reports/daily?date=2024-01-15", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var daily services.DailySales
	decode(t, w, &daily)
	assert.Equal(t, "2024-01-15", daily.BusinessDate)
	assert.Zero(t, daily.CompletedOrders)

	w = ts.do(t, http.MethodGet, "/api/v1/reports/daily?date=15.01.2024", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/reports/low-stock", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodGet, "/api/v1/reports/menu-profitability", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bistro_test_http_requests_total")
}

func TestLedgerWebSocket(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/ledger"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return ts.svc.Hub.GetClientsCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = ts.svc.Stock.CreateIngredient(context.Background(), services.IngredientInput{Name: "Salt"})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var event models.LedgerEvent
	require.NoError(t, json.Unmarshal(msg, &event))
	assert.Equal(t, models.EventIngredientChanged, event.Type)
}

func TestFromError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{services.ErrOrderNotFound, http.StatusNotFound},
		{services.ErrEmptyCart, http.StatusBadRequest},
		{services.ErrInsufficientStock, http.StatusConflict},
		{services.ErrTableOccupied, http.StatusConflict},
		{fmt.Errorf("wrapped: %w", services.ErrInvalidDiscount), http.StatusBadRequest},
		{fmt.Errorf("driver: connection reset"), http.StatusInternalServerError},
		{ErrValidation("bad"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, FromError(tt.err).HTTPStatus, tt.err.Error())
	}
	assert.Equal(t, "internal error", FromError(fmt.Errorf("secret dsn")).Message)
}
