package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bistro/server/internal/models"
	"bistro/server/internal/utils"
)

func TestDailySales(t *testing.T) {
	f := newFixture(t, OrderConfig{})
	reports := NewReportService(f.db, nil, utils.Cutoff{Hour: 5}, time.UTC)
	reports.now = fixedClock(time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC))

	rice := f.ingredient(t, "Rice", 10, 0, 2)
	item := f.menuItem(t, "Meal", 100)

	at := func(day, hour int) func() time.Time {
		return fixedClock(time.Date(2024, 1, day, hour, 0, 0, 0, time.UTC))
	}
	create := func(clock func() time.Time, qty int, d OrderDetails) *models.Order {
		f.orders.now = clock
		res, err := f.orders.Create(f.ctx, []CartLine{{MenuItemID: item.ID, Quantity: qty}}, d)
		require.NoError(t, err)
		return res.Order
	}

	create(at(14, 20), 1, OrderDetails{OrderType: models.OrderTypeTakeaway, PaymentMethod: "cash"})
	create(at(15, 10), 1, OrderDetails{OrderType: models.OrderTypeTakeaway, PaymentMethod: "cash"})
	create(at(16, 3), 2, OrderDetails{OrderType: models.OrderTypeOnline, PaymentMethod: "card"})
	create(at(15, 12), 1, OrderDetails{OrderType: models.OrderTypeDineIn})
	cancelled := create(at(15, 13), 1, OrderDetails{OrderType: models.OrderTypeDineIn})
	_, err := f.orders.Cancel(f.ctx, cancelled.ID)
	require.NoError(t, err)
	create(at(16, 6), 1, OrderDetails{OrderType: models.OrderTypeTakeaway, PaymentMethod: "cash"})

	f.stock.now = at(15, 11)
	_, err = f.stock.Sell(f.ctx, SaleInput{IngredientID: rice.ID, Quantity: 2, SalePrice: 5})
	require.NoError(t, err)

	date, err := reports.ParseBusinessDate("2024-01-15")
	require.NoError(t, err)
	got, err := reports.DailySales(f.ctx, date)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-15", got.BusinessDate)
	assert.Equal(t, time.Date(2024, 1, 15, 5, 0, 0, 0, time.UTC), got.From)
	assert.Equal(t, 2, got.CompletedOrders)
	assert.InDelta(t, 300, got.Revenue, 1e-9)
	assert.InDelta(t, 150, got.AverageTicket, 1e-9)
	assert.Equal(t, map[string]float64{"cash": 100, "card": 200}, got.ByPaymentMethod)
	assert.Equal(t, OrderTypeSummary{Orders: 1, Revenue: 200}, got.ByOrderType["online"])
	assert.Equal(t, OrderTypeSummary{Orders: 1, Revenue: 100}, got.ByOrderType["takeaway"])
	assert.Equal(t, 1, got.PendingOrders)
	assert.InDelta(t, 100, got.PendingValue, 1e-9)
	assert.Equal(t, 1, got.CancelledOrders)
	assert.Equal(t, StockSaleSummary{Sales: 1, Revenue: 10, Cost: 4, Profit: 6}, got.StockSales)
	assert.InDelta(t, 200, got.Change, 1e-9)
}

func TestParseBusinessDate(t *testing.T) {
	reports := NewReportService(nil, nil, utils.Cutoff{Hour: 5}, time.UTC)
	reports.now = fixedClock(time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC))

	d, err := reports.ParseBusinessDate("")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC), d)

	_, err = reports.ParseBusinessDate("15/01/2024")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMenuProfitability(t *testing.T) {
	f := newFixture(t, OrderConfig{})
	reports := NewReportService(f.db, nil, utils.Cutoff{Hour: 5}, time.UTC)

	paneer := f.ingredient(t, "Paneer", 5, 0, 300)
	f.menuItem(t, "Paneer tikka", 240, RecipeLineInput{IngredientID: paneer.ID, Quantity: 0.2})
	f.menuItem(t, "Lemonade", 60)

	rows, err := reports.MenuProfitability(f.ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Paneer tikka", rows[0].Name)
	assert.InDelta(t, 60, rows[0].Cost.Total, 1e-9)
	assert.InDelta(t, 75, rows[0].ProfitMargin, 1e-9)
	assert.InDelta(t, 100, rows[1].ProfitMargin, 1e-9)
}

func TestReportLowStock(t *testing.T) {
	f := newFixture(t, OrderConfig{})
	reports := NewReportService(f.db, nil, utils.Cutoff{Hour: 5}, time.UTC)

	low, err := f.stock.CreateIngredient(f.ctx, IngredientInput{Name: "Yeast", LowStockThreshold: 1})
	require.NoError(t, err)
	_, err = f.stock.AddPurchase(f.ctx, PurchaseInput{IngredientID: low.ID, Quantity: 0.4, UnitCost: 10})
	require.NoError(t, err)
	ok, err := f.stock.CreateIngredient(f.ctx, IngredientInput{Name: "Sugar", LowStockThreshold: 1})
	require.NoError(t, err)
	_, err = f.stock.AddPurchase(f.ctx, PurchaseInput{IngredientID: ok.ID, Quantity: 3, UnitCost: 1})
	require.NoError(t, err)

	rows, err := reports.LowStock(f.ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Yeast", rows[0].Name)
	assert.InDelta(t, 0.6, rows[0].Shortfall, 1e-9)
}

func TestClosedDayCachedOnlyOnceSettled(t *testing.T) {
	f := newFixture(t, OrderConfig{})
	reports := NewReportService(f.db, nil, utils.Cutoff{Hour: 5}, time.UTC)
	reports.now = fixedClock(time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC))
	item := f.menuItem(t, "Soup", 80)

	f.orders.now = fixedClock(time.Date(2024, 1, 15, 19, 0, 0, 0, time.UTC))
	res, err := f.orders.Create(f.ctx, []CartLine{{MenuItemID: item.ID, Quantity: 1}}, OrderDetails{OrderType: models.OrderTypeTakeaway})
	require.NoError(t, err)

	date, err := reports.ParseBusinessDate("2024-01-15")
	require.NoError(t, err)
	open, err := reports.DailySales(f.ctx, date)
	require.NoError(t, err)
	assert.Equal(t, 1, open.PendingOrders)
	assert.False(t, cacheableReport(true, open), "pending orders can still change the day")

	// Settling after the day closed keeps the order on its creation day.
	f.orders.now = fixedClock(time.Date(2024, 1, 18, 9, 0, 0, 0, time.UTC))
	_, err = f.orders.Settle(f.ctx, res.Order.ID, "cash")
	require.NoError(t, err)

	settled, err := reports.DailySales(f.ctx, date)
	require.NoError(t, err)
	assert.Equal(t, 0, settled.PendingOrders)
	assert.Equal(t, 1, settled.CompletedOrders)
	assert.InDelta(t, 80, settled.Revenue, 1e-9)
	assert.True(t, cacheableReport(true, settled))
	assert.False(t, cacheableReport(false, settled), "an open day is never cached")
}
