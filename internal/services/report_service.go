package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bistro/server/internal/models"
	"bistro/server/internal/utils"
)

// ReportService answers read-only questions over the ledger. Reports for
// business days that have closed with nothing left pending are cached in
// Redis when available.
type ReportService struct {
	db        *gorm.DB
	redisUtil *utils.RedisClient
	cutoff    utils.Cutoff
	location  *time.Location
	cacheTTL  time.Duration
	now       func() time.Time
}

func NewReportService(db *gorm.DB, redisUtil *utils.RedisClient, cutoff utils.Cutoff, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.Local
	}
	return &ReportService{
		db:        db,
		redisUtil: redisUtil,
		cutoff:    cutoff,
		location:  loc,
		cacheTTL:  10 * time.Minute,
		now:       time.Now,
	}
}

type OrderTypeSummary struct {
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type StockSaleSummary struct {
	Sales   int     `json:"sales"`
	Revenue float64 `json:"revenue"`
	Cost    float64 `json:"cost"`
	Profit  float64 `json:"profit"`
}

// DailySales summarises one business day. Revenue counts completed orders
// only; pending orders are reported separately and cancelled ones by count.
type DailySales struct {
	BusinessDate    string                      `json:"business_date"`
	From            time.Time                   `json:"from"`
	To              time.Time                   `json:"to"`
	CompletedOrders int                         `json:"completed_orders"`
	Subtotal        float64                     `json:"subtotal"`
	Tax             float64                     `json:"tax"`
	Discounts       float64                     `json:"discounts"`
	Revenue         float64                     `json:"revenue"`
	AverageTicket   float64                     `json:"average_ticket"`
	ByPaymentMethod map[string]float64          `json:"by_payment_method"`
	ByOrderType     map[string]OrderTypeSummary `json:"by_order_type"`
	PendingOrders   int                         `json:"pending_orders"`
	PendingValue    float64                     `json:"pending_value"`
	CancelledOrders int                         `json:"cancelled_orders"`
	StockSales      StockSaleSummary            `json:"stock_sales"`
	// Change is the revenue change against the previous business day, in percent.
	Change float64 `json:"change"`
}

// BusinessDate returns the business day ts falls on, in the configured zone.
func (rs *ReportService) BusinessDate(ts time.Time) time.Time {
	return rs.cutoff.BusinessDate(ts.In(rs.location))
}

// ParseBusinessDate parses YYYY-MM-DD in the configured zone. An empty
// string means the current business day.
func (rs *ReportService) ParseBusinessDate(s string) (time.Time, error) {
	if s == "" {
		return rs.BusinessDate(rs.now()), nil
	}
	d, err := time.ParseInLocation("2006-01-02", s, rs.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidInput, s)
	}
	return d, nil
}

// DailySales builds the sales report for the business day starting at date.
func (rs *ReportService) DailySales(ctx context.Context, date time.Time) (*DailySales, error) {
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, rs.location)
	key := "report:daily:" + date.Format("2006-01-02")
	_, end := rs.cutoff.Range(date)
	closed := !rs.now().Before(end)

	if closed && rs.redisUtil != nil {
		var cached DailySales
		err := rs.redisUtil.GetJSON(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !utils.IsNil(err) {
			log.Printf("⚠️ Report cache read %s failed: %v", key, err)
		}
	}

	report, err := rs.salesFor(ctx, date)
	if err != nil {
		return nil, err
	}
	prev, err := rs.salesFor(ctx, date.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	if prev.Revenue > 0 {
		change := utils.Dec(report.Revenue).Sub(utils.Dec(prev.Revenue)).
			Div(utils.Dec(prev.Revenue)).Mul(decimal.NewFromInt(100))
		report.Change = change.Round(1).InexactFloat64()
	}

	if rs.redisUtil != nil && cacheableReport(closed, report) {
		if err := rs.redisUtil.SetJSON(ctx, key, report, rs.cacheTTL); err != nil {
			log.Printf("⚠️ Report cache write %s failed: %v", key, err)
		}
	}
	return report, nil
}

// cacheableReport reports whether a daily report can no longer change. A
// closed day with pending orders still moves when they are settled or
// cancelled, so it is recomputed on every read until none remain.
func cacheableReport(closed bool, r *DailySales) bool {
	return closed && r.PendingOrders == 0
}

func (rs *ReportService) salesFor(ctx context.Context, date time.Time) (*DailySales, error) {
	start, end := rs.cutoff.Range(date)
	report := &DailySales{
		BusinessDate:    date.Format("2006-01-02"),
		From:            start,
		To:              end,
		ByPaymentMethod: map[string]float64{},
		ByOrderType:     map[string]OrderTypeSummary{},
	}

	var orders []models.Order
	err := rs.db.WithContext(ctx).
		Select("id", "status", "order_type", "payment_method", "subtotal", "tax", "discount_amount", "total").
		Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC()).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	subtotal, tax, discounts, revenue, pending := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	byPayment := map[string]decimal.Decimal{}
	byType := map[string]decimal.Decimal{}
	for _, o := range orders {
		switch o.Status {
		case models.OrderStatusCompleted:
			report.CompletedOrders++
			subtotal = subtotal.Add(utils.Dec(o.Subtotal))
			tax = tax.Add(utils.Dec(o.Tax))
			discounts = discounts.Add(utils.Dec(o.DiscountAmount))
			revenue = revenue.Add(utils.Dec(o.Total))

			method := o.PaymentMethod
			if method == "" {
				method = "unspecified"
			}
			byPayment[method] = byPayment[method].Add(utils.Dec(o.Total))

			t := string(o.OrderType)
			byType[t] = byType[t].Add(utils.Dec(o.Total))
			s := report.ByOrderType[t]
			s.Orders++
			report.ByOrderType[t] = s
		case models.OrderStatusPending:
			report.PendingOrders++
			pending = pending.Add(utils.Dec(o.Total))
		case models.OrderStatusCancelled:
			report.CancelledOrders++
		}
	}

	report.Subtotal = subtotal.Round(2).InexactFloat64()
	report.Tax = tax.Round(2).InexactFloat64()
	report.Discounts = discounts.Round(2).InexactFloat64()
	report.Revenue = revenue.Round(2).InexactFloat64()
	report.PendingValue = pending.Round(2).InexactFloat64()
	if report.CompletedOrders > 0 {
		report.AverageTicket = revenue.Div(decimal.NewFromInt(int64(report.CompletedOrders))).Round(2).InexactFloat64()
	}
	for k, v := range byPayment {
		report.ByPaymentMethod[k] = v.Round(2).InexactFloat64()
	}
	for k, v := range byType {
		s := report.ByOrderType[k]
		s.Revenue = v.Round(2).InexactFloat64()
		report.ByOrderType[k] = s
	}

	var sales []models.StockSale
	err = rs.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC()).
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	saleRevenue, saleCost := decimal.Zero, decimal.Zero
	for _, s := range sales {
		saleRevenue = saleRevenue.Add(utils.Dec(s.TotalSale))
		saleCost = saleCost.Add(utils.Dec(s.TotalCost))
	}
	report.StockSales = StockSaleSummary{
		Sales:   len(sales),
		Revenue: saleRevenue.Round(2).InexactFloat64(),
		Cost:    saleCost.Round(2).InexactFloat64(),
		Profit:  saleRevenue.Sub(saleCost).Round(2).InexactFloat64(),
	}
	return report, nil
}

// MenuProfitability costs every live menu item at current ingredient costs,
// lowest margin first.
func (rs *ReportService) MenuProfitability(ctx context.Context) ([]ItemCostReport, error) {
	var items []models.MenuItem
	err := rs.db.WithContext(ctx).
		Preload("Recipe", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Order("name").Find(&items).Error
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, it := range items {
		ids = append(ids, recipeIngredientIDs(it.Recipe)...)
	}
	ingredients, err := loadIngredients(rs.db.WithContext(ctx), ids)
	if err != nil {
		return nil, err
	}

	out := make([]ItemCostReport, 0, len(items))
	for _, it := range items {
		breakdown := CostRecipe(it.Recipe, ingredients)
		if breakdown.Partial() {
			log.Printf("⚠️ Menu item %s (%s) costed without %d unresolved ingredient(s)", it.Name, it.ID, len(breakdown.Unresolved))
		}
		out = append(out, ItemCostReport{
			MenuItemID:   it.ID,
			Name:         it.Name,
			Price:        it.Price,
			Cost:         breakdown,
			ProfitMargin: ProfitMargin(it.Price, breakdown.Total),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ProfitMargin < out[j].ProfitMargin })
	return out, nil
}

// LowStockItem is an ingredient at or below its threshold.
type LowStockItem struct {
	IngredientID string  `json:"ingredient_id"`
	Name         string  `json:"name"`
	Unit         string  `json:"unit"`
	StoreStock   float64 `json:"store_stock"`
	KitchenStock float64 `json:"kitchen_stock"`
	Threshold    float64 `json:"threshold"`
	Shortfall    float64 `json:"shortfall"`
}

func (rs *ReportService) LowStock(ctx context.Context) ([]LowStockItem, error) {
	var list []models.Ingredient
	err := rs.db.WithContext(ctx).
		Where("store_stock + kitchen_stock <= low_stock_threshold").
		Order("name").Find(&list).Error
	if err != nil {
		return nil, err
	}
	out := make([]LowStockItem, 0, len(list))
	for _, ing := range list {
		out = append(out, LowStockItem{
			IngredientID: ing.ID,
			Name:         ing.Name,
			Unit:         ing.Unit,
			StoreStock:   ing.StoreStock,
			KitchenStock: ing.KitchenStock,
			Threshold:    ing.LowStockThreshold,
			Shortfall:    utils.RoundQuantity(utils.Sub(ing.LowStockThreshold, ing.TotalStock())),
		})
	}
	return out, nil
}
