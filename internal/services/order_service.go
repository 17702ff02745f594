package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bistro/server/internal/events"
	"bistro/server/internal/metrics"
	"bistro/server/internal/models"
	"bistro/server/internal/utils"
)

// EntryPolicy decides the status an order is created in.
type EntryPolicy string

const (
	// EntryAllPending creates every order pending; all are settled explicitly.
	EntryAllPending EntryPolicy = "all_pending"
	// EntryAutoCompleteCounter keeps dine-in orders pending and completes
	// takeaway and online orders at creation.
	EntryAutoCompleteCounter EntryPolicy = "auto_complete_counter"
)

func ParseEntryPolicy(s string) (EntryPolicy, error) {
	switch p := EntryPolicy(strings.TrimSpace(strings.ToLower(s))); p {
	case EntryAllPending, EntryAutoCompleteCounter:
		return p, nil
	case "":
		return EntryAutoCompleteCounter, nil
	}
	return "", fmt.Errorf("%w: unknown order entry policy %q", ErrInvalidInput, s)
}

// initialStatus is the status a new order of type t starts in.
func (p EntryPolicy) initialStatus(t models.OrderType) models.OrderStatus {
	if p == EntryAutoCompleteCounter && t != models.OrderTypeDineIn {
		return models.OrderStatusCompleted
	}
	return models.OrderStatusPending
}

type PricingConfig struct {
	GSTEnabled bool
	TaxRate    float64
}

type OrderConfig struct {
	Pricing  PricingConfig
	Policy   EntryPolicy
	Cutoff   utils.Cutoff
	Location *time.Location
}

type CartLine struct {
	MenuItemID string `json:"menu_item_id" binding:"required"`
	Quantity   int    `json:"quantity"`
	Note       string `json:"note"`
}

type OrderDetails struct {
	OrderType     models.OrderType    `json:"order_type"`
	PaymentMethod string              `json:"payment_method"`
	DiscountType  models.DiscountType `json:"discount_type"`
	DiscountValue float64             `json:"discount_value"`
	TableID       *string             `json:"table_id"`
	WaiterID      *string             `json:"waiter_id"`
	CustomerName  string              `json:"customer_name"`
}

// Totals is the priced result of a cart.
type Totals struct {
	Subtotal       float64 `json:"subtotal"`
	TaxRate        float64 `json:"tax_rate"`
	Tax            float64 `json:"tax"`
	DiscountAmount float64 `json:"discount_amount"`
	Total          float64 `json:"total"`
}

// ComputeTotals prices a subtotal. Tax applies to the subtotal only when GST
// is enabled; a percentage discount is taken from the subtotal, never from
// tax. The total is floored at zero.
func ComputeTotals(subtotal float64, discountType models.DiscountType, discountValue float64, p PricingConfig) (Totals, error) {
	sub := utils.Dec(subtotal)

	tax := decimal.Zero
	rate := 0.0
	if p.GSTEnabled {
		rate = p.TaxRate
		tax = sub.Mul(utils.Dec(rate)).Round(2)
	}

	var discount decimal.Decimal
	switch discountType {
	case models.DiscountNone:
		if discountValue != 0 {
			return Totals{}, fmt.Errorf("%w: value %.2f without a discount type", ErrInvalidDiscount, discountValue)
		}
	case models.DiscountPercentage:
		if discountValue < 0 || discountValue > 100 {
			return Totals{}, fmt.Errorf("%w: percentage %.2f outside 0-100", ErrInvalidDiscount, discountValue)
		}
		discount = sub.Mul(utils.Dec(discountValue)).Div(decimal.NewFromInt(100)).Round(2)
	case models.DiscountFixed:
		if discountValue < 0 {
			return Totals{}, fmt.Errorf("%w: fixed amount %.2f is negative", ErrInvalidDiscount, discountValue)
		}
		discount = utils.Dec(discountValue).Round(2)
	default:
		return Totals{}, fmt.Errorf("%w: unknown type %q", ErrInvalidDiscount, discountType)
	}

	total := sub.Add(tax).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return Totals{
		Subtotal:       utils.RoundMoney(subtotal),
		TaxRate:        rate,
		Tax:            tax.InexactFloat64(),
		DiscountAmount: discount.InexactFloat64(),
		Total:          total.Round(2).InexactFloat64(),
	}, nil
}

// UnresolvedRef names a menu item or ingredient that no longer exists.
type UnresolvedRef struct {
	Kind       string `json:"kind"` // "menu_item" or "ingredient"
	ID         string `json:"id"`
	MenuItemID string `json:"menu_item_id,omitempty"`
}

// OrderResult is returned by Create and Cancel. Movements are the stock
// changes written; Unresolved lists references that were skipped.
type OrderResult struct {
	Order      *models.Order          `json:"order"`
	Movements  []models.StockMovement `json:"movements"`
	Unresolved []UnresolvedRef        `json:"unresolved,omitempty"`
}

// Clamped returns the deductions that were floored at zero.
func (r *OrderResult) Clamped() []models.StockMovement {
	var out []models.StockMovement
	for _, m := range r.Movements {
		if m.MovementType == models.MovementOrderDeduction && m.Clamped() {
			out = append(out, m)
		}
	}
	return out
}

// OrderService is the order state machine. It is the only caller of the
// kitchen deduction/restoration and table occupy/free operations.
type OrderService struct {
	db       *gorm.DB
	stock    *StockService
	tables   *TableService
	cfg      OrderConfig
	notifier events.Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewOrderService(db *gorm.DB, stock *StockService, tables *TableService, cfg OrderConfig) *OrderService {
	if cfg.Policy == "" {
		cfg.Policy = EntryAutoCompleteCounter
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &OrderService{
		db:       db,
		stock:    stock,
		tables:   tables,
		cfg:      cfg,
		notifier: events.Nop{},
		now:      time.Now,
	}
}

func (s *OrderService) SetNotifier(n events.Notifier) {
	if n == nil {
		n = events.Nop{}
	}
	s.notifier = n
}

func (s *OrderService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

func (s *OrderService) Policy() EntryPolicy {
	return s.cfg.Policy
}

// Create prices the cart, deducts kitchen stock for every recipe line,
// occupies the table for dine-in and stores the order, all in one
// transaction.
func (s *OrderService) Create(ctx context.Context, cart []CartLine, d OrderDetails) (*OrderResult, error) {
	if err := validateCart(cart); err != nil {
		return nil, err
	}
	orderType, err := normalizeOrderType(d.OrderType)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:            uuid.NewString(),
		OrderType:     orderType,
		PaymentMethod: strings.TrimSpace(d.PaymentMethod),
		CustomerName:  strings.TrimSpace(d.CustomerName),
		DiscountType:  d.DiscountType,
		DiscountValue: d.DiscountValue,
		Status:        s.cfg.Policy.initialStatus(orderType),
		CreatedAt:     now.UTC(),
	}
	if order.Status == models.OrderStatusCompleted {
		order.CompletedAt = &now
	}
	result := &OrderResult{Order: order}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		menu, err := itemsForOrder(tx, cartMenuIDs(cart))
		if err != nil {
			return err
		}
		items, subtotal, err := snapshotItems(cart, menu)
		if err != nil {
			return err
		}
		totals, err := ComputeTotals(subtotal, d.DiscountType, d.DiscountValue, s.cfg.Pricing)
		if err != nil {
			return err
		}
		applyTotals(order, totals)

		if err := s.attachWaiter(tx, order, d.WaiterID); err != nil {
			return err
		}
		if orderType == models.OrderTypeDineIn && d.TableID != nil && *d.TableID != "" {
			table, err := s.tables.occupy(tx, *d.TableID, order.ID)
			if err != nil {
				return err
			}
			order.TableID = &table.ID
			order.TableNumber = &table.Number
		}

		number, err := s.nextOrderNumber(tx, now)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		order.Items = items
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		needs := make(map[string]float64)
		for _, line := range cart {
			for _, r := range menu[line.MenuItemID].Recipe {
				needs[r.IngredientID] = utils.Add(needs[r.IngredientID], utils.Mul(r.Quantity, float64(line.Quantity)))
			}
		}
		for _, ingredientID := range sortedKeys(needs) {
			mv, err := s.stock.deductForOrder(tx, order.ID, ingredientID, utils.RoundQuantity(needs[ingredientID]))
			if errors.Is(err, ErrNotFound) {
				result.Unresolved = append(result.Unresolved, UnresolvedRef{Kind: "ingredient", ID: ingredientID})
				continue
			}
			if err != nil {
				return err
			}
			result.Movements = append(result.Movements, *mv)
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordLedgerOperation("order_create", err)
		return nil, err
	}
	s.metrics.RecordLedgerOperation("order_create", nil)
	s.metrics.RecordOrder(string(order.OrderType), string(order.Status), order.Total, true)
	s.reportUnresolved("create", order, result.Unresolved)

	log.Printf("🧾 Order %s created: %s, %s, total %.2f, %d line(s)",
		order.OrderNumber, order.OrderType, order.Status, order.Total, len(order.Items))
	s.notify(ctx, models.EventOrderCreated, order, map[string]interface{}{
		"clamped": len(result.Clamped()) > 0,
	})
	return result, nil
}

// Update reprices a pending order and replaces its items wholesale. Stock
// deducted at creation is NOT corrected for the new contents; only Create
// and Cancel move stock.
func (s *OrderService) Update(ctx context.Context, orderID string, cart []CartLine, d OrderDetails) (*models.Order, error) {
	if err := validateCart(cart); err != nil {
		return nil, err
	}
	orderType, err := normalizeOrderType(d.OrderType)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err = lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if !order.IsPending() {
			return fmt.Errorf("%w: cannot edit %s order %s", ErrInvalidTransition, order.Status, order.OrderNumber)
		}

		menu, err := itemsForOrder(tx, cartMenuIDs(cart))
		if err != nil {
			return err
		}
		items, subtotal, err := snapshotItems(cart, menu)
		if err != nil {
			return err
		}
		totals, err := ComputeTotals(subtotal, d.DiscountType, d.DiscountValue, s.cfg.Pricing)
		if err != nil {
			return err
		}
		applyTotals(order, totals)

		if err := s.moveTable(tx, order, orderType, d.TableID); err != nil {
			return err
		}
		if err := s.attachWaiter(tx, order, d.WaiterID); err != nil {
			return err
		}
		order.OrderType = orderType
		order.PaymentMethod = strings.TrimSpace(d.PaymentMethod)
		order.CustomerName = strings.TrimSpace(d.CustomerName)
		order.DiscountType = d.DiscountType
		order.DiscountValue = d.DiscountValue

		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		order.Items = items

		return tx.Model(order).Select(
			"subtotal", "tax_rate", "tax", "discount_type", "discount_value", "discount_amount", "total",
			"payment_method", "order_type", "table_id", "table_number", "waiter_id", "waiter_name", "customer_name",
		).Updates(order).Error
	})
	s.metrics.RecordLedgerOperation("order_update", err)
	if err != nil {
		return nil, err
	}

	log.Printf("🧾 Order %s updated: total %.2f, %d line(s); stock not re-deducted", order.OrderNumber, order.Total, len(order.Items))
	s.notify(ctx, models.EventOrderUpdated, order, nil)
	return order, nil
}

// Settle completes a pending order and frees its table. Stock is untouched;
// it was deducted at creation. A non-empty paymentMethod replaces the one on
// the order.
func (s *OrderService) Settle(ctx context.Context, orderID string, paymentMethod string) (*models.Order, error) {
	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if !order.IsPending() {
			return fmt.Errorf("%w: cannot settle %s order %s", ErrInvalidTransition, order.Status, order.OrderNumber)
		}
		if order.TableID != nil {
			if err := s.tables.free(tx, *order.TableID, order.ID); err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
		}

		now := s.now().UTC()
		order.Status = models.OrderStatusCompleted
		order.CompletedAt = &now
		if pm := strings.TrimSpace(paymentMethod); pm != "" {
			order.PaymentMethod = pm
		}
		return tx.Model(order).Select("status", "completed_at", "payment_method").Updates(order).Error
	})
	s.metrics.RecordLedgerOperation("order_settle", err)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordOrder(string(order.OrderType), string(order.Status), order.Total, false)

	log.Printf("🧾 Order %s settled (%s)", order.OrderNumber, order.PaymentMethod)
	s.notify(ctx, models.EventOrderSettled, order, nil)
	return s.Get(ctx, order.ID)
}

// Cancel cancels a pending order, frees its table and gives back kitchen
// stock per the current recipes of its items. Items or ingredients that no
// longer exist are skipped and returned in Unresolved.
func (s *OrderService) Cancel(ctx context.Context, orderID string) (*OrderResult, error) {
	result := &OrderResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		result.Order = order
		if !order.IsPending() {
			return fmt.Errorf("%w: cannot cancel %s order %s", ErrInvalidTransition, order.Status, order.OrderNumber)
		}
		if err := tx.Where("order_id = ?", order.ID).Order("position").Find(&order.Items).Error; err != nil {
			return err
		}
		if order.TableID != nil {
			if err := s.tables.free(tx, *order.TableID, order.ID); err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
		}

		ids := make([]string, 0, len(order.Items))
		for _, it := range order.Items {
			ids = append(ids, it.MenuItemID)
		}
		menu, err := itemsForOrder(tx, ids)
		if err != nil {
			return err
		}

		gives := make(map[string]float64)
		owner := make(map[string]string)
		for _, it := range order.Items {
			mi, ok := menu[it.MenuItemID]
			if !ok {
				result.Unresolved = append(result.Unresolved, UnresolvedRef{Kind: "menu_item", ID: it.MenuItemID})
				continue
			}
			for _, r := range mi.Recipe {
				gives[r.IngredientID] = utils.Add(gives[r.IngredientID], utils.Mul(r.Quantity, float64(it.Quantity)))
				if _, seen := owner[r.IngredientID]; !seen {
					owner[r.IngredientID] = mi.ID
				}
			}
		}
		for _, ingredientID := range sortedKeys(gives) {
			mv, err := s.stock.restoreForOrder(tx, order.ID, ingredientID, utils.RoundQuantity(gives[ingredientID]))
			if errors.Is(err, ErrNotFound) {
				result.Unresolved = append(result.Unresolved, UnresolvedRef{Kind: "ingredient", ID: ingredientID, MenuItemID: owner[ingredientID]})
				continue
			}
			if err != nil {
				return err
			}
			result.Movements = append(result.Movements, *mv)
		}

		now := s.now().UTC()
		order.Status = models.OrderStatusCancelled
		order.CancelledAt = &now
		return tx.Model(order).Select("status", "cancelled_at").Updates(order).Error
	})
	s.metrics.RecordLedgerOperation("order_cancel", err)
	if err != nil {
		return nil, err
	}
	order := result.Order
	s.metrics.RecordOrder(string(order.OrderType), string(order.Status), order.Total, false)
	s.reportUnresolved("cancel", order, result.Unresolved)

	log.Printf("🧾 Order %s cancelled, %d ingredient(s) restored", order.OrderNumber, len(result.Movements))
	s.notify(ctx, models.EventOrderCancelled, order, map[string]interface{}{
		"partial": len(result.Unresolved) > 0,
	})
	return result, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound, "id", id)
	}
	return &order, nil
}

func (s *OrderService) GetByNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&order, "order_number = ?", number).Error
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound, "number", number)
	}
	return &order, nil
}

type OrderFilter struct {
	Status    models.OrderStatus
	OrderType models.OrderType
	TableID   string
	WaiterID  string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

func (s *OrderService) List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Order{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.OrderType != "" {
		q = q.Where("order_type = ?", f.OrderType)
	}
	if f.TableID != "" {
		q = q.Where("table_id = ?", f.TableID)
	}
	if f.WaiterID != "" {
		q = q.Where("waiter_id = ?", f.WaiterID)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var orders []models.Order
	err := q.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Order("created_at DESC").Limit(limit).Offset(f.Offset).Find(&orders).Error
	return orders, total, err
}

// nextOrderNumber returns YYYYMMDD-NNNN for the business date of ts.
func (s *OrderService) nextOrderNumber(tx *gorm.DB, ts time.Time) (string, error) {
	date := s.cfg.Cutoff.BusinessDate(ts.In(s.cfg.Location)).Format("20060102")

	seq := models.OrderSequence{BusinessDate: date}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seq).Error; err != nil {
		return "", err
	}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&seq, "business_date = ?", date).Error; err != nil {
		return "", err
	}
	seq.LastNumber++
	if err := tx.Model(&seq).Update("last_number", seq.LastNumber).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%04d", date, seq.LastNumber), nil
}

// moveTable applies a table or order type change on a pending order.
func (s *OrderService) moveTable(tx *gorm.DB, order *models.Order, newType models.OrderType, newTableID *string) error {
	var want *string
	if newType == models.OrderTypeDineIn && newTableID != nil && *newTableID != "" {
		want = newTableID
	}
	have := order.TableID
	if have != nil && want != nil && *have == *want {
		return nil
	}
	if have != nil {
		if err := s.tables.free(tx, *have, order.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		order.TableID, order.TableNumber = nil, nil
	}
	if want != nil {
		table, err := s.tables.occupy(tx, *want, order.ID)
		if err != nil {
			return err
		}
		order.TableID = &table.ID
		order.TableNumber = &table.Number
	}
	return nil
}

func (s *OrderService) attachWaiter(tx *gorm.DB, order *models.Order, waiterID *string) error {
	if waiterID == nil || *waiterID == "" {
		order.WaiterID, order.WaiterName = nil, ""
		return nil
	}
	var w models.Waiter
	if err := tx.First(&w, "id = ?", *waiterID).Error; err != nil {
		return notFound(err, ErrNotFound, "waiter", *waiterID)
	}
	if !w.IsActive {
		return fmt.Errorf("%w: waiter %s is inactive", ErrInvalidInput, w.Name)
	}
	order.WaiterID = &w.ID
	order.WaiterName = w.Name
	return nil
}

func (s *OrderService) reportUnresolved(op string, order *models.Order, refs []UnresolvedRef) {
	if len(refs) == 0 {
		return
	}
	s.metrics.RecordUnresolved(op, len(refs))
	for _, r := range refs {
		log.Printf("⚠️ Order %s %s: skipped unresolved %s %s", order.OrderNumber, op, r.Kind, r.ID)
	}
}

func (s *OrderService) notify(ctx context.Context, t models.LedgerEventType, order *models.Order, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["order_number"] = order.OrderNumber
	data["status"] = string(order.Status)
	data["total"] = order.Total
	if order.TableID != nil {
		data["table_id"] = *order.TableID
	}
	s.notifier.Notify(ctx, models.NewLedgerEvent(t, order.ID, data))
}

func lockOrder(tx *gorm.DB, id string) (*models.Order, error) {
	var order models.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrOrderNotFound, "id", id)
	}
	return &order, nil
}

func validateCart(cart []CartLine) error {
	if len(cart) == 0 {
		return ErrEmptyCart
	}
	for _, line := range cart {
		if line.MenuItemID == "" {
			return fmt.Errorf("%w: cart line without menu item", ErrInvalidInput)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: menu item %s", ErrInvalidQuantity, line.MenuItemID)
		}
	}
	return nil
}

func normalizeOrderType(t models.OrderType) (models.OrderType, error) {
	if t == "" {
		return models.OrderTypeDineIn, nil
	}
	if !t.IsValid() {
		return "", fmt.Errorf("%w: unknown order type %q", ErrInvalidInput, t)
	}
	return t, nil
}

// snapshotItems freezes name and price of each cart line and sums the lines.
func snapshotItems(cart []CartLine, menu map[string]models.MenuItem) ([]models.OrderItem, float64, error) {
	items := make([]models.OrderItem, 0, len(cart))
	subtotal := decimal.Zero
	for i, line := range cart {
		mi, ok := menu[line.MenuItemID]
		if !ok {
			return nil, 0, fmt.Errorf("%w: menu item %s", ErrNotFound, line.MenuItemID)
		}
		if !mi.IsAvailable {
			return nil, 0, fmt.Errorf("%w: %s is not available", ErrInvalidInput, mi.Name)
		}
		lineTotal := utils.Dec(mi.Price).Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		subtotal = subtotal.Add(lineTotal)
		items = append(items, models.OrderItem{
			MenuItemID: mi.ID,
			Name:       mi.Name,
			Quantity:   line.Quantity,
			UnitPrice:  mi.Price,
			LineTotal:  lineTotal.InexactFloat64(),
			Note:       strings.TrimSpace(line.Note),
			Position:   i,
		})
	}
	return items, subtotal.InexactFloat64(), nil
}

func applyTotals(order *models.Order, t Totals) {
	order.Subtotal = t.Subtotal
	order.TaxRate = t.TaxRate
	order.Tax = t.Tax
	order.DiscountAmount = t.DiscountAmount
	order.Total = t.Total
}

func cartMenuIDs(cart []CartLine) []string {
	ids := make([]string, 0, len(cart))
	for _, l := range cart {
		ids = append(ids, l.MenuItemID)
	}
	return uniqueStrings(ids)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
