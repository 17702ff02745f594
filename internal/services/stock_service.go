package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bistro/server/internal/events"
	"bistro/server/internal/metrics"
	"bistro/server/internal/models"
	"bistro/server/internal/utils"
)

// StockService owns ingredient stock. Every stock or cost change goes through
// one of its methods inside a transaction; nothing else writes those columns.
type StockService struct {
	db       *gorm.DB
	notifier events.Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewStockService(db *gorm.DB) *StockService {
	return &StockService{
		db:       db,
		notifier: events.Nop{},
		now:      time.Now,
	}
}

func (s *StockService) SetNotifier(n events.Notifier) {
	if n == nil {
		n = events.Nop{}
	}
	s.notifier = n
}

func (s *StockService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

type IngredientInput struct {
	Name              string  `json:"name" binding:"required"`
	Unit              string  `json:"unit"`
	LowStockThreshold float64 `json:"low_stock_threshold"`
	CategoryID        *string `json:"category_id"`
}

func (in IngredientInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.LowStockThreshold < 0 {
		return fmt.Errorf("%w: low stock threshold must not be negative", ErrInvalidInput)
	}
	return nil
}

// CreateIngredient adds an ingredient with zero stock. Opening stock is
// booked with AddPurchase so it appears in the ledger.
func (s *StockService) CreateIngredient(ctx context.Context, in IngredientInput) (*models.Ingredient, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		unit = "kg"
	}
	ing := &models.Ingredient{
		Name:              strings.TrimSpace(in.Name),
		Unit:              unit,
		LowStockThreshold: in.LowStockThreshold,
		CategoryID:        in.CategoryID,
	}
	if err := s.db.WithContext(ctx).Create(ing).Error; err != nil {
		return nil, fmt.Errorf("create ingredient: %w", err)
	}
	s.notify(ctx, models.EventIngredientChanged, ing.ID, nil)
	return ing, nil
}

// UpdateIngredient edits descriptive fields only. Stock and cost are
// never touched here.
func (s *StockService) UpdateIngredient(ctx context.Context, id string, in IngredientInput) (*models.Ingredient, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var ing models.Ingredient
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ing, "id = ?", id).Error; err != nil {
			return notFound(err, ErrNotFound, "ingredient", id)
		}
		updates := map[string]interface{}{
			"name":                strings.TrimSpace(in.Name),
			"low_stock_threshold": in.LowStockThreshold,
			"category_id":         in.CategoryID,
		}
		if u := strings.TrimSpace(in.Unit); u != "" {
			updates["unit"] = u
		}
		if err := tx.Model(&ing).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&ing, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, models.EventIngredientChanged, ing.ID, nil)
	return &ing, nil
}

// DeleteIngredient soft-deletes an ingredient. It fails with
// ErrIngredientInUse while any live menu item's recipe references it.
func (s *StockService) DeleteIngredient(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ing, err := lockIngredient(tx, id)
		if err != nil {
			return err
		}
		var uses int64
		err = tx.Model(&models.RecipeLine{}).
			Joins("JOIN menu_items ON menu_items.id = recipe_lines.menu_item_id AND menu_items.deleted_at IS NULL").
			Where("recipe_lines.ingredient_id = ?", id).
			Count(&uses).Error
		if err != nil {
			return err
		}
		if uses > 0 {
			return fmt.Errorf("%w: %s is used in %d recipe line(s)", ErrIngredientInUse, ing.Name, uses)
		}
		return tx.Delete(ing).Error
	})
	s.metrics.RecordLedgerOperation("delete_ingredient", err)
	if err != nil {
		return err
	}
	s.notify(ctx, models.EventIngredientDeleted, id, nil)
	return nil
}

func (s *StockService) GetIngredient(ctx context.Context, id string) (*models.Ingredient, error) {
	var ing models.Ingredient
	if err := s.db.WithContext(ctx).Preload("Category").First(&ing, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrNotFound, "ingredient", id)
	}
	return &ing, nil
}

type IngredientFilter struct {
	CategoryID string
	Search     string
	LowStock   bool
}

func (s *StockService) ListIngredients(ctx context.Context, f IngredientFilter) ([]models.Ingredient, error) {
	q := s.db.WithContext(ctx).Preload("Category").Order("name")
	if f.CategoryID != "" {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.Search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(f.Search)+"%")
	}
	if f.LowStock {
		q = q.Where("store_stock + kitchen_stock <= low_stock_threshold")
	}
	var out []models.Ingredient
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// LowStock lists ingredients whose combined stock is at or below threshold.
func (s *StockService) LowStock(ctx context.Context) ([]models.Ingredient, error) {
	return s.ListIngredients(ctx, IngredientFilter{LowStock: true})
}

func (s *StockService) CreateCategory(ctx context.Context, name string) (*models.IngredientCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	c := &models.IngredientCategory{Name: name}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *StockService) ListCategories(ctx context.Context) ([]models.IngredientCategory, error) {
	var out []models.IngredientCategory
	if err := s.db.WithContext(ctx).Order("name").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// WeightedAverageCost blends the current store stock at oldCost with a new
// purchase. When there is nothing to average against the purchase cost wins.
func WeightedAverageCost(storeStock, oldCost, quantity, unitCost float64) float64 {
	den := utils.Dec(storeStock).Add(utils.Dec(quantity))
	if !den.IsPositive() {
		return utils.RoundCost(unitCost)
	}
	num := utils.Dec(storeStock).Mul(utils.Dec(oldCost)).Add(utils.Dec(quantity).Mul(utils.Dec(unitCost)))
	return utils.RoundCost(num.Div(den).InexactFloat64())
}

type PurchaseInput struct {
	IngredientID string     `json:"ingredient_id" binding:"required"`
	Quantity     float64    `json:"quantity"`
	UnitCost     float64    `json:"unit_cost"`
	Supplier     string     `json:"supplier"`
	Notes        string     `json:"notes"`
	PurchaseDate *time.Time `json:"purchase_date"`
}

// AddPurchase books a delivery into store stock and recomputes the
// weighted-average cost. A store→store transfer is written as the receipt.
func (s *StockService) AddPurchase(ctx context.Context, in PurchaseInput) (*models.StockPurchase, error) {
	// Columns hold three places; the recorded quantity must be the one applied.
	in.Quantity = utils.RoundQuantity(in.Quantity)
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if in.UnitCost < 0 {
		return nil, fmt.Errorf("%w: unit cost must not be negative", ErrInvalidInput)
	}
	in.UnitCost = utils.RoundCost(in.UnitCost)

	var purchase models.StockPurchase
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ing, err := lockIngredient(tx, in.IngredientID)
		if err != nil {
			return err
		}

		newCost := WeightedAverageCost(ing.StoreStock, ing.CostPerUnit, in.Quantity, in.UnitCost)
		newStore := utils.RoundQuantity(utils.Add(ing.StoreStock, in.Quantity))
		if err := saveStock(tx, ing, newStore, ing.KitchenStock, newCost); err != nil {
			return err
		}

		purchaseDate := s.now().UTC()
		if in.PurchaseDate != nil {
			purchaseDate = in.PurchaseDate.UTC()
		}
		purchase = models.StockPurchase{
			IngredientID: ing.ID,
			Quantity:     in.Quantity,
			UnitCost:     in.UnitCost,
			TotalCost:    utils.RoundMoney(utils.Mul(in.Quantity, in.UnitCost)),
			Supplier:     in.Supplier,
			Notes:        in.Notes,
			PurchaseDate: purchaseDate,
		}
		if err := tx.Create(&purchase).Error; err != nil {
			return err
		}
		receipt := models.StockTransfer{
			IngredientID: ing.ID,
			FromLocation: models.LocationStore,
			ToLocation:   models.LocationStore,
			Quantity:     in.Quantity,
			Reason:       "purchase receipt",
			PurchaseID:   &purchase.ID,
		}
		return tx.Create(&receipt).Error
	})
	s.metrics.RecordLedgerOperation("purchase", err)
	if err != nil {
		return nil, err
	}

	log.Printf("📦 Purchase %s: +%.3f @ %.4f", in.IngredientID, in.Quantity, in.UnitCost)
	s.notify(ctx, models.EventStockPurchased, in.IngredientID, map[string]interface{}{
		"purchase_id": purchase.ID,
		"quantity":    in.Quantity,
	})
	return &purchase, nil
}

type TransferInput struct {
	IngredientID string               `json:"ingredient_id" binding:"required"`
	Quantity     float64              `json:"quantity"`
	From         models.StockLocation `json:"from" binding:"required"`
	To           models.StockLocation `json:"to" binding:"required"`
	Reason       string               `json:"reason"`
}

// Transfer moves stock between store and kitchen. The whole quantity moves
// or nothing does; store+kitchen is unchanged.
func (s *StockService) Transfer(ctx context.Context, in TransferInput) (*models.StockTransfer, error) {
	in.Quantity = utils.RoundQuantity(in.Quantity)
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if !in.From.IsValid() || !in.To.IsValid() || in.From == in.To {
		return nil, fmt.Errorf("%w: transfer must be between store and kitchen", ErrInvalidInput)
	}

	var transfer models.StockTransfer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ing, err := lockIngredient(tx, in.IngredientID)
		if err != nil {
			return err
		}
		available := ing.StockAt(in.From)
		if in.Quantity > available {
			return fmt.Errorf("%w: %s has %.3f %s in %s, requested %.3f",
				ErrInsufficientStock, ing.Name, available, ing.Unit, in.From, in.Quantity)
		}

		store, kitchen := ing.StoreStock, ing.KitchenStock
		if in.From == models.LocationStore {
			store = utils.RoundQuantity(utils.Sub(store, in.Quantity))
			kitchen = utils.RoundQuantity(utils.Add(kitchen, in.Quantity))
		} else {
			kitchen = utils.RoundQuantity(utils.Sub(kitchen, in.Quantity))
			store = utils.RoundQuantity(utils.Add(store, in.Quantity))
		}
		if err := saveStock(tx, ing, store, kitchen, ing.CostPerUnit); err != nil {
			return err
		}

		transfer = models.StockTransfer{
			IngredientID: ing.ID,
			FromLocation: in.From,
			ToLocation:   in.To,
			Quantity:     in.Quantity,
			Reason:       strings.TrimSpace(in.Reason),
		}
		return tx.Create(&transfer).Error
	})
	s.metrics.RecordLedgerOperation("transfer", err)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, models.EventStockTransferred, in.IngredientID, map[string]interface{}{
		"from":     string(in.From),
		"to":       string(in.To),
		"quantity": in.Quantity,
	})
	return &transfer, nil
}

type RemovalInput struct {
	IngredientID string               `json:"ingredient_id" binding:"required"`
	Quantity     float64              `json:"quantity"`
	Location     models.StockLocation `json:"location" binding:"required"`
	Reason       string               `json:"reason"`
}

// Remove writes off lost or wasted stock. A reason is mandatory.
func (s *StockService) Remove(ctx context.Context, in RemovalInput) (*models.StockRemoval, error) {
	in.Quantity = utils.RoundQuantity(in.Quantity)
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, fmt.Errorf("%w: removal reason is required", ErrInvalidInput)
	}
	if !in.Location.IsValid() {
		return nil, fmt.Errorf("%w: unknown location %q", ErrInvalidInput, in.Location)
	}

	var removal models.StockRemoval
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ing, err := lockIngredient(tx, in.IngredientID)
		if err != nil {
			return err
		}
		available := ing.StockAt(in.Location)
		if in.Quantity > available {
			return fmt.Errorf("%w: %s has %.3f %s in %s, requested %.3f",
				ErrInsufficientStock, ing.Name, available, ing.Unit, in.Location, in.Quantity)
		}

		store, kitchen := ing.StoreStock, ing.KitchenStock
		if in.Location == models.LocationStore {
			store = utils.RoundQuantity(utils.Sub(store, in.Quantity))
		} else {
			kitchen = utils.RoundQuantity(utils.Sub(kitchen, in.Quantity))
		}
		if err := saveStock(tx, ing, store, kitchen, ing.CostPerUnit); err != nil {
			return err
		}

		removal = models.StockRemoval{
			IngredientID: ing.ID,
			Location:     in.Location,
			Quantity:     in.Quantity,
			Reason:       strings.TrimSpace(in.Reason),
			CostPerUnit:  ing.CostPerUnit,
			CreatedAt:    s.now().UTC(),
		}
		return tx.Create(&removal).Error
	})
	s.metrics.RecordLedgerOperation("remove", err)
	if err != nil {
		return nil, err
	}

	log.Printf("🗑️ Removed %.3f of %s from %s: %s", in.Quantity, in.IngredientID, in.Location, removal.Reason)
	s.notify(ctx, models.EventStockRemoved, in.IngredientID, map[string]interface{}{
		"location": string(in.Location),
		"quantity": in.Quantity,
	})
	return &removal, nil
}

type SaleInput struct {
	IngredientID string  `json:"ingredient_id" binding:"required"`
	Quantity     float64 `json:"quantity"`
	SalePrice    float64 `json:"sale_price"`
	CustomerName string  `json:"customer_name"`
	Notes        string  `json:"notes"`
}

// Sell sells raw ingredient out of store stock at SalePrice per unit.
func (s *StockService) Sell(ctx context.Context, in SaleInput) (*models.StockSale, error) {
	in.Quantity = utils.RoundQuantity(in.Quantity)
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if in.SalePrice < 0 {
		return nil, fmt.Errorf("%w: sale price must not be negative", ErrInvalidInput)
	}

	var sale models.StockSale
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ing, err := lockIngredient(tx, in.IngredientID)
		if err != nil {
			return err
		}
		if in.Quantity > ing.StoreStock {
			return fmt.Errorf("%w: %s has %.3f %s in store, requested %.3f",
				ErrInsufficientStock, ing.Name, ing.StoreStock, ing.Unit, in.Quantity)
		}

		store := utils.RoundQuantity(utils.Sub(ing.StoreStock, in.Quantity))
		if err := saveStock(tx, ing, store, ing.KitchenStock, ing.CostPerUnit); err != nil {
			return err
		}

		qty := utils.Dec(in.Quantity)
		totalSale := qty.Mul(utils.Dec(in.SalePrice))
		totalCost := qty.Mul(utils.Dec(ing.CostPerUnit))
		sale = models.StockSale{
			IngredientID: ing.ID,
			Quantity:     in.Quantity,
			SalePrice:    in.SalePrice,
			CostPerUnit:  ing.CostPerUnit,
			TotalSale:    utils.RoundMoney(totalSale.InexactFloat64()),
			TotalCost:    utils.RoundMoney(totalCost.InexactFloat64()),
			Profit:       utils.RoundMoney(totalSale.Sub(totalCost).InexactFloat64()),
			CustomerName: strings.TrimSpace(in.CustomerName),
			Notes:        in.Notes,
			CreatedAt:    s.now().UTC(),
		}
		return tx.Create(&sale).Error
	})
	s.metrics.RecordLedgerOperation("sell", err)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, models.EventStockSold, in.IngredientID, map[string]interface{}{
		"sale_id":  sale.ID,
		"quantity": in.Quantity,
	})
	return &sale, nil
}

// deductForOrder takes kitchen stock for an order line. Under
// OrderDeductionPolicy it floors at zero instead of failing; the shortfall
// stays visible on the movement (Applied < Requested). Must run inside the
// caller's order transaction.
func (s *StockService) deductForOrder(tx *gorm.DB, orderID, ingredientID string, quantity float64) (*models.StockMovement, error) {
	ing, err := lockIngredient(tx, ingredientID)
	if err != nil {
		return nil, err
	}

	applied := quantity
	if applied > ing.KitchenStock {
		applied = ing.KitchenStock
		log.Printf("⚠️ Kitchen stock for %s (%s) clamped at zero: requested %.3f, had %.3f, short %.3f",
			ing.Name, ing.ID, quantity, ing.KitchenStock, utils.RoundQuantity(quantity-ing.KitchenStock))
		s.metrics.RecordClamp(ing.ID)
	}
	kitchen := utils.RoundQuantity(utils.Sub(ing.KitchenStock, applied))
	if err := saveStock(tx, ing, ing.StoreStock, kitchen, ing.CostPerUnit); err != nil {
		return nil, err
	}

	mv := &models.StockMovement{
		IngredientID: ing.ID,
		OrderID:      orderID,
		MovementType: models.MovementOrderDeduction,
		Requested:    quantity,
		Applied:      utils.RoundQuantity(applied),
	}
	if err := tx.Create(mv).Error; err != nil {
		return nil, err
	}
	return mv, nil
}

// restoreForOrder adds kitchen stock back on cancellation. It adds the full
// quantity even if the original deduction was clamped (OrderRestorationPolicy).
func (s *StockService) restoreForOrder(tx *gorm.DB, orderID, ingredientID string, quantity float64) (*models.StockMovement, error) {
	ing, err := lockIngredient(tx, ingredientID)
	if err != nil {
		return nil, err
	}
	kitchen := utils.RoundQuantity(utils.Add(ing.KitchenStock, quantity))
	if err := saveStock(tx, ing, ing.StoreStock, kitchen, ing.CostPerUnit); err != nil {
		return nil, err
	}
	mv := &models.StockMovement{
		IngredientID: ing.ID,
		OrderID:      orderID,
		MovementType: models.MovementOrderRestoration,
		Requested:    quantity,
		Applied:      quantity,
	}
	if err := tx.Create(mv).Error; err != nil {
		return nil, err
	}
	return mv, nil
}

type HistoryFilter struct {
	IngredientID string
	From         *time.Time
	To           *time.Time
	Limit        int
}

func (f HistoryFilter) apply(q *gorm.DB, timeColumn string) *gorm.DB {
	if f.IngredientID != "" {
		q = q.Where("ingredient_id = ?", f.IngredientID)
	}
	if f.From != nil {
		q = q.Where(timeColumn+" >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where(timeColumn+" < ?", *f.To)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return q.Order(timeColumn + " DESC").Limit(limit).Preload("Ingredient")
}

func (s *StockService) ListPurchases(ctx context.Context, f HistoryFilter) ([]models.StockPurchase, error) {
	var out []models.StockPurchase
	err := f.apply(s.db.WithContext(ctx), "purchase_date").Find(&out).Error
	return out, err
}

func (s *StockService) ListTransfers(ctx context.Context, f HistoryFilter) ([]models.StockTransfer, error) {
	var out []models.StockTransfer
	err := f.apply(s.db.WithContext(ctx), "created_at").Find(&out).Error
	return out, err
}

func (s *StockService) ListRemovals(ctx context.Context, f HistoryFilter) ([]models.StockRemoval, error) {
	var out []models.StockRemoval
	err := f.apply(s.db.WithContext(ctx), "created_at").Find(&out).Error
	return out, err
}

func (s *StockService) ListSales(ctx context.Context, f HistoryFilter) ([]models.StockSale, error) {
	var out []models.StockSale
	err := f.apply(s.db.WithContext(ctx), "created_at").Find(&out).Error
	return out, err
}

// ListMovements returns order deductions and restorations, optionally for a
// single order.
func (s *StockService) ListMovements(ctx context.Context, orderID string, f HistoryFilter) ([]models.StockMovement, error) {
	q := s.db.WithContext(ctx)
	if orderID != "" {
		q = q.Where("order_id = ?", orderID)
	}
	var out []models.StockMovement
	err := f.apply(q, "created_at").Find(&out).Error
	return out, err
}

// lockIngredient reads a live ingredient row with SELECT ... FOR UPDATE.
func lockIngredient(tx *gorm.DB, id string) (*models.Ingredient, error) {
	var ing models.Ingredient
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ing, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, ErrNotFound, "ingredient", id)
	}
	return &ing, nil
}

// saveStock writes new stock levels and cost if the row still carries the
// version that was read. Zero rows means someone else got there first.
func saveStock(tx *gorm.DB, ing *models.Ingredient, store, kitchen, cost float64) error {
	if store < 0 || kitchen < 0 {
		return fmt.Errorf("%w: negative stock for %s", ErrInconsistentState, ing.ID)
	}
	res := tx.Model(&models.Ingredient{}).
		Where("id = ? AND version = ?", ing.ID, ing.Version).
		Updates(map[string]interface{}{
			"store_stock":   store,
			"kitchen_stock": kitchen,
			"cost_per_unit": cost,
			"version":       ing.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: ingredient %s changed concurrently", ErrInconsistentState, ing.ID)
	}
	ing.StoreStock, ing.KitchenStock, ing.CostPerUnit = store, kitchen, cost
	ing.Version++
	return nil
}

func (s *StockService) notify(ctx context.Context, t models.LedgerEventType, id string, data map[string]interface{}) {
	s.notifier.Notify(ctx, models.NewLedgerEvent(t, id, data))
}
