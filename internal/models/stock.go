package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockPurchase is an append-only purchase record. It drives the
// weighted-average cost and the purchase history.
type StockPurchase struct {
	ID           string      `json:"id" gorm:"type:uuid;primaryKey"`
	IngredientID string      `json:"ingredient_id" gorm:"type:uuid;not null;index"`
	Ingredient   *Ingredient `json:"ingredient,omitempty" gorm:"foreignKey:IngredientID"`
	Quantity     float64     `json:"quantity" gorm:"type:decimal(14,3);not null"`
	UnitCost     float64     `json:"unit_cost" gorm:"type:decimal(14,4);not null"`
	TotalCost    float64     `json:"total_cost" gorm:"type:decimal(14,2);not null"`
	Supplier     string      `json:"supplier" gorm:"type:varchar(255)"`
	Notes        string      `json:"notes" gorm:"type:text"`
	PurchaseDate time.Time   `json:"purchase_date" gorm:"not null;index"`
	CreatedAt    time.Time   `json:"created_at" gorm:"autoCreateTime"`
}

// TableName overrides the gorm table name.
func (StockPurchase) TableName() string {
	return "stock_purchases"
}

// BeforeCreate assigns a UUID.
func (p *StockPurchase) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// StockTransfer records a quantity moved between locations. A store→store
// transfer is the receipt written alongside every purchase.
type StockTransfer struct {
	ID           string        `json:"id" gorm:"type:uuid;primaryKey"`
	IngredientID string        `json:"ingredient_id" gorm:"type:uuid;not null;index"`
	Ingredient   *Ingredient   `json:"ingredient,omitempty" gorm:"foreignKey:IngredientID"`
	FromLocation StockLocation `json:"from_location" gorm:"type:varchar(20);not null"`
	ToLocation   StockLocation `json:"to_location" gorm:"type:varchar(20);not null"`
	Quantity     float64       `json:"quantity" gorm:"type:decimal(14,3);not null"`
	Reason       string        `json:"reason" gorm:"type:text"`
	PurchaseID   *string       `json:"purchase_id" gorm:"type:uuid;index"`
	CreatedAt    time.Time     `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName overrides the gorm table name.
func (StockTransfer) TableName() string {
	return "stock_transfers"
}

// BeforeCreate assigns a UUID.
func (t *StockTransfer) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// IsReceipt reports whether the transfer is a purchase receipt.
func (t *StockTransfer) IsReceipt() bool {
	return t.FromLocation == t.ToLocation
}

// StockRemoval records loss or waste. Reason is mandatory.
type StockRemoval struct {
	ID           string        `json:"id" gorm:"type:uuid;primaryKey"`
	IngredientID string        `json:"ingredient_id" gorm:"type:uuid;not null;index"`
	Ingredient   *Ingredient   `json:"ingredient,omitempty" gorm:"foreignKey:IngredientID"`
	Location     StockLocation `json:"location" gorm:"type:varchar(20);not null"`
	Quantity     float64       `json:"quantity" gorm:"type:decimal(14,3);not null"`
	Reason       string        `json:"reason" gorm:"type:text;not null"`
	CostPerUnit  float64       `json:"cost_per_unit" gorm:"type:decimal(14,4);not null;default:0"`
	CreatedAt    time.Time     `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName overrides the gorm table name.
func (StockRemoval) TableName() string {
	return "stock_removals"
}

// BeforeCreate assigns a UUID.
func (r *StockRemoval) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// StockSale is raw ingredient sold as-is out of store stock.
type StockSale struct {
	ID           string      `json:"id" gorm:"type:uuid;primaryKey"`
	IngredientID string      `json:"ingredient_id" gorm:"type:uuid;not null;index"`
	Ingredient   *Ingredient `json:"ingredient,omitempty" gorm:"foreignKey:IngredientID"`
	Quantity     float64     `json:"quantity" gorm:"type:decimal(14,3);not null"`
	SalePrice    float64     `json:"sale_price" gorm:"type:decimal(14,2);not null"`
	CostPerUnit  float64     `json:"cost_per_unit" gorm:"type:decimal(14,4);not null"`
	TotalSale    float64     `json:"total_sale" gorm:"type:decimal(14,2);not null"`
	TotalCost    float64     `json:"total_cost" gorm:"type:decimal(14,2);not null"`
	Profit       float64     `json:"profit" gorm:"type:decimal(14,2);not null"`
	CustomerName string      `json:"customer_name" gorm:"type:varchar(255)"`
	Notes        string      `json:"notes" gorm:"type:text"`
	CreatedAt    time.Time   `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName overrides the gorm table name.
func (StockSale) TableName() string {
	return "stock_sales"
}

// BeforeCreate assigns a UUID.
func (s *StockSale) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

const (
	MovementOrderDeduction   = "order_deduction"
	MovementOrderRestoration = "order_restoration"
)

// StockMovement is the ledger record of kitchen stock consumed or given back
// by an order. Requested is what the recipe asked for, Applied is what
// actually moved (less than Requested when a deduction was clamped at zero).
type StockMovement struct {
	ID           string      `json:"id" gorm:"type:uuid;primaryKey"`
	IngredientID string      `json:"ingredient_id" gorm:"type:uuid;not null;index"`
	Ingredient   *Ingredient `json:"ingredient,omitempty" gorm:"foreignKey:IngredientID"`
	OrderID      string      `json:"order_id" gorm:"type:uuid;not null;index"`
	MovementType string      `json:"movement_type" gorm:"type:varchar(50);not null;index"`
	Requested    float64     `json:"requested" gorm:"type:decimal(14,3);not null"`
	Applied      float64     `json:"applied" gorm:"type:decimal(14,3);not null"`
	CreatedAt    time.Time   `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName overrides the gorm table name.
func (StockMovement) TableName() string {
	return "stock_movements"
}

// BeforeCreate assigns a UUID.
func (sm *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if sm.ID == "" {
		sm.ID = uuid.New().String()
	}
	return nil
}

// Clamped reports whether less stock moved than was requested.
func (sm *StockMovement) Clamped() bool {
	return sm.Applied < sm.Requested
}
