package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockLocation is one of the two places ingredient stock is held.
type StockLocation string

const (
	LocationStore   StockLocation = "store"
	LocationKitchen StockLocation = "kitchen"
)

// IsValid reports whether l is store or kitchen.
func (l StockLocation) IsValid() bool {
	return l == LocationStore || l == LocationKitchen
}

// IngredientCategory groups ingredients for listing (vegetables, dairy, ...)
type IngredientCategory struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the gorm table name.
func (IngredientCategory) TableName() string {
	return "ingredient_categories"
}

// BeforeCreate assigns a UUID.
func (c *IngredientCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// Ingredient is a raw material tracked in the store and the kitchen.
// Stock and cost fields are written only by StockService; Version guards
// every stock write against lost updates.
type Ingredient struct {
	ID                string              `json:"id" gorm:"type:uuid;primaryKey"`
	Name              string              `json:"name" gorm:"type:varchar(255);not null;index"`
	Unit              string              `json:"unit" gorm:"type:varchar(20);not null;default:'kg'"`
	CostPerUnit       float64             `json:"cost_per_unit" gorm:"type:decimal(14,4);not null;default:0"`
	StoreStock        float64             `json:"store_stock" gorm:"type:decimal(14,3);not null;default:0"`
	KitchenStock      float64             `json:"kitchen_stock" gorm:"type:decimal(14,3);not null;default:0"`
	LowStockThreshold float64             `json:"low_stock_threshold" gorm:"type:decimal(14,3);not null;default:0"`
	CategoryID        *string             `json:"category_id" gorm:"type:uuid;index"`
	Category          *IngredientCategory `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Version           int64               `json:"version" gorm:"not null;default:0"`
	CreatedAt         time.Time           `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time           `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt         gorm.DeletedAt      `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName overrides the gorm table name.
func (Ingredient) TableName() string {
	return "ingredients"
}

// BeforeCreate assigns a UUID.
func (i *Ingredient) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}

// TotalStock is store plus kitchen.
func (i *Ingredient) TotalStock() float64 {
	return i.StoreStock + i.KitchenStock
}

// StockAt returns the quantity held at loc.
func (i *Ingredient) StockAt(loc StockLocation) float64 {
	if loc == LocationKitchen {
		return i.KitchenStock
	}
	return i.StoreStock
}

// IsLowStock reports whether total stock has dropped to the threshold.
func (i *Ingredient) IsLowStock() bool {
	return i.TotalStock() <= i.LowStockThreshold
}
