package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MenuCategory groups menu items on the POS screen.
type MenuCategory struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey"`
	Name         string    `json:"name" gorm:"type:varchar(255);not null;uniqueIndex"`
	DisplayOrder int       `json:"display_order" gorm:"default:0"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the gorm table name.
func (MenuCategory) TableName() string {
	return "menu_categories"
}

// BeforeCreate assigns a UUID.
func (c *MenuCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// MenuItem is a sellable dish. RecipeCost and ProfitMargin are derived from
// Recipe and Price and are rewritten on every price or recipe edit.
type MenuItem struct {
	ID           string        `json:"id" gorm:"type:uuid;primaryKey"`
	Name         string        `json:"name" gorm:"type:varchar(255);not null;index"`
	Description  string        `json:"description" gorm:"type:text"`
	Price        float64       `json:"price" gorm:"type:decimal(12,2);not null"`
	CategoryID   *string       `json:"category_id" gorm:"type:uuid;index"`
	Category     *MenuCategory `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	IsAvailable  bool          `json:"is_available" gorm:"not null"`
	RecipeCost   float64       `json:"recipe_cost" gorm:"type:decimal(14,4);not null;default:0"`
	ProfitMargin float64       `json:"profit_margin" gorm:"type:decimal(8,2);not null;default:0"`
	Recipe       []RecipeLine  `json:"recipe" gorm:"foreignKey:MenuItemID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName overrides the gorm table name.
func (MenuItem) TableName() string {
	return "menu_items"
}

// BeforeCreate assigns a UUID.
func (m *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// RecipeLine is the quantity of one ingredient consumed per unit sold.
type RecipeLine struct {
	ID           string      `json:"id" gorm:"type:uuid;primaryKey"`
	MenuItemID   string      `json:"menu_item_id" gorm:"type:uuid;not null;index"`
	IngredientID string      `json:"ingredient_id" gorm:"type:uuid;not null;index"`
	Ingredient   *Ingredient `json:"ingredient,omitempty" gorm:"foreignKey:IngredientID"`
	Quantity     float64     `json:"quantity" gorm:"type:decimal(14,4);not null"`
	Position     int         `json:"position" gorm:"not null;default:0"`
}

// TableName overrides the gorm table name.
func (RecipeLine) TableName() string {
	return "recipe_lines"
}

// BeforeCreate assigns a UUID.
func (r *RecipeLine) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}
