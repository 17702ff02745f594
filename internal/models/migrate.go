package models

import (
	"fmt"
	"log"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates every ledger table. Groups are migrated in
// dependency order so foreign keys resolve on a fresh database.
func AutoMigrate(db *gorm.DB) error {
	groups := []struct {
		name   string
		models []interface{}
	}{
		{"inventory", []interface{}{&IngredientCategory{}, &Ingredient{}}},
		{"stock ledger", []interface{}{&StockPurchase{}, &StockTransfer{}, &StockRemoval{}, &StockSale{}, &StockMovement{}}},
		{"menu", []interface{}{&MenuCategory{}, &MenuItem{}, &RecipeLine{}}},
		{"floor", []interface{}{&Waiter{}, &Table{}}},
		{"orders", []interface{}{&Order{}, &OrderItem{}, &OrderSequence{}}},
	}

	for _, g := range groups {
		if err := db.AutoMigrate(g.models...); err != nil {
			log.Printf("❌ AutoMigrate for %s failed: %v", g.name, err)
			return fmt.Errorf("migrate %s: %w", g.name, err)
		}
		log.Printf("✅ %s tables migrated", g.name)
	}
	return nil
}
