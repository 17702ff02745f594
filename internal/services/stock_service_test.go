package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bistro/server/internal/models"
)

func TestWeightedAverageCost(t *testing.T) {
	tests := []struct {
		name                      string
		store, old, qty, unitCost float64
		want                      float64
	}{
		{"empty store takes unit cost", 0, 123, 5, 40, 40},
		{"equal blend", 10, 100, 10, 200, 150},
		{"small top-up", 90, 10, 10, 20, 11},
		{"free delivery", 10, 10, 10, 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, WeightedAverageCost(tt.store, tt.old, tt.qty, tt.unitCost), 1e-9)
		})
	}
}

func TestAddPurchaseAveragesCost(t *testing.T) {
	f := newFixture(t, OrderConfig{})
	ing := f.ingredient(t, "Flour", 10, 0, 100)
	assert.InDelta(t, 100, ing.CostPerUnit, 1e-9)

	p, err := f.stock.AddPurchase(f.ctx, PurchaseInput{IngredientID: ing.ID, Quantity: 10, UnitCost: 200, Supplier: "Mill"})
	require.NoError(t, err)
	assert.InDelta(t, 2000, p.TotalCost, 1e-9)

	got := f.reload(t, ing.ID)
	assert.InDelta(t, 150, got.CostPerUnit, 1e-9)
	assert.InDelta(t, 20, got.StoreStock, 1e-9)
	assert.InDelta(t, 0, got.KitchenStock, 1e-9)

	transfers, err := f.stock.ListTransfers(f.ctx, HistoryFilter{IngredientID: ing.ID})
	require.NoError(t, err)
	require.Len(t, transfers, 2)
	for _, tr := range transfers {
		assert.True(t, tr.IsReceipt())
		assert.NotNil(t, tr.PurchaseID)
	}

	purchases, err := f.stock.ListPurchases(f.ctx, HistoryFilter{IngredientID: ing.ID})
	require.NoError(t, err)
	assert.Len(t, purchases, 2)
	assert.Contains(t, f.rec.Types(), models.EventStockPurchased)
}

func TestAddPurchaseRejectsBadInput(t *testing.T) {
	f := newFixture(t, OrderConfig{})
	ing := f.ingredient(t, "Salt", 0, 0, 0)

	_, err := f.stock.AddPurchase(f.ctx, PurchaseInput{IngredientID: ing.ID, Quantity: 0, UnitCost: 1})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = f.stock.AddPurchase(f.ctx, PurchaseInput{IngredientID: ing.ID, Quantity: 1, UnitCost: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.stock.AddPurchase(f.ctx, PurchaseInput{IngredientID: "missing", Quantity: 1, UnitCost: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransferPreservesTotal(t *testing.T) {
	f := newFixture(t, OrderConfig{})
	ing := f.ingredient(t, "Tomato", 12, 0, 3)

	_, err := f.stock.Transfer(f.ctx, TransferInput{IngredientID: ing.ID, Quantity: 4.5, From: models.LocationStore, To: models.LocationKitchen})
	require.NoError(t, err)
	_, err = f.stock.Transfer(f.ctx, TransferInput{IngredientID: ing.ID, Quantity: 1.25, From: models.LocationKitchen, To: models.LocationStore})
	require.NoError(t, err)

	got := f.reload(t, ing.ID)
	assert.InDelta(t, 8.75, got.StoreStock, 1e-9)
	assert.InDelta(t, 3.25, got.KitchenStock, 1e-9)
	assert.InDelta(t, 12, got.TotalStock(), 1e-9)
	assert.InDelta(t, 3, got.CostPerUnit, 1e-9)
}

func TestTransferOverAvailableChangesNothing(t *testing.T) {
	f := newFixture(t, OrderConfig{})
	ing := f.ingredient(t, "Basil", 2, 1, 8)
	before := f.reload(t, ing.ID)

	_, err := f.stock.Transfer(f.ctx, TransferInput{IngredientID: ing.ID, Quantity: 2.5, From: models.LocationStore, To: models.LocationKitchen})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	after := f.reload(t, ing.ID)
	assert.Equal(t, before.StoreStock, after.StoreStock)
	assert.Equal(t, before.KitchenStock, after.KitchenStock)
	assert.Equal(t, before.Version, after.Version)
}

func TestTransferRejectsSameLocation(t *testing.T) {
	f := newFixture(t, OrderConfig{})
	ing := f.ingredient(t, "Oil", 5, 0, 2)

	_, err := f.stock.Transfer(f.ctx, TransferInput{IngredientID: ing.ID, Quantity: 1, From: models.LocationStore, To: models.LocationStore})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.stock.Transfer(f.ctx, TransferInput{IngredientID: ing.ID, Quantity: 1, From: "cellar", To: models.LocationKitchen})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRemove(t *testing.T) {
	f := newFixture(t, OrderConfig{})
	ing := f.ingredient(t, "Milk", 5, 3, 1.2)

	_, err := f.stock.Remove(f.ctx, RemovalInput{IngredientID: ing.ID, Quantity: 1, Location: models.LocationKitchen})
	assert.ErrorIs(t, err, ErrInvalidInput, "reason is mandatory")

	_, err = f.stock.Remove(f.ctx, RemovalInput{IngredientID: ing.ID, Quantity: 4, Location: models.LocationKitchen, Reason: "spoiled"})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	r, err := f.stock.Remove(f.ctx, RemovalInput{IngredientID: ing.ID, Quantity: 2, Location: models.LocationKitchen, Reason: "spoiled"})
	require.NoError(t, err)
	assert.Equal(t, "spoiled", r.Reason)
	assert.InDelta(t, 1.2, r.CostPerUnit, 1e-9)

	got := f.reload(t, ing.ID)
	assert.InDelta(t, 5, got.StoreStock, 1e-9)
	assert.InDelta(t, 1, got.KitchenStock, 1e-9)

	removals, err := f.stock.ListRemovals(f.ctx, HistoryFilter{IngredientID: ing.ID})
	require.NoError(t, err)
	assert.Len(t, removals, 1)
}

func TestSell(t *testing.T) {
	f := newFixture(t, OrderConfig{})
	ing := f.ingredient(t, "Cheese", 10, 0, 4)

	_, err := f.stock.Sell(f.ctx, SaleInput{IngredientID: ing.ID, Quantity: 11, SalePrice: 6})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	sale, err := f.stock.Sell(f.ctx, SaleInput{IngredientID: ing.ID, Quantity: 2.5, SalePrice: 6, CustomerName: " Cafe Next Door "})
	require.NoError(t, err)
	assert.InDelta(t, 15, sale.TotalSale, 1e-9)
	assert.InDelta(t, 10, sale.TotalCost, 1e-9)
	assert.InDelta(t, 5, sale.Profit, 1e-9)
	assert.Equal(t, "Cafe Next Door", sale.CustomerName)

	got := f.reload(t, ing.ID)
	assert.InDelta(t, 7.5, got.StoreStock, 1e-9)
}

func TestIngredientCRUD(t *testing.T) {
	f := newFixture(t, OrderConfig{})

	cat, err := f.stock.CreateCategory(f.ctx, "Dairy")
	require.NoError(t, err)

	_, err = f.stock.CreateIngredient(f.ctx, IngredientInput{Name: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	ing, err := f.stock.CreateIngredient(f.ctx, IngredientInput{Name: "Butter", LowStockThreshold: 2, CategoryID: &cat.ID})
	require.NoError(t, err)
	assert.Equal(t, "kg", ing.Unit)
	assert.Zero(t, ing.StoreStock)

	updated, err := f.stock.UpdateIngredient(f.ctx, ing.ID, IngredientInput{Name: "Salted butter", Unit: "g", LowStockThreshold: 500})
	require.NoError(t, err)
	assert.Equal(t, "Salted butter", updated.Name)
	assert.Equal(t, "g", updated.Unit)
	assert.Nil(t, updated.CategoryID)

	list, err := f.stock.ListIngredients(f.ctx, IngredientFilter{Search: "SALTED"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	low, err := f.stock.LowStock(f.ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.True(t, low[0].IsLowStock())

	_, err = f.stock.UpdateIngredient(f.ctx, "missing", IngredientInput{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteIngredientInUse(t *testing.T) {
	f := newFixture(t, OrderConfig{})
	dough := f.ingredient(t, "Dough", 5, 0, 1)
	spare := f.ingredient(t, "Spare", 0, 0, 0)
	item := f.menuItem(t, "Focaccia", 90, RecipeLineInput{IngredientID: dough.ID, Quantity: 0.3})

	err := f.stock.DeleteIngredient(f.ctx, dough.ID)
	assert.ErrorIs(t, err, ErrIngredientInUse)
	assert.ErrorIs(t, err, ErrInconsistentState)

	require.NoError(t, f.stock.DeleteIngredient(f.ctx, spare.ID))
	_, err = f.stock.GetIngredient(f.ctx, spare.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// A soft-deleted menu item no longer holds the ingredient.
	require.NoError(t, f.menu.DeleteItem(f.ctx, item.ID))
	require.NoError(t, f.stock.DeleteIngredient(f.ctx, dough.ID))
	assert.Contains(t, f.rec.Types(), models.EventIngredientDeleted)
}

func TestHistoryFilterByDate(t *testing.T) {
	f := newFixture(t, OrderConfig{})
	ing := f.ingredient(t, "Rice", 0, 0, 0)

	day1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	_, err := f.stock.AddPurchase(f.ctx, PurchaseInput{IngredientID: ing.ID, Quantity: 1, UnitCost: 2, PurchaseDate: &day1})
	require.NoError(t, err)
	_, err = f.stock.AddPurchase(f.ctx, PurchaseInput{IngredientID: ing.ID, Quantity: 1, UnitCost: 2, PurchaseDate: &day2})
	require.NoError(t, err)

	from := day2.Add(-time.Hour)
	got, err := f.stock.ListPurchases(f.ctx, HistoryFilter{IngredientID: ing.ID, From: &from})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].PurchaseDate.Equal(day2))
}

func TestSubGramQuantitiesRecordWhatIsApplied(t *testing.T) {
	f := newFixture(t, OrderConfig{})
	ing := f.ingredient(t, "Saffron", 1, 0, 900)

	_, err := f.stock.Transfer(f.ctx, TransferInput{IngredientID: ing.ID, Quantity: 0.0004, From: models.LocationStore, To: models.LocationKitchen})
	assert.ErrorIs(t, err, ErrInvalidQuantity, "rounds to zero")
	_, err = f.stock.Remove(f.ctx, RemovalInput{IngredientID: ing.ID, Quantity: 0.0004, Location: models.LocationStore, Reason: "spilled"})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = f.stock.Sell(f.ctx, SaleInput{IngredientID: ing.ID, Quantity: 0.0004, SalePrice: 1000})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = f.stock.AddPurchase(f.ctx, PurchaseInput{IngredientID: ing.ID, Quantity: 0.0004, UnitCost: 900})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	tr, err := f.stock.Transfer(f.ctx, TransferInput{IngredientID: ing.ID, Quantity: 0.0005, From: models.LocationStore, To: models.LocationKitchen})
	require.NoError(t, err)
	assert.InDelta(t, 0.001, tr.Quantity, 1e-9)
	got := f.reload(t, ing.ID)
	assert.InDelta(t, 0.999, got.StoreStock, 1e-9)
	assert.InDelta(t, 0.001, got.KitchenStock, 1e-9)
	assert.InDelta(t, 1, got.TotalStock(), 1e-9)

	r, err := f.stock.Remove(f.ctx, RemovalInput{IngredientID: ing.ID, Quantity: 0.0014, Location: models.LocationStore, Reason: "spilled"})
	require.NoError(t, err)
	assert.InDelta(t, 0.001, r.Quantity, 1e-9)
	assert.InDelta(t, 0.998, f.reload(t, ing.ID).StoreStock, 1e-9)

	sale, err := f.stock.Sell(f.ctx, SaleInput{IngredientID: ing.ID, Quantity: 0.0016, SalePrice: 1000})
	require.NoError(t, err)
	assert.InDelta(t, 0.002, sale.Quantity, 1e-9)
	assert.InDelta(t, 2, sale.TotalSale, 1e-9)
	assert.InDelta(t, 0.996, f.reload(t, ing.ID).StoreStock, 1e-9)

	p, err := f.stock.AddPurchase(f.ctx, PurchaseInput{IngredientID: ing.ID, Quantity: 0.0045, UnitCost: 900})
	require.NoError(t, err)
	assert.InDelta(t, 0.005, p.Quantity, 1e-9)
	assert.InDelta(t, 1.001, f.reload(t, ing.ID).StoreStock, 1e-9)
}

func TestAddPurchaseNormalizesUnitCost(t *testing.T) {
	f := newFixture(t, OrderConfig{})
	ing := f.ingredient(t, "Yeast", 0, 0, 0)

	p, err := f.stock.AddPurchase(f.ctx, PurchaseInput{IngredientID: ing.ID, Quantity: 10, UnitCost: 0.12345})
	require.NoError(t, err)
	assert.InDelta(t, 0.1235, p.UnitCost, 1e-9)
	assert.InDelta(t, 1.24, p.TotalCost, 1e-9)
	assert.InDelta(t, p.UnitCost, f.reload(t, ing.ID).CostPerUnit, 1e-9)
}

func TestSaveStockRejectsStaleVersion(t *testing.T) {
	f := newFixture(t, OrderConfig{})
	ing := f.ingredient(t, "Butter", 4, 2, 10)
	stale := f.reload(t, ing.ID)

	fresh := f.reload(t, ing.ID)
	require.NoError(t, saveStock(f.db, fresh, 3, 3, 10))

	err := saveStock(f.db, stale, 1, 1, 99)
	assert.ErrorIs(t, err, ErrInconsistentState)

	got := f.reload(t, ing.ID)
	assert.InDelta(t, 3, got.StoreStock, 1e-9)
	assert.InDelta(t, 3, got.KitchenStock, 1e-9)
	assert.InDelta(t, 10, got.CostPerUnit, 1e-9)
	assert.Equal(t, fresh.Version, got.Version)
}

func TestSaveStockRejectsNegativeStock(t *testing.T) {
	f := newFixture(t, OrderConfig{})
	ing := f.ingredient(t, "Cream", 1, 1, 5)
	before := f.reload(t, ing.ID)

	assert.ErrorIs(t, saveStock(f.db, f.reload(t, ing.ID), -0.001, 1, 5), ErrInconsistentState)
	assert.ErrorIs(t, saveStock(f.db, f.reload(t, ing.ID), 1, -1, 5), ErrInconsistentState)

	after := f.reload(t, ing.ID)
	assert.Equal(t, before.StoreStock, after.StoreStock)
	assert.Equal(t, before.KitchenStock, after.KitchenStock)
	assert.Equal(t, before.Version, after.Version)
}
