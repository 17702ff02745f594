package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bistro/server/internal/database"
	"bistro/server/internal/events"
	"bistro/server/internal/models"
	"bistro/server/internal/utils"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.ConnectSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

type fixture struct {
	ctx    context.Context
	db     *gorm.DB
	rec    *events.Recorder
	stock  *StockService
	menu   *MenuService
	tables *TableService
	orders *OrderService
}

func newFixture(t *testing.T, cfg OrderConfig) *fixture {
	t.Helper()
	db := setupTestDB(t)
	rec := &events.Recorder{}

	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Cutoff == (utils.Cutoff{}) {
		cfg.Cutoff = utils.Cutoff{Hour: 5}
	}

	f := &fixture{
		ctx:    context.Background(),
		db:     db,
		rec:    rec,
		stock:  NewStockService(db),
		menu:   NewMenuService(db, nil),
		tables: NewTableService(db),
	}
	f.orders = NewOrderService(db, f.stock, f.tables, cfg)
	f.stock.SetNotifier(rec)
	f.menu.SetNotifier(rec)
	f.tables.SetNotifier(rec)
	f.orders.SetNotifier(rec)
	return f
}

// ingredient creates an ingredient and books store and kitchen stock at cost.
func (f *fixture) ingredient(t *testing.T, name string, store, kitchen, cost float64) *models.Ingredient {
	t.Helper()
	ing, err := f.stock.CreateIngredient(f.ctx, IngredientInput{Name: name, Unit: "kg"})
	require.NoError(t, err)
	if total := store + kitchen; total > 0 {
		_, err = f.stock.AddPurchase(f.ctx, PurchaseInput{IngredientID: ing.ID, Quantity: total, UnitCost: cost})
		require.NoError(t, err)
	}
	if kitchen > 0 {
		_, err = f.stock.Transfer(f.ctx, TransferInput{
			IngredientID: ing.ID, Quantity: kitchen, From: models.LocationStore, To: models.LocationKitchen,
		})
		require.NoError(t, err)
	}
	got, err := f.stock.GetIngredient(f.ctx, ing.ID)
	require.NoError(t, err)
	return got
}

func (f *fixture) menuItem(t *testing.T, name string, price float64, recipe ...RecipeLineInput) *models.MenuItem {
	t.Helper()
	item, err := f.menu.CreateItem(f.ctx, MenuItemInput{Name: name, Price: price, Recipe: recipe})
	require.NoError(t, err)
	return item
}

func (f *fixture) reload(t *testing.T, id string) *models.Ingredient {
	t.Helper()
	var ing models.Ingredient
	require.NoError(t, f.db.Unscoped().First(&ing, "id = ?", id).Error)
	return &ing
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func strPtr(s string) *string { return &s }
