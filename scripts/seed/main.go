// Command seed loads categories, ingredients with opening stock, menu items,
// waiters and tables from a YAML file. Rows whose name (or table number)
// already exists are skipped, so it can be re-run against a live database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"bistro/server/internal/config"
	"bistro/server/internal/database"
	"bistro/server/internal/models"
	"bistro/server/internal/services"
)

type seedFile struct {
	IngredientCategories []string         `yaml:"ingredient_categories"`
	Ingredients          []seedIngredient `yaml:"ingredients"`
	MenuCategories       []seedCategory   `yaml:"menu_categories"`
	MenuItems            []seedMenuItem   `yaml:"menu_items"`
	Waiters              []seedWaiter     `yaml:"waiters"`
	Tables               []seedTable      `yaml:"tables"`
}

type seedIngredient struct {
	Name      string  `yaml:"name"`
	Unit      string  `yaml:"unit"`
	Category  string  `yaml:"category"`
	Threshold float64 `yaml:"low_stock_threshold"`
	Store     float64 `yaml:"store"`
	Kitchen   float64 `yaml:"kitchen"`
	UnitCost  float64 `yaml:"unit_cost"`
	Supplier  string  `yaml:"supplier"`
}

type seedCategory struct {
	Name  string `yaml:"name"`
	Order int    `yaml:"order"`
}

type seedMenuItem struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Category    string             `yaml:"category"`
	Price       float64            `yaml:"price"`
	Available   *bool              `yaml:"available"`
	Recipe      map[string]float64 `yaml:"recipe"`
}

type seedWaiter struct {
	Name  string `yaml:"name"`
	Phone string `yaml:"phone"`
}

type seedTable struct {
	Number   int    `yaml:"number"`
	Capacity int    `yaml:"capacity"`
	Floor    string `yaml:"floor"`
	Waiter   string `yaml:"waiter"`
}

type summary struct {
	Created map[string]int
	Skipped map[string]int
}

func (s summary) String() string {
	var b strings.Builder
	for _, kind := range []string{"ingredient_categories", "ingredients", "menu_categories", "menu_items", "waiters", "tables"} {
		fmt.Fprintf(&b, "  %-22s created %d, skipped %d\n", kind, s.Created[kind], s.Skipped[kind])
	}
	return b.String()
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("ℹ️ No .env file, using process environment")
	}
	cfg := config.Load()

	path := flag.String("file", cfg.SeedFile, "seed YAML file")
	dbURL := flag.String("db", cfg.DatabaseURL, "database URL (postgres:// or file:)")
	flag.Parse()

	seed, err := loadSeed(*path)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	db, err := database.Connect(*dbURL)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer database.Close(db)

	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	sum, err := applySeed(context.Background(), db, seed)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	log.Printf("✅ Seed %s applied:\n%s", *path, sum)
}

func loadSeed(path string) (*seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return &seed, nil
}

type seeder struct {
	db     *gorm.DB
	stock  *services.StockService
	menu   *services.MenuService
	tables *services.TableService
	sum    summary

	ingredientIDs   map[string]string
	ingCategoryIDs  map[string]string
	menuCategoryIDs map[string]string
	waiterIDs       map[string]string
}

func applySeed(ctx context.Context, db *gorm.DB, seed *seedFile) (summary, error) {
	s := &seeder{
		db:              db,
		stock:           services.NewStockService(db),
		menu:            services.NewMenuService(db, nil),
		tables:          services.NewTableService(db),
		sum:             summary{Created: map[string]int{}, Skipped: map[string]int{}},
		ingredientIDs:   map[string]string{},
		ingCategoryIDs:  map[string]string{},
		menuCategoryIDs: map[string]string{},
		waiterIDs:       map[string]string{},
	}

	steps := []func(context.Context, *seedFile) error{
		s.ingredientCategories,
		s.ingredients,
		s.menuCategories,
		s.menuItems,
		s.waiters,
		s.tablesStep,
	}
	for _, step := range steps {
		if err := step(ctx, seed); err != nil {
			return s.sum, err
		}
	}
	return s.sum, nil
}

// existingID returns the id of the row in model's table with the given name.
func (s *seeder) existingID(ctx context.Context, model interface{}, name string) (string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(model).Where("name = ?", name).Limit(1).Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return "", err
	}
	return ids[0], nil
}

func (s *seeder) ingredientCategories(ctx context.Context, seed *seedFile) error {
	names := seed.IngredientCategories
	for _, ing := range seed.Ingredients {
		if ing.Category != "" {
			names = append(names, ing.Category)
		}
	}
	for _, name := range names {
		if _, ok := s.ingCategoryIDs[name]; ok {
			continue
		}
		id, err := s.existingID(ctx, &models.IngredientCategory{}, name)
		if err != nil {
			return err
		}
		if id != "" {
			s.ingCategoryIDs[name] = id
			s.sum.Skipped["ingredient_categories"]++
			continue
		}
		cat, err := s.stock.CreateCategory(ctx, name)
		if err != nil {
			return fmt.Errorf("ingredient category %q: %w", name, err)
		}
		s.ingCategoryIDs[name] = cat.ID
		s.sum.Created["ingredient_categories"]++
	}
	return nil
}

func (s *seeder) ingredients(ctx context.Context, seed *seedFile) error {
	for _, in := range seed.Ingredients {
		id, err := s.existingID(ctx, &models.Ingredient{}, in.Name)
		if err != nil {
			return err
		}
		if id != "" {
			s.ingredientIDs[in.Name] = id
			s.sum.Skipped["ingredients"]++
			continue
		}

		input := services.IngredientInput{Name: in.Name, Unit: in.Unit, LowStockThreshold: in.Threshold}
		if in.Category != "" {
			catID := s.ingCategoryIDs[in.Category]
			input.CategoryID = &catID
		}
		ing, err := s.stock.CreateIngredient(ctx, input)
		if err != nil {
			return fmt.Errorf("ingredient %q: %w", in.Name, err)
		}
		s.ingredientIDs[in.Name] = ing.ID
		s.sum.Created["ingredients"]++

		// Opening stock arrives as a purchase, then the kitchen share is
		// transferred so both locations have a traceable origin.
		opening := in.Store + in.Kitchen
		if opening <= 0 {
			continue
		}
		if _, err := s.stock.AddPurchase(ctx, services.PurchaseInput{
			IngredientID: ing.ID,
			Quantity:     opening,
			UnitCost:     in.UnitCost,
			Supplier:     in.Supplier,
			Notes:        "opening stock",
		}); err != nil {
			return fmt.Errorf("opening stock for %q: %w", in.Name, err)
		}
		if in.Kitchen > 0 {
			if _, err := s.stock.Transfer(ctx, services.TransferInput{
				IngredientID: ing.ID,
				Quantity:     in.Kitchen,
				From:         models.LocationStore,
				To:           models.LocationKitchen,
				Reason:       "opening stock",
			}); err != nil {
				return fmt.Errorf("opening kitchen stock for %q: %w", in.Name, err)
			}
		}
	}
	return nil
}

func (s *seeder) menuCategories(ctx context.Context, seed *seedFile) error {
	cats := seed.MenuCategories
	for _, item := range seed.MenuItems {
		if item.Category != "" {
			cats = append(cats, seedCategory{Name: item.Category, Order: len(cats)})
		}
	}
	for _, c := range cats {
		if _, ok := s.menuCategoryIDs[c.Name]; ok {
			continue
		}
		id, err := s.existingID(ctx, &models.MenuCategory{}, c.Name)
		if err != nil {
			return err
		}
		if id != "" {
			s.menuCategoryIDs[c.Name] = id
			s.sum.Skipped["menu_categories"]++
			continue
		}
		cat, err := s.menu.CreateCategory(ctx, c.Name, c.Order)
		if err != nil {
			return fmt.Errorf("menu category %q: %w", c.Name, err)
		}
		s.menuCategoryIDs[c.Name] = cat.ID
		s.sum.Created["menu_categories"]++
	}
	return nil
}

func (s *seeder) menuItems(ctx context.Context, seed *seedFile) error {
	for _, item := range seed.MenuItems {
		id, err := s.existingID(ctx, &models.MenuItem{}, item.Name)
		if err != nil {
			return err
		}
		if id != "" {
			s.sum.Skipped["menu_items"]++
			continue
		}

		input := services.MenuItemInput{
			Name:        item.Name,
			Description: item.Description,
			Price:       item.Price,
			IsAvailable: item.Available,
		}
		if item.Category != "" {
			catID := s.menuCategoryIDs[item.Category]
			input.CategoryID = &catID
		}
		for name, qty := range item.Recipe {
			ingID, ok := s.ingredientIDs[name]
			if !ok {
				if ingID, err = s.existingID(ctx, &models.Ingredient{}, name); err != nil {
					return err
				}
			}
			if ingID == "" {
				return fmt.Errorf("menu item %q: unknown ingredient %q", item.Name, name)
			}
			input.Recipe = append(input.Recipe, services.RecipeLineInput{IngredientID: ingID, Quantity: qty})
		}
		if _, err := s.menu.CreateItem(ctx, input); err != nil {
			return fmt.Errorf("menu item %q: %w", item.Name, err)
		}
		s.sum.Created["menu_items"]++
	}
	return nil
}

func (s *seeder) waiters(ctx context.Context, seed *seedFile) error {
	for _, w := range seed.Waiters {
		id, err := s.existingID(ctx, &models.Waiter{}, w.Name)
		if err != nil {
			return err
		}
		if id != "" {
			s.waiterIDs[w.Name] = id
			s.sum.Skipped["waiters"]++
			continue
		}
		waiter, err := s.tables.CreateWaiter(ctx, services.WaiterInput{Name: w.Name, Phone: w.Phone})
		if err != nil {
			return fmt.Errorf("waiter %q: %w", w.Name, err)
		}
		s.waiterIDs[w.Name] = waiter.ID
		s.sum.Created["waiters"]++
	}
	return nil
}

func (s *seeder) tablesStep(ctx context.Context, seed *seedFile) error {
	for _, t := range seed.Tables {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Table{}).Where("number = ?", t.Number).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			s.sum.Skipped["tables"]++
			continue
		}
		input := services.TableInput{Number: t.Number, Capacity: t.Capacity, Floor: t.Floor}
		if t.Waiter != "" {
			waiterID, ok := s.waiterIDs[t.Waiter]
			if !ok {
				return fmt.Errorf("table %d: unknown waiter %q", t.Number, t.Waiter)
			}
			input.WaiterID = &waiterID
		}
		if _, err := s.tables.CreateTable(ctx, input); err != nil {
			return fmt.Errorf("table %d: %w", t.Number, err)
		}
		s.sum.Created["tables"]++
	}
	return nil
}
