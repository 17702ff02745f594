package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"bistro/server/internal/events"
	"bistro/server/internal/metrics"
	"bistro/server/internal/models"
	"bistro/server/internal/utils"
)

const MenuUpdateChannel = "menu:update"

// MenuService keeps the catalog and an in-memory snapshot of the available
// menu. The snapshot is rebuilt after every local write and whenever another
// instance announces a change on MenuUpdateChannel.
type MenuService struct {
	db        *gorm.DB
	redisUtil *utils.RedisClient
	notifier  events.Notifier
	metrics   *metrics.Metrics
	subscribe func(ctx context.Context, channel string) (<-chan *redis.Message, func() error)

	mu             sync.RWMutex
	available      []models.MenuItem
	lastUpdate     time.Time
	updateInterval time.Duration
	stop           chan struct{}
	stopOnce       sync.Once
}

// NewMenuService builds the service. redisUtil may be nil; the snapshot then
// only refreshes on local writes and the fallback timer.
func NewMenuService(db *gorm.DB, redisUtil *utils.RedisClient) *MenuService {
	ms := &MenuService{
		db:             db,
		redisUtil:      redisUtil,
		notifier:       events.Nop{},
		updateInterval: 5 * time.Minute,
		stop:           make(chan struct{}),
	}
	if redisUtil != nil {
		ms.subscribe = redisUtil.Subscribe
	}
	return ms
}

func (ms *MenuService) SetNotifier(n events.Notifier) {
	if n == nil {
		n = events.Nop{}
	}
	ms.notifier = n
}

func (ms *MenuService) SetMetrics(m *metrics.Metrics) {
	ms.metrics = m
}

type RecipeLineInput struct {
	IngredientID string  `json:"ingredient_id" binding:"required"`
	Quantity     float64 `json:"quantity"`
}

type MenuItemInput struct {
	Name        string            `json:"name" binding:"required"`
	Description string            `json:"description"`
	Price       float64           `json:"price"`
	CategoryID  *string           `json:"category_id"`
	IsAvailable *bool             `json:"is_available"`
	Recipe      []RecipeLineInput `json:"recipe"`
}

func (in MenuItemInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	seen := make(map[string]bool, len(in.Recipe))
	for _, line := range in.Recipe {
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: recipe quantity for %s", ErrInvalidQuantity, line.IngredientID)
		}
		if seen[line.IngredientID] {
			return fmt.Errorf("%w: ingredient %s listed twice in recipe", ErrInvalidInput, line.IngredientID)
		}
		seen[line.IngredientID] = true
	}
	return nil
}

func (ms *MenuService) CreateCategory(ctx context.Context, name string, displayOrder int) (*models.MenuCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	c := &models.MenuCategory{Name: name, DisplayOrder: displayOrder}
	if err := ms.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("create menu category: %w", err)
	}
	return c, nil
}

func (ms *MenuService) ListCategories(ctx context.Context) ([]models.MenuCategory, error) {
	var out []models.MenuCategory
	err := ms.db.WithContext(ctx).Order("display_order, name").Find(&out).Error
	return out, err
}

// CreateItem stores a menu item with its recipe and derived cost fields.
func (ms *MenuService) CreateItem(ctx context.Context, in MenuItemInput) (*models.MenuItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	available := true
	if in.IsAvailable != nil {
		available = *in.IsAvailable
	}

	item := &models.MenuItem{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       utils.RoundMoney(in.Price),
		CategoryID:  in.CategoryID,
		IsAvailable: available,
	}
	err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines, ingredients, err := resolveRecipeInput(tx, in.Recipe)
		if err != nil {
			return err
		}
		applyCost(item, lines, ingredients)
		if err := tx.Omit("Recipe").Create(item).Error; err != nil {
			return err
		}
		return insertRecipe(tx, item, lines)
	})
	if err != nil {
		return nil, err
	}
	ms.changed(ctx, item.ID)
	return item, nil
}

// UpdateItem replaces the item's fields and its recipe wholesale, then
// recomputes cost and margin.
func (ms *MenuService) UpdateItem(ctx context.Context, id string, in MenuItemInput) (*models.MenuItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var item models.MenuItem
	err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, "id = ?", id).Error; err != nil {
			return notFound(err, ErrNotFound, "menu item", id)
		}
		lines, ingredients, err := resolveRecipeInput(tx, in.Recipe)
		if err != nil {
			return err
		}

		item.Name = strings.TrimSpace(in.Name)
		item.Description = in.Description
		item.Price = utils.RoundMoney(in.Price)
		item.CategoryID = in.CategoryID
		if in.IsAvailable != nil {
			item.IsAvailable = *in.IsAvailable
		}
		applyCost(&item, lines, ingredients)

		if err := tx.Where("menu_item_id = ?", item.ID).Delete(&models.RecipeLine{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&item).Select("name", "description", "price", "category_id", "is_available", "recipe_cost", "profit_margin").
			Updates(&item).Error; err != nil {
			return err
		}
		return insertRecipe(tx, &item, lines)
	})
	if err != nil {
		return nil, err
	}
	ms.changed(ctx, item.ID)
	return &item, nil
}

// DeleteItem soft-deletes a menu item. Past orders keep their snapshot.
func (ms *MenuService) DeleteItem(ctx context.Context, id string) error {
	res := ms.db.WithContext(ctx).Delete(&models.MenuItem{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: menu item %s", ErrNotFound, id)
	}
	ms.changed(ctx, id)
	return nil
}

// SetAvailability toggles whether the item can be ordered.
func (ms *MenuService) SetAvailability(ctx context.Context, id string, available bool) (*models.MenuItem, error) {
	res := ms.db.WithContext(ctx).Model(&models.MenuItem{}).Where("id = ?", id).Update("is_available", available)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: menu item %s", ErrNotFound, id)
	}
	ms.changed(ctx, id)
	return ms.GetItem(ctx, id)
}

func (ms *MenuService) GetItem(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	err := ms.db.WithContext(ctx).
		Preload("Recipe", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Category").
		First(&item, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, ErrNotFound, "menu item", id)
	}
	return &item, nil
}

type MenuFilter struct {
	CategoryID    string
	AvailableOnly bool
}

func (ms *MenuService) ListItems(ctx context.Context, f MenuFilter) ([]models.MenuItem, error) {
	q := ms.db.WithContext(ctx).
		Preload("Recipe", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Category").
		Order("name")
	if f.CategoryID != "" {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.AvailableOnly {
		q = q.Where("is_available = ?", true)
	}
	var out []models.MenuItem
	err := q.Find(&out).Error
	return out, err
}

// ItemCostReport is an ad-hoc costing of one menu item at current
// ingredient costs.
type ItemCostReport struct {
	MenuItemID   string        `json:"menu_item_id"`
	Name         string        `json:"name"`
	Price        float64       `json:"price"`
	Cost         CostBreakdown `json:"cost"`
	ProfitMargin float64       `json:"profit_margin"`
}

// ItemCost prices the item's recipe against current ingredient costs. It
// does not write anything.
func (ms *MenuService) ItemCost(ctx context.Context, id string) (*ItemCostReport, error) {
	item, err := ms.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	ingredients, err := loadIngredients(ms.db.WithContext(ctx), recipeIngredientIDs(item.Recipe))
	if err != nil {
		return nil, err
	}
	breakdown := CostRecipe(item.Recipe, ingredients)
	if breakdown.Partial() {
		log.Printf("⚠️ Menu item %s (%s) has unresolved ingredients: %v", item.Name, item.ID, breakdown.Unresolved)
		ms.metrics.RecordUnresolved("cost", len(breakdown.Unresolved))
	}
	return &ItemCostReport{
		MenuItemID:   item.ID,
		Name:         item.Name,
		Price:        item.Price,
		Cost:         breakdown,
		ProfitMargin: ProfitMargin(item.Price, breakdown.Total),
	}, nil
}

// RecomputeCosts refreshes the stored recipe cost and margin of every menu
// item, typically after purchases moved ingredient costs. Returns the number
// of items whose stored values changed.
func (ms *MenuService) RecomputeCosts(ctx context.Context) (int, error) {
	changed := 0
	err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []models.MenuItem
		if err := tx.Preload("Recipe").Find(&items).Error; err != nil {
			return err
		}
		var ids []string
		for _, it := range items {
			ids = append(ids, recipeIngredientIDs(it.Recipe)...)
		}
		ingredients, err := loadIngredients(tx, ids)
		if err != nil {
			return err
		}
		for i := range items {
			it := &items[i]
			oldCost, oldMargin := it.RecipeCost, it.ProfitMargin
			breakdown := CostRecipe(it.Recipe, ingredients)
			it.RecipeCost = breakdown.Total
			it.ProfitMargin = ProfitMargin(it.Price, breakdown.Total)
			if it.RecipeCost == oldCost && it.ProfitMargin == oldMargin {
				continue
			}
			err := tx.Model(&models.MenuItem{}).Where("id = ?", it.ID).
				Updates(map[string]interface{}{"recipe_cost": it.RecipeCost, "profit_margin": it.ProfitMargin}).Error
			if err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		ms.changed(ctx, "")
	}
	log.Printf("✅ Recomputed menu costs: %d item(s) changed", changed)
	return changed, nil
}

// LoadMenu rebuilds the available-menu snapshot. The query runs without the
// lock; only the swap is guarded.
func (ms *MenuService) LoadMenu(ctx context.Context) error {
	items, err := ms.ListItems(ctx, MenuFilter{AvailableOnly: true})
	if err != nil {
		return err
	}
	ms.mu.Lock()
	ms.available = items
	ms.lastUpdate = time.Now()
	ms.mu.Unlock()
	log.Printf("✅ Menu snapshot loaded: %d available item(s)", len(items))
	return nil
}

// Available returns the current available-menu snapshot.
func (ms *MenuService) Available() []models.MenuItem {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	out := make([]models.MenuItem, len(ms.available))
	copy(out, ms.available)
	return out
}

func (ms *MenuService) LastUpdate() time.Time {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.lastUpdate
}

// StartAutoReload listens on Redis for change announcements and also reloads
// on a timer in case a message was missed.
func (ms *MenuService) StartAutoReload(ctx context.Context) {
	if ms.subscribe != nil {
		go ms.listen(ctx)
		log.Println("📡 Menu pub/sub listener started")
	}

	go func() {
		ticker := time.NewTicker(ms.updateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := ms.LoadMenu(ctx); err != nil {
					log.Printf("⚠️ Menu auto-reload failed: %v", err)
				}
			case <-ms.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	log.Printf("🔄 Menu fallback reload every %s", ms.updateInterval)
}

func (ms *MenuService) listen(ctx context.Context) {
	ch, closeFn := ms.subscribe(ctx, MenuUpdateChannel)
	defer func() {
		if err := closeFn(); err != nil {
			log.Printf("⚠️ Closing menu subscription: %v", err)
		}
	}()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				log.Println("⚠️ Menu subscription closed, resubscribing")
				if err := closeFn(); err != nil {
					log.Printf("⚠️ Closing menu subscription: %v", err)
				}
				// Already closed; the deferred close must not run it again.
				closeFn = func() error { return nil }
				select {
				case <-time.After(time.Second):
				case <-ms.stop:
					return
				case <-ctx.Done():
					return
				}
				ch, closeFn = ms.subscribe(ctx, MenuUpdateChannel)
				continue
			}
			log.Printf("🔔 Menu change announced: %s", msg.Payload)
			if err := ms.LoadMenu(ctx); err != nil {
				log.Printf("⚠️ Menu reload after announcement failed: %v", err)
			}
		case <-ms.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends the reload goroutines. Safe to call more than once.
func (ms *MenuService) Stop() {
	ms.stopOnce.Do(func() { close(ms.stop) })
}

// PublishUpdate announces a catalog change to other instances.
func (ms *MenuService) PublishUpdate(ctx context.Context) error {
	if ms.redisUtil == nil {
		return nil
	}
	return ms.redisUtil.Publish(ctx, MenuUpdateChannel, time.Now().UTC().Format(time.RFC3339))
}

func (ms *MenuService) changed(ctx context.Context, id string) {
	if err := ms.LoadMenu(ctx); err != nil {
		log.Printf("⚠️ Menu snapshot reload failed: %v", err)
	}
	if err := ms.PublishUpdate(ctx); err != nil {
		log.Printf("⚠️ Menu update publish failed: %v", err)
	}
	ms.notifier.Notify(ctx, models.NewLedgerEvent(models.EventMenuChanged, id, nil))
}

// itemsForOrder loads menu items with recipes for the order engine inside
// its transaction. Soft-deleted items are not returned.
func itemsForOrder(tx *gorm.DB, ids []string) (map[string]models.MenuItem, error) {
	out := make(map[string]models.MenuItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var items []models.MenuItem
	err := tx.Preload("Recipe", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("id IN ?", ids).Find(&items).Error
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}

func resolveRecipeInput(tx *gorm.DB, in []RecipeLineInput) ([]models.RecipeLine, map[string]models.Ingredient, error) {
	ids := make([]string, 0, len(in))
	for _, l := range in {
		ids = append(ids, l.IngredientID)
	}
	ingredients, err := loadIngredients(tx, ids)
	if err != nil {
		return nil, nil, err
	}
	lines := make([]models.RecipeLine, 0, len(in))
	for i, l := range in {
		if _, ok := ingredients[l.IngredientID]; !ok {
			return nil, nil, fmt.Errorf("%w: ingredient %s", ErrNotFound, l.IngredientID)
		}
		lines = append(lines, models.RecipeLine{
			IngredientID: l.IngredientID,
			Quantity:     l.Quantity,
			Position:     i,
		})
	}
	return lines, ingredients, nil
}

func insertRecipe(tx *gorm.DB, item *models.MenuItem, lines []models.RecipeLine) error {
	for i := range lines {
		lines[i].MenuItemID = item.ID
	}
	if len(lines) > 0 {
		if err := tx.Create(&lines).Error; err != nil {
			return err
		}
	}
	item.Recipe = lines
	return nil
}

func applyCost(item *models.MenuItem, lines []models.RecipeLine, ingredients map[string]models.Ingredient) {
	breakdown := CostRecipe(lines, ingredients)
	item.RecipeCost = breakdown.Total
	item.ProfitMargin = ProfitMargin(item.Price, breakdown.Total)
}

func loadIngredients(db *gorm.DB, ids []string) (map[string]models.Ingredient, error) {
	out := make(map[string]models.Ingredient, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var list []models.Ingredient
	if err := db.Where("id IN ?", uniqueStrings(ids)).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, ing := range list {
		out[ing.ID] = ing
	}
	return out, nil
}

func recipeIngredientIDs(lines []models.RecipeLine) []string {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.IngredientID)
	}
	return ids
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
