package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bistro/server/internal/events"
	"bistro/server/internal/models"
)

// TableService is the table and waiter registry. Occupancy is changed only
// by OrderService through occupy and free inside the order transaction.
type TableService struct {
	db       *gorm.DB
	notifier events.Notifier
}

func NewTableService(db *gorm.DB) *TableService {
	return &TableService{db: db, notifier: events.Nop{}}
}

func (ts *TableService) SetNotifier(n events.Notifier) {
	if n == nil {
		n = events.Nop{}
	}
	ts.notifier = n
}

type TableInput struct {
	Number   int     `json:"number" binding:"required"`
	Capacity int     `json:"capacity"`
	Floor    string  `json:"floor"`
	WaiterID *string `json:"waiter_id"`
}

func (ts *TableService) CreateTable(ctx context.Context, in TableInput) (*models.Table, error) {
	if in.Number <= 0 {
		return nil, fmt.Errorf("%w: table number must be positive", ErrInvalidInput)
	}
	if in.Capacity < 0 {
		return nil, fmt.Errorf("%w: capacity must not be negative", ErrInvalidInput)
	}
	capacity := in.Capacity
	if capacity == 0 {
		capacity = 4
	}
	t := &models.Table{
		Number:   in.Number,
		Capacity: capacity,
		Floor:    strings.TrimSpace(in.Floor),
		Status:   models.TableAvailable,
		WaiterID: in.WaiterID,
	}
	err := ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.WaiterID != nil {
			if err := tx.First(&models.Waiter{}, "id = ?", *in.WaiterID).Error; err != nil {
				return notFound(err, ErrNotFound, "waiter", *in.WaiterID)
			}
		}
		return tx.Create(t).Error
	})
	if err != nil {
		return nil, err
	}
	ts.notifier.Notify(ctx, models.NewLedgerEvent(models.EventTableChanged, t.ID, nil))
	return t, nil
}

func (ts *TableService) GetTable(ctx context.Context, id string) (*models.Table, error) {
	var t models.Table
	if err := ts.db.WithContext(ctx).Preload("Waiter").First(&t, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrNotFound, "table", id)
	}
	return &t, nil
}

// ListTables returns tables ordered by number, optionally filtered by status.
func (ts *TableService) ListTables(ctx context.Context, status models.TableStatus) ([]models.Table, error) {
	q := ts.db.WithContext(ctx).Preload("Waiter").Order("number")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Table
	err := q.Find(&out).Error
	return out, err
}

// AssignWaiter sets or clears (waiterID nil) the table's waiter.
func (ts *TableService) AssignWaiter(ctx context.Context, tableID string, waiterID *string) (*models.Table, error) {
	err := ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := lockTable(tx, tableID)
		if err != nil {
			return err
		}
		if waiterID != nil {
			if err := tx.First(&models.Waiter{}, "id = ?", *waiterID).Error; err != nil {
				return notFound(err, ErrNotFound, "waiter", *waiterID)
			}
		}
		return tx.Model(t).Update("waiter_id", waiterID).Error
	})
	if err != nil {
		return nil, err
	}
	ts.notifier.Notify(ctx, models.NewLedgerEvent(models.EventTableChanged, tableID, nil))
	return ts.GetTable(ctx, tableID)
}

type WaiterInput struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

func (ts *TableService) CreateWaiter(ctx context.Context, in WaiterInput) (*models.Waiter, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: waiter name is required", ErrInvalidInput)
	}
	w := &models.Waiter{Name: name, Phone: strings.TrimSpace(in.Phone), IsActive: true}
	if err := ts.db.WithContext(ctx).Create(w).Error; err != nil {
		return nil, fmt.Errorf("create waiter: %w", err)
	}
	return w, nil
}

func (ts *TableService) GetWaiter(ctx context.Context, id string) (*models.Waiter, error) {
	var w models.Waiter
	if err := ts.db.WithContext(ctx).First(&w, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrNotFound, "waiter", id)
	}
	return &w, nil
}

func (ts *TableService) ListWaiters(ctx context.Context, activeOnly bool) ([]models.Waiter, error) {
	q := ts.db.WithContext(ctx).Order("name")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []models.Waiter
	err := q.Find(&out).Error
	return out, err
}

// SetWaiterActive deactivates or reactivates a waiter. Inactive waiters
// cannot be put on new orders.
func (ts *TableService) SetWaiterActive(ctx context.Context, id string, active bool) (*models.Waiter, error) {
	res := ts.db.WithContext(ctx).Model(&models.Waiter{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: waiter %s", ErrNotFound, id)
	}
	return ts.GetWaiter(ctx, id)
}

// occupy marks the table as held by orderID. A table already held by a
// different order is rejected.
func (ts *TableService) occupy(tx *gorm.DB, tableID, orderID string) (*models.Table, error) {
	t, err := lockTable(tx, tableID)
	if err != nil {
		return nil, err
	}
	if t.IsOccupied() && (t.CurrentOrderID == nil || *t.CurrentOrderID != orderID) {
		held := ""
		if t.CurrentOrderID != nil {
			held = *t.CurrentOrderID
		}
		return nil, fmt.Errorf("%w: table %d is held by order %s", ErrTableOccupied, t.Number, held)
	}
	err = tx.Model(t).Updates(map[string]interface{}{
		"status":           models.TableOccupied,
		"current_order_id": orderID,
	}).Error
	if err != nil {
		return nil, err
	}
	t.Status = models.TableOccupied
	t.CurrentOrderID = &orderID
	return t, nil
}

// free releases the table if, and only if, it is held by orderID. A table
// already released or taken over is left alone.
func (ts *TableService) free(tx *gorm.DB, tableID, orderID string) error {
	t, err := lockTable(tx, tableID)
	if err != nil {
		return err
	}
	if t.CurrentOrderID == nil || *t.CurrentOrderID != orderID {
		return nil
	}
	return tx.Model(t).Updates(map[string]interface{}{
		"status":           models.TableAvailable,
		"current_order_id": nil,
	}).Error
}

func lockTable(tx *gorm.DB, id string) (*models.Table, error) {
	var t models.Table
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrNotFound, "table", id)
	}
	return &t, nil
}
