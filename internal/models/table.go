package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
)

// Table is a dining table. CurrentOrderID is set iff Status is occupied and
// then references a pending dine-in order.
type Table struct {
	ID             string      `json:"id" gorm:"type:uuid;primaryKey"`
	Number         int         `json:"number" gorm:"not null;uniqueIndex"`
	Capacity       int         `json:"capacity" gorm:"not null;default:4"`
	Floor          string      `json:"floor" gorm:"type:varchar(50)"`
	Status         TableStatus `json:"status" gorm:"type:varchar(20);not null;default:'available'"`
	CurrentOrderID *string     `json:"current_order_id" gorm:"type:uuid"`
	WaiterID       *string     `json:"waiter_id" gorm:"type:uuid;index"`
	Waiter         *Waiter     `json:"waiter,omitempty" gorm:"foreignKey:WaiterID"`
	CreatedAt      time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the gorm table name.
func (Table) TableName() string {
	return "dining_tables"
}

// BeforeCreate assigns a UUID.
func (t *Table) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = TableAvailable
	}
	return nil
}

func (t *Table) IsOccupied() bool {
	return t.Status == TableOccupied
}

type Waiter struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Phone     string    `json:"phone" gorm:"type:varchar(50)"`
	IsActive  bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the gorm table name.
func (Waiter) TableName() string {
	return "waiters"
}

// BeforeCreate assigns a UUID.
func (w *Waiter) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	return nil
}
