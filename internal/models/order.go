package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusRefunded is reserved; nothing transitions into it yet.
	OrderStatusRefunded OrderStatus = "refunded"
)

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine-in"
	OrderTypeOnline   OrderType = "online"
	OrderTypeTakeaway OrderType = "takeaway"
)

// IsValid reports whether t is a known order type.
func (t OrderType) IsValid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypeOnline, OrderTypeTakeaway:
		return true
	}
	return false
}

type DiscountType string

const (
	DiscountNone       DiscountType = ""
	DiscountFixed      DiscountType = "fixed"
	DiscountPercentage DiscountType = "percentage"
)

// Order is a customer order with a frozen snapshot of its items.
// Total = Subtotal + Tax - DiscountAmount, floored at zero.
type Order struct {
	ID             string       `json:"id" gorm:"type:uuid;primaryKey"`
	OrderNumber    string       `json:"order_number" gorm:"type:varchar(32);not null;uniqueIndex"`
	Items          []OrderItem  `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Subtotal       float64      `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	TaxRate        float64      `json:"tax_rate" gorm:"type:decimal(6,4);not null;default:0"`
	Tax            float64      `json:"tax" gorm:"type:decimal(12,2);not null;default:0"`
	DiscountType   DiscountType `json:"discount_type" gorm:"type:varchar(20)"`
	DiscountValue  float64      `json:"discount_value" gorm:"type:decimal(12,2);not null;default:0"`
	DiscountAmount float64      `json:"discount_amount" gorm:"type:decimal(12,2);not null;default:0"`
	Total          float64      `json:"total" gorm:"type:decimal(12,2);not null"`
	PaymentMethod  string       `json:"payment_method" gorm:"type:varchar(50)"`
	OrderType      OrderType    `json:"order_type" gorm:"type:varchar(20);not null;index"`
	Status         OrderStatus  `json:"status" gorm:"type:varchar(20);not null;index"`
	TableID        *string      `json:"table_id" gorm:"type:uuid;index"`
	TableNumber    *int         `json:"table_number"`
	WaiterID       *string      `json:"waiter_id" gorm:"type:uuid;index"`
	WaiterName     string       `json:"waiter_name" gorm:"type:varchar(255)"`
	CustomerName   string       `json:"customer_name" gorm:"type:varchar(255)"`
	CreatedAt      time.Time    `json:"created_at" gorm:"index"`
	UpdatedAt      time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
	CompletedAt    *time.Time   `json:"completed_at"`
	CancelledAt    *time.Time   `json:"cancelled_at"`
}

// TableName overrides the gorm table name.
func (Order) TableName() string {
	return "orders"
}

// BeforeCreate assigns a UUID.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}

// IsPending reports whether the order can still be edited, settled or cancelled.
func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}

// OrderItem snapshots a menu item's name and price at the time of sale.
type OrderItem struct {
	ID         string  `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID    string  `json:"order_id" gorm:"type:uuid;not null;index"`
	MenuItemID string  `json:"menu_item_id" gorm:"type:uuid;not null;index"`
	Name       string  `json:"name" gorm:"type:varchar(255);not null"`
	Quantity   int     `json:"quantity" gorm:"not null"`
	UnitPrice  float64 `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	LineTotal  float64 `json:"line_total" gorm:"type:decimal(12,2);not null"`
	Note       string  `json:"note" gorm:"type:text"`
	Position   int     `json:"position" gorm:"not null;default:0"`
}

// TableName overrides the gorm table name.
func (OrderItem) TableName() string {
	return "order_items"
}

// BeforeCreate assigns a UUID.
func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}

// OrderSequence hands out order numbers per business date. The row is locked
// while the next number is taken.
type OrderSequence struct {
	BusinessDate string `gorm:"type:varchar(8);primaryKey"`
	LastNumber   int    `gorm:"not null;default:0"`
}

// TableName overrides the gorm table name.
func (OrderSequence) TableName() string {
	return "order_sequences"
}
