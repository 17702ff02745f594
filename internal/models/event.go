package models

import "time"

// LedgerEventType names what changed. Readers treat every event as
// "re-fetch" and do not rely on Data for state.
type LedgerEventType string

const (
	EventIngredientChanged LedgerEventType = "ingredient.changed"
	EventIngredientDeleted LedgerEventType = "ingredient.deleted"
	EventStockPurchased    LedgerEventType = "stock.purchased"
	EventStockTransferred  LedgerEventType = "stock.transferred"
	EventStockRemoved      LedgerEventType = "stock.removed"
	EventStockSold         LedgerEventType = "stock.sold"
	EventMenuChanged       LedgerEventType = "menu.changed"
	EventTableChanged      LedgerEventType = "table.changed"
	EventOrderCreated      LedgerEventType = "order.created"
	EventOrderUpdated      LedgerEventType = "order.updated"
	EventOrderSettled      LedgerEventType = "order.settled"
	EventOrderCancelled    LedgerEventType = "order.cancelled"
)

// LedgerEvent is a change notification. It is not persisted.
type LedgerEvent struct {
	Type       LedgerEventType        `json:"type"`
	EntityID   string                 `json:"entity_id"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

func NewLedgerEvent(t LedgerEventType, entityID string, data map[string]interface{}) LedgerEvent {
	return LedgerEvent{
		Type:       t,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}
