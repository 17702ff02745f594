package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error kinds. Callers match with errors.Is; specific errors wrap their kind.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInconsistentState = errors.New("inconsistent state")
)

var (
	ErrOrderNotFound = fmt.Errorf("order %w", ErrNotFound)

	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	ErrInvalidDiscount = fmt.Errorf("%w: discount", ErrInvalidInput)
	ErrEmptyCart       = fmt.Errorf("%w: cart is empty", ErrInvalidInput)

	// ErrInvalidTransition is returned when an order is not pending.
	ErrInvalidTransition = fmt.Errorf("%w: order status does not allow this operation", ErrInconsistentState)
	ErrTableOccupied     = fmt.Errorf("%w: table is occupied", ErrInconsistentState)
	ErrIngredientInUse   = fmt.Errorf("%w: ingredient is used by a recipe", ErrInconsistentState)
)

// DeductionPolicy describes how order-time stock moves treat shortages.
// Transfers, removals and sales always fail closed with ErrInsufficientStock.
type DeductionPolicy string

const (
	// DeductClampAtZero floors kitchen stock at zero instead of failing, so
	// a sale is never blocked by inventory lag. The shortfall is logged and
	// recorded on the StockMovement.
	DeductClampAtZero DeductionPolicy = "clamp_at_zero"
	// RestoreUnconditional adds the full recipe quantity back on cancel,
	// even when the original deduction was clamped.
	RestoreUnconditional DeductionPolicy = "restore_unconditional"
)

// OrderDeductionPolicy and OrderRestorationPolicy are the policies in force.
const (
	OrderDeductionPolicy   = DeductClampAtZero
	OrderRestorationPolicy = RestoreUnconditional
)

// notFound translates gorm's ErrRecordNotFound into ErrNotFound (or the
// given specific sentinel), leaving other errors untouched.
func notFound(err error, sentinel error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", sentinel, what, id)
	}
	return err
}
