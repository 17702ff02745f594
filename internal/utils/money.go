package utils

import "github.com/shopspring/decimal"

// Money is stored as float64 in the models; every arithmetic step that
// produces a persisted amount goes through decimal and is rounded here.

const (
	moneyPlaces    = 2
	costPlaces     = 4
	quantityPlaces = 3
)

// RoundMoney rounds a currency amount to cents (half away from zero).
func RoundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(moneyPlaces).InexactFloat64()
}

// RoundCost rounds a per-unit cost. Unit costs keep four places so that
// weighted averages of cheap ingredients don't collapse to zero.
func RoundCost(v float64) float64 {
	return decimal.NewFromFloat(v).Round(costPlaces).InexactFloat64()
}

// RoundQuantity rounds a stock quantity to grams/millilitres.
func RoundQuantity(v float64) float64 {
	return decimal.NewFromFloat(v).Round(quantityPlaces).InexactFloat64()
}

// Dec converts a stored float to decimal for arithmetic.
func Dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// Mul multiplies a and b exactly and returns the float result unrounded.
func Mul(a, b float64) float64 {
	return Dec(a).Mul(Dec(b)).InexactFloat64()
}

// Sub returns a-b computed in decimal.
func Sub(a, b float64) float64 {
	return Dec(a).Sub(Dec(b)).InexactFloat64()
}

// Add returns a+b computed in decimal.
func Add(a, b float64) float64 {
	return Dec(a).Add(Dec(b)).InexactFloat64()
}
