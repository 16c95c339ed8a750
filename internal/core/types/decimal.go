// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// MoneyScale is the number of fractional digits prices are rounded to.
const MoneyScale int32 = 2

// NewMoney creates a Money value from a float rounded to MoneyScale.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f).Round(MoneyScale)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Discounted applies a percentage discount to price and rounds to MoneyScale.
// Percent outside [0, 100] is clamped.
func Discounted(price Money, percent float64) Money {
	switch {
	case percent <= 0:
		return price.Round(MoneyScale)
	case percent >= 100:
		return decimal.Zero
	}
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(percent).Div(decimal.NewFromInt(100)))
	return price.Mul(factor).Round(MoneyScale)
}
