// Package money does currency arithmetic in decimal and hands float64 back to storage.
package money

import "github.com/shopspring/decimal"

// Tolerance is the largest difference two amounts may have and still be considered equal.
var Tolerance = decimal.RequireFromString("0.01")

// Round2 rounds an amount to two decimal places (half away from zero).
func Round2(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}

// Line returns round2(price * quantity).
func Line(price float64, quantity int) float64 {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(quantity))).Round(2).InexactFloat64()
}

// Sum adds amounts exactly and rounds the result to two decimals.
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total.Round(2).InexactFloat64()
}

// Sub returns round2(a - b).
func Sub(a, b float64) float64 {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}

// Percent returns round2(amount * pct / 100).
func Percent(amount, pct float64) float64 {
	return decimal.NewFromFloat(amount).
		Mul(decimal.NewFromFloat(pct)).
		Div(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64()
}

// ApplyPercentOff returns round2(price * (1 - pct/100)).
func ApplyPercentOff(price, pct float64) float64 {
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(pct).Div(decimal.NewFromInt(100)))
	return decimal.NewFromFloat(price).Mul(factor).Round(2).InexactFloat64()
}

// Equal reports whether a and b differ by at most Tolerance.
func Equal(a, b float64) bool {
	diff := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Abs()
	return diff.LessThanOrEqual(Tolerance)
}

// MinorUnits converts an amount to integer minor units (paise, cents), rounding to nearest.
func MinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
