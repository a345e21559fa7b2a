package domain

import "github.com/shopspring/decimal"

// RoundMoney rounds a monetary amount to 2 decimal places, half up. All
// intermediate money computations round at the point of calculation, not at
// display time, so repeated partial operations cannot drift.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MoneyString renders an amount with two fixed decimal places for the wire.
func MoneyString(d decimal.Decimal) string {
	return d.StringFixed(2)
}
