// Package core holds the finance domain model: entities, payload
// validation, goal progress and the dashboard aggregation.
//
// Amounts are shopspring decimals so sums and differences are exact; they
// serialize as plain JSON numbers.
package core

import (
	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

var hundred = decimal.NewFromInt(100)

// Percent returns part/whole*100 rounded to two places, or 0 when whole is
// not positive.
func Percent(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	return part.Mul(hundred).Div(whole).Round(2).InexactFloat64()
}

// ClampPercent bounds p to [0,100].
func ClampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
