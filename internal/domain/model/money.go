package model

import "github.com/shopspring/decimal"

// centScale is the number of fractional digits every stored amount carries.
const centScale = 2

func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(centScale))
}

// Sum adds amounts exactly.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
