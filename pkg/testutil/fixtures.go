package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fixed ids for deterministic tests.
var (
	TestCustomerID1 = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	TestContractID  = uuid.MustParse("00000000-0000-0000-0000-000000000020")
)

// Date returns midnight UTC on the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Amount parses a decimal literal and panics on malformed input.
func Amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
