package model

import (
	"time"

	"github.com/hennyhux/changsheng/internal/domain/valueobject"
)

// Suspension is the stretch of days between a contract's end date and the day
// it was reactivated. Both bounds are inclusive.
type Suspension struct {
	from time.Time
	to   time.Time
}

func NewSuspension(from, to time.Time) Suspension {
	return Suspension{from: valueobject.DateOf(from), to: valueobject.DateOf(to)}
}

func (s Suspension) From() time.Time { return s.from }
func (s Suspension) To() time.Time   { return s.to }

// Covers reports whether the whole period falls inside the suspension. A
// period the contract was active for on any day is not covered.
func (s Suspension) Covers(p valueobject.BillingPeriod) bool {
	return !p.Start().Before(s.from) && !p.End().After(s.to)
}
