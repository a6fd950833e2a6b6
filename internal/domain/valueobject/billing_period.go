package valueobject

import (
	"fmt"
	"time"
)

const (
	MinBillingDay = 1
	MaxBillingDay = 28
)

// BillingDay is the day of month on which a contract's billing period starts.
// It is capped at 28 so every month has it.
type BillingDay int

func NewBillingDay(day int) (BillingDay, error) {
	if day < MinBillingDay || day > MaxBillingDay {
		return 0, fmt.Errorf("invalid billing day %d: must be between %d and %d", day, MinBillingDay, MaxBillingDay)
	}
	return BillingDay(day), nil
}

func (d BillingDay) Int() int { return int(d) }

// BillingPeriod is one billing cycle: from the billing day in month N through the
// day before the billing day in month N+1, both inclusive.
type BillingPeriod struct {
	start time.Time
	end   time.Time
}

// PeriodContaining returns the billing period for day that contains date.
func PeriodContaining(day BillingDay, date time.Time) BillingPeriod {
	d := DateOf(date)
	start := time.Date(d.Year(), d.Month(), int(day), 0, 0, 0, 0, time.UTC)
	if d.Before(start) {
		start = start.AddDate(0, -1, 0)
	}
	return PeriodStartingOn(start)
}

// PeriodStartingOn builds the period that begins on start. The day of start must be
// a valid billing day.
func PeriodStartingOn(start time.Time) BillingPeriod {
	s := DateOf(start)
	return BillingPeriod{start: s, end: s.AddDate(0, 1, -1)}
}

// PeriodForMonth returns the period that starts in the given calendar month.
func PeriodForMonth(day BillingDay, year int, month time.Month) BillingPeriod {
	return PeriodStartingOn(time.Date(year, month, int(day), 0, 0, 0, 0, time.UTC))
}

func (p BillingPeriod) Start() time.Time { return p.start }
func (p BillingPeriod) End() time.Time   { return p.end }
func (p BillingPeriod) IsZero() bool     { return p.start.IsZero() }

// Key identifies the period within a contract. Periods start at most once per
// calendar month, so year-month of the start date is unique.
func (p BillingPeriod) Key() string {
	return p.start.Format("2006-01")
}

func (p BillingPeriod) String() string {
	return fmt.Sprintf("%s..%s", p.start.Format(DateLayout), p.end.Format(DateLayout))
}

func (p BillingPeriod) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(p.start) && !d.After(p.end)
}

func (p BillingPeriod) Next() BillingPeriod {
	return PeriodStartingOn(p.start.AddDate(0, 1, 0))
}

func (p BillingPeriod) Previous() BillingPeriod {
	return PeriodStartingOn(p.start.AddDate(0, -1, 0))
}

func (p BillingPeriod) Before(other BillingPeriod) bool {
	return p.start.Before(other.start)
}

// PeriodsBetween lists every period from first through last inclusive.
func PeriodsBetween(first, last BillingPeriod) []BillingPeriod {
	var out []BillingPeriod
	for p := first; !last.Before(p); p = p.Next() {
		out = append(out, p)
	}
	return out
}
