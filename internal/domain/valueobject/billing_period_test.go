package valueobject_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hennyhux/changsheng/internal/domain/valueobject"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewBillingDay(t *testing.T) {
	tests := []struct {
		name    string
		day     int
		wantErr bool
	}{
		{name: "first", day: 1},
		{name: "mid month", day: 15},
		{name: "upper bound", day: 28},
		{name: "zero", day: 0, wantErr: true},
		{name: "29th", day: 29, wantErr: true},
		{name: "31st", day: 31, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := valueobject.NewBillingDay(tt.day)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid billing day")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.day, d.Int())
		})
	}
}

func TestPeriodContaining(t *testing.T) {
	tests := []struct {
		name      string
		day       valueobject.BillingDay
		date      time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{name: "first of month cadence", day: 1, date: date(2024, 2, 14), wantStart: date(2024, 2, 1), wantEnd: date(2024, 2, 29)},
		{name: "on the billing day", day: 15, date: date(2024, 3, 15), wantStart: date(2024, 3, 15), wantEnd: date(2024, 4, 14)},
		{name: "before billing day rolls back", day: 15, date: date(2024, 3, 14), wantStart: date(2024, 2, 15), wantEnd: date(2024, 3, 14)},
		{name: "across year end", day: 10, date: date(2024, 1, 5), wantStart: date(2023, 12, 10), wantEnd: date(2024, 1, 9)},
		{name: "day 28 in february", day: 28, date: date(2023, 2, 28), wantStart: date(2023, 2, 28), wantEnd: date(2023, 3, 27)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valueobject.PeriodContaining(tt.day, tt.date)
			assert.Equal(t, tt.wantStart, p.Start())
			assert.Equal(t, tt.wantEnd, p.End())
			assert.True(t, p.Contains(tt.date))
		})
	}
}

func TestBillingPeriod_IgnoresTimeOfDay(t *testing.T) {
	late := time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC)
	p := valueobject.PeriodContaining(1, late)
	assert.Equal(t, date(2024, 2, 1), p.Start())
	assert.True(t, p.Contains(late))
}

func TestBillingPeriod_NextPrevious(t *testing.T) {
	p := valueobject.PeriodForMonth(20, 2024, time.December)
	next := p.Next()
	assert.Equal(t, date(2025, 1, 20), next.Start())
	assert.Equal(t, date(2025, 2, 19), next.End())
	assert.Equal(t, p, next.Previous())
	assert.True(t, p.Before(next))
	assert.False(t, next.Before(p))
}

func TestBillingPeriod_ContiguousAndKeyed(t *testing.T) {
	first := valueobject.PeriodForMonth(5, 2024, time.January)
	last := valueobject.PeriodForMonth(5, 2024, time.December)

	periods := valueobject.PeriodsBetween(first, last)
	require.Len(t, periods, 12)

	seen := map[string]bool{}
	for i, p := range periods {
		assert.False(t, seen[p.Key()], "duplicate key %s", p.Key())
		seen[p.Key()] = true
		if i > 0 {
			assert.Equal(t, periods[i-1].End().AddDate(0, 0, 1), p.Start())
		}
	}
	assert.Equal(t, "2024-01", periods[0].Key())
	assert.Equal(t, "2024-12", periods[11].Key())
}

func TestPeriodsBetween_EmptyWhenReversed(t *testing.T) {
	first := valueobject.PeriodForMonth(1, 2024, time.March)
	last := valueobject.PeriodForMonth(1, 2024, time.January)
	assert.Empty(t, valueobject.PeriodsBetween(first, last))
}
