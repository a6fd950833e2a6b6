package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hennyhux/changsheng/internal/domain/event"
	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/internal/domain/valueobject"
)

var now = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func validParams() model.ContractParams {
	return model.ContractParams{
		CustomerID:   uuid.New(),
		CustomerName: "Acme Freight",
		TruckPlate:   " tx 1234 ",
		MonthlyRate:  dec("100.00"),
		StartDate:    date(2024, 1, 1),
	}
}

func TestNewContract_Success(t *testing.T) {
	c, err := model.NewContract(validParams(), now)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, c.ID())
	assert.Equal(t, "TX1234", c.TruckPlate())
	assert.Equal(t, 1, c.BillingDay().Int())
	assert.True(t, c.Active())
	assert.Nil(t, c.EndDate())
	assert.True(t, c.Credit().IsZero())
	assert.True(t, dec("100").Equal(c.MonthlyRate()))
	require.Len(t, c.DomainEvents(), 1)
	assert.Equal(t, event.TypeContractCreated, c.DomainEvents()[0].EventType())
}

func TestNewContract_BillingDayDefaultsToStartDay(t *testing.T) {
	p := validParams()
	p.StartDate = date(2024, 1, 31)
	c, err := model.NewContract(p, now)
	require.NoError(t, err)
	assert.Equal(t, 28, c.BillingDay().Int())

	p.StartDate = date(2024, 1, 12)
	c, err = model.NewContract(p, now)
	require.NoError(t, err)
	assert.Equal(t, 12, c.BillingDay().Int())
}

func TestNewContract_Invalid(t *testing.T) {
	end := date(2023, 12, 31)
	tests := []struct {
		name   string
		mutate func(p *model.ContractParams)
		reason string
	}{
		{name: "negative rate", mutate: func(p *model.ContractParams) { p.MonthlyRate = dec("-1") }, reason: "negative"},
		{name: "sub-cent rate", mutate: func(p *model.ContractParams) { p.MonthlyRate = dec("10.005") }, reason: "decimal places"},
		{name: "end before start", mutate: func(p *model.ContractParams) { p.EndDate = &end }, reason: "before start"},
		{name: "billing day 30", mutate: func(p *model.ContractParams) { p.BillingDay = 30 }, reason: "billing day"},
		{name: "missing customer", mutate: func(p *model.ContractParams) { p.CustomerID = uuid.Nil }, reason: "customer"},
		{name: "missing start", mutate: func(p *model.ContractParams) { p.StartDate = time.Time{} }, reason: "start date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			_, err := model.NewContract(p, now)
			var invalid *model.InvalidContractError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Contains(t, invalid.Error(), tt.reason)
		})
	}
}

func TestContract_ZeroRateIsValid(t *testing.T) {
	p := validParams()
	p.MonthlyRate = decimal.Zero
	_, err := model.NewContract(p, now)
	assert.NoError(t, err)
}

func TestContract_RateOn(t *testing.T) {
	c, err := model.NewContract(validParams(), now)
	require.NoError(t, err)

	changed, err := c.ChangeRate(dec("120.00"), date(2024, 3, 1), now)
	require.NoError(t, err)

	assert.True(t, dec("100").Equal(changed.RateOn(date(2023, 6, 1))), "before start uses initial rate")
	assert.True(t, dec("100").Equal(changed.RateOn(date(2024, 2, 29))))
	assert.True(t, dec("120").Equal(changed.RateOn(date(2024, 3, 1))))
	assert.True(t, dec("120").Equal(changed.MonthlyRate()))

	assert.Len(t, c.Rates(), 1, "original is unchanged")
	assert.Len(t, changed.Rates(), 2)
	require.Len(t, changed.DomainEvents(), 2)
	assert.Equal(t, event.TypeContractRateChanged, changed.DomainEvents()[1].EventType())
}

func TestContract_ChangeRate_Invalid(t *testing.T) {
	c, err := model.NewContract(validParams(), now)
	require.NoError(t, err)

	_, err = c.ChangeRate(dec("-5"), date(2024, 3, 1), now)
	assert.ErrorIs(t, err, model.ErrInvalidRateChange)

	_, err = c.ChangeRate(dec("50"), date(2023, 12, 1), now)
	assert.ErrorIs(t, err, model.ErrInvalidRateChange)

	_, err = c.ChangeRate(dec("50"), date(2024, 1, 1), now)
	assert.ErrorIs(t, err, model.ErrInvalidRateChange, "same day as the current entry")
}

func TestContract_DeactivateReactivate(t *testing.T) {
	c, err := model.NewContract(validParams(), now)
	require.NoError(t, err)

	inactive, err := c.Deactivate(date(2024, 6, 30), now)
	require.NoError(t, err)
	assert.False(t, inactive.Active())
	require.NotNil(t, inactive.EndDate())
	assert.Equal(t, date(2024, 6, 30), *inactive.EndDate())
	assert.True(t, inactive.Billable(), "billing continues up to the end date")

	_, err = c.Deactivate(date(2023, 1, 1), now)
	var invalid *model.InvalidContractError
	assert.True(t, errors.As(err, &invalid))

	active, err := inactive.Reactivate(date(2024, 9, 1), now)
	require.NoError(t, err)
	assert.True(t, active.Active())
	assert.Nil(t, active.EndDate())
	require.Len(t, active.Suspensions(), 1)
	assert.Equal(t, date(2024, 7, 1), active.Suspensions()[0].From())
	assert.Equal(t, date(2024, 8, 31), active.Suspensions()[0].To())
	assert.True(t, active.Suspended(valueobject.PeriodStartingOn(date(2024, 8, 1))))
	assert.False(t, active.Suspended(valueobject.PeriodStartingOn(date(2024, 9, 1))))
	require.NoError(t, active.Validate())

	_, err = active.Reactivate(date(2024, 9, 1), now)
	assert.ErrorIs(t, err, model.ErrInvalidStatusChange)

	_, err = active.Deactivate(date(2024, 8, 15), now)
	assert.ErrorIs(t, err, model.ErrInvalidStatusChange, "cannot end inside a recorded suspension")
}

func TestContract_ReactivateWithoutGap(t *testing.T) {
	c, err := model.NewContract(validParams(), now)
	require.NoError(t, err)
	inactive, err := c.Deactivate(date(2024, 6, 30), now)
	require.NoError(t, err)

	resumed, err := inactive.Reactivate(date(2024, 7, 1), now)
	require.NoError(t, err)
	assert.Empty(t, resumed.Suspensions(), "resuming the day after the end leaves no gap")

	early, err := inactive.Reactivate(date(2024, 5, 1), now)
	require.NoError(t, err)
	assert.Empty(t, early.Suspensions())

	_, err = inactive.Reactivate(date(2023, 12, 1), now)
	assert.ErrorIs(t, err, model.ErrInvalidStatusChange)
}

func TestContract_InactiveWithoutEndIsNotBillable(t *testing.T) {
	c := model.ReconstructContract(uuid.New(), uuid.New(), "A", "", 1, date(2024, 1, 1), nil, false,
		[]model.RateChange{model.NewRateChange(date(2024, 1, 1), dec("100"))}, nil, decimal.Zero, 1, now, now)
	assert.False(t, c.Billable())
}

func TestContract_Overlaps(t *testing.T) {
	p := validParams()
	a, err := model.NewContract(p, now)
	require.NoError(t, err)

	p.StartDate = date(2024, 6, 1)
	b, err := model.NewContract(p, now)
	require.NoError(t, err)
	assert.True(t, a.Overlaps(b), "open-ended contract overlaps a later one")

	endedA, err := a.Deactivate(date(2024, 5, 31), now)
	require.NoError(t, err)
	reactivatedEnded := model.ReconstructContract(endedA.ID(), endedA.CustomerID(), "", endedA.TruckPlate(), 1,
		endedA.StartDate(), endedA.EndDate(), true, endedA.Rates(), nil, decimal.Zero, 1, now, now)
	assert.False(t, reactivatedEnded.Overlaps(b), "fixed term ends before b starts")

	p.TruckPlate = "OTHER"
	c, err := model.NewContract(p, now)
	require.NoError(t, err)
	assert.False(t, a.Overlaps(c))
	assert.False(t, a.Overlaps(a))
}

func TestContract_WithCredit(t *testing.T) {
	c, err := model.NewContract(validParams(), now)
	require.NoError(t, err)

	credited, err := c.WithCredit(dec("25.50"), now)
	require.NoError(t, err)
	assert.True(t, dec("25.50").Equal(credited.Credit()))
	assert.True(t, c.Credit().IsZero())

	_, err = c.WithCredit(dec("-1"), now)
	assert.Error(t, err)
}
