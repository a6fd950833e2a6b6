package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/pkg/testutil"
)

func TestContractRow_Contract(t *testing.T) {
	end := testutil.Date(2024, 12, 31)
	created := time.Date(2024, 1, 2, 8, 30, 0, 0, time.UTC)
	row := contractRow{
		id:           uuid.New(),
		customerID:   testutil.TestCustomerID1,
		customerName: "Ridgeway Transport",
		plate:        "TX4471",
		billingDay:   15,
		startDate:    testutil.Date(2024, 1, 15),
		endDate:      &end,
		active:       false,
		credit:       testutil.Amount("12.50"),
		version:      4,
		createdAt:    created,
		updatedAt:    created,
	}
	rates := []model.RateChange{
		model.NewRateChange(testutil.Date(2024, 1, 15), testutil.Amount("100.00")),
		model.NewRateChange(testutil.Date(2024, 6, 15), testutil.Amount("120.00")),
	}

	suspensions := []model.Suspension{model.NewSuspension(testutil.Date(2024, 8, 1), testutil.Date(2024, 9, 30))}

	c := row.contract(rates, suspensions)

	assert.Equal(t, row.id, c.ID())
	assert.Equal(t, 15, c.BillingDay().Int())
	assert.Equal(t, 4, c.Version())
	assert.False(t, c.Active())
	assert.True(t, c.Billable())
	assert.Equal(t, end, *c.EndDate())
	testutil.AssertAmount(t, "120.00", c.MonthlyRate())
	testutil.AssertAmount(t, "100.00", c.RateOn(testutil.Date(2024, 5, 20)))
	testutil.AssertAmount(t, "12.50", c.Credit())
	assert.Empty(t, c.DomainEvents())
	assert.Equal(t, suspensions, c.Suspensions())
}
