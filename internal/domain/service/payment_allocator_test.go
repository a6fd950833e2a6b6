package service_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/internal/domain/service"
)

func TestPaymentAllocator_OldestFirst(t *testing.T) {
	contractID := uuid.New()
	invoices := monthlyInvoices(t, contractID, "100", time.March, time.January, time.February)

	result, err := service.NewPaymentAllocator().Allocate(invoices, dec("150"))
	require.NoError(t, err)

	require.Len(t, result.Updated, 2)
	assert.Equal(t, "2024-01", result.Updated[0].PeriodKey())
	assert.True(t, dec("100").Equal(result.Updated[0].Paid()))
	assert.Equal(t, "2024-02", result.Updated[1].PeriodKey())
	assert.True(t, dec("50").Equal(result.Updated[1].Paid()))
	assert.True(t, dec("150").Equal(result.Allocated))
	assert.True(t, result.Remaining.IsZero())

	require.Len(t, result.Allocations, 2)
	assert.True(t, dec("100").Equal(result.Allocations[1].BalanceBefore))
	assert.True(t, dec("50").Equal(result.Allocations[1].BalanceAfter))

	for _, inv := range invoices {
		assert.True(t, inv.Paid().IsZero(), "input invoices are not mutated")
	}
}

func TestPaymentAllocator_OverpaymentLeavesRemainder(t *testing.T) {
	invoices := monthlyInvoices(t, uuid.New(), "100", time.January)

	result, err := service.NewPaymentAllocator().Allocate(invoices, dec("130.25"))
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(result.Allocated))
	assert.True(t, dec("30.25").Equal(result.Remaining))
}

func TestPaymentAllocator_NoOpenInvoices(t *testing.T) {
	result, err := service.NewPaymentAllocator().Allocate(nil, dec("20"))
	require.NoError(t, err)
	assert.Empty(t, result.Allocations)
	assert.True(t, dec("20").Equal(result.Remaining))
}

func TestPaymentAllocator_SkipsPaidInvoices(t *testing.T) {
	invoices := monthlyInvoices(t, uuid.New(), "100", time.January, time.February)
	paidJan, err := invoices[0].ApplyPayment(dec("100"))
	require.NoError(t, err)
	partFeb, err := invoices[1].ApplyPayment(dec("30"))
	require.NoError(t, err)

	result, err := service.NewPaymentAllocator().Allocate([]model.Invoice{paidJan, partFeb}, dec("100"))
	require.NoError(t, err)
	require.Len(t, result.Allocations, 1)
	assert.Equal(t, partFeb.ID(), result.Allocations[0].InvoiceID)
	assert.True(t, dec("70").Equal(result.Allocations[0].Amount))
	assert.True(t, dec("30").Equal(result.Remaining))
}

func TestPaymentAllocator_RejectsNonPositive(t *testing.T) {
	_, err := service.NewPaymentAllocator().Allocate(nil, decimal.Zero)
	assert.ErrorIs(t, err, model.ErrInvalidPayment)
}

func TestPaymentAllocator_ConservationAndBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	allocator := service.NewPaymentAllocator()

	for trial := 0; trial < 50; trial++ {
		var invoices []model.Invoice
		for m := time.January; m <= time.December; m++ {
			billed := decimal.New(int64(rng.Intn(50000)), -2)
			invoices = append(invoices, monthlyInvoices(t, uuid.New(), billed.StringFixed(2), m)...)
		}

		totalPaid := decimal.Zero
		credit := decimal.Zero
		for p := 0; p < 8; p++ {
			amount := decimal.New(int64(rng.Intn(40000)+1), -2)
			result, err := allocator.Allocate(invoices, amount)
			require.NoError(t, err)

			byID := map[uuid.UUID]model.Invoice{}
			for _, u := range result.Updated {
				byID[u.ID()] = u
			}
			for i, inv := range invoices {
				if u, ok := byID[inv.ID()]; ok {
					invoices[i] = u
				}
			}

			assert.True(t, result.Allocated.Add(result.Remaining).Equal(amount))
			totalPaid = totalPaid.Add(amount)
			credit = credit.Add(result.Remaining)
		}

		sumPaid := decimal.Zero
		for _, inv := range invoices {
			assert.True(t, inv.Paid().LessThanOrEqual(inv.Billed()), "paid <= billed")
			sumPaid = sumPaid.Add(inv.Paid())
		}
		assert.True(t, sumPaid.Add(credit).Equal(totalPaid), "trial %d: money is conserved", trial)
	}
}
