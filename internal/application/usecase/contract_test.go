package usecase_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/domain/model"
)

func TestCreateContract_DefaultsBillingDayToStart(t *testing.T) {
	e := newEngine(t, date(2024, 1, 31))

	c := e.openContract(t, date(2024, 1, 31), "95.50")

	assert.Equal(t, 28, c.BillingDay)
	assert.True(t, c.Active)
	assert.True(t, c.MonthlyRate.Equal(dec("95.50")))
	require.Len(t, c.Rates, 1)
}

func TestCreateContract_RejectsBadTerms(t *testing.T) {
	e := newEngine(t, date(2024, 1, 1))
	end := date(2023, 12, 1)

	_, err := e.create.Execute(context.Background(), dto.CreateContractRequest{
		CustomerID:  uuid.New(),
		MonthlyRate: dec("-1"),
		StartDate:   date(2024, 1, 1),
	})
	var invalid *model.InvalidContractError
	assert.ErrorAs(t, err, &invalid)

	_, err = e.create.Execute(context.Background(), dto.CreateContractRequest{
		CustomerID:  uuid.New(),
		MonthlyRate: dec("100"),
		StartDate:   date(2024, 1, 1),
		EndDate:     &end,
	})
	assert.ErrorAs(t, err, &invalid)
}

func TestCreateContract_TruckCannotBeDoubleBooked(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, date(2024, 1, 1))
	first := e.openContractFor(t, uuid.New(), "TX 4471", date(2024, 1, 1), "100")

	_, err := e.create.Execute(ctx, dto.CreateContractRequest{
		CustomerID:  uuid.New(),
		TruckPlate:  "tx4471",
		MonthlyRate: dec("100"),
		StartDate:   date(2024, 6, 1),
	})
	assert.ErrorIs(t, err, model.ErrTruckAlreadyContracted)

	_, err = e.status.Execute(ctx, dto.SetContractStatusRequest{ContractID: first.ID, EndDate: date(2024, 5, 31)})
	require.NoError(t, err)
	second := e.openContractFor(t, uuid.New(), "TX4471", date(2024, 6, 1), "120")

	// Reopening the first contract without an end date would overlap the second.
	_, err = e.status.Execute(ctx, dto.SetContractStatusRequest{ContractID: first.ID, Active: true})
	assert.ErrorIs(t, err, model.ErrTruckAlreadyContracted)
	assert.Equal(t, "TX4471", second.TruckPlate)
}

func TestUpdateContractRate_IsProspective(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, date(2024, 2, 15))
	c := e.openContract(t, date(2024, 1, 1), "100.00")
	e.generateThrough(t, c.ID, date(2024, 2, 15))

	updated, err := e.rate.Execute(ctx, dto.UpdateContractRateRequest{
		ContractID:    c.ID,
		MonthlyRate:   dec("120.00"),
		EffectiveFrom: date(2024, 3, 1),
	})
	require.NoError(t, err)
	assert.Len(t, updated.Rates, 2)

	e.generateThrough(t, c.ID, date(2024, 4, 10))

	billed := map[string]string{}
	for _, inv := range e.invoices(t, c.ID) {
		billed[inv.PeriodKey] = inv.Billed.StringFixed(2)
	}
	assert.Equal(t, map[string]string{
		"2024-01": "100.00",
		"2024-02": "100.00",
		"2024-03": "120.00",
		"2024-04": "120.00",
	}, billed)
}

func TestUpdateContractRate_RejectsOutOfOrderDates(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, date(2024, 1, 1))
	c := e.openContract(t, date(2024, 1, 1), "100.00")
	_, err := e.rate.Execute(ctx, dto.UpdateContractRateRequest{ContractID: c.ID, MonthlyRate: dec("110"), EffectiveFrom: date(2024, 5, 1)})
	require.NoError(t, err)

	_, err = e.rate.Execute(ctx, dto.UpdateContractRateRequest{ContractID: c.ID, MonthlyRate: dec("105"), EffectiveFrom: date(2024, 4, 1)})

	assert.ErrorIs(t, err, model.ErrInvalidRateChange)
}

func TestResetContractPayments(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, date(2024, 3, 1))
	c := e.openContract(t, date(2024, 1, 1), "100.00")
	e.generateThrough(t, c.ID, date(2024, 3, 1))
	_, err := e.pay.Execute(ctx, dto.RecordPaymentRequest{ContractID: c.ID, Amount: dec("120.00")})
	require.NoError(t, err)
	_, err = e.pay.Execute(ctx, dto.RecordPaymentRequest{ContractID: c.ID, Amount: dec("200.00")})
	var credit *model.OverpaymentCreditRecorded
	require.ErrorAs(t, err, &credit)

	resp, err := e.reset.Execute(ctx, dto.ResetContractPaymentsRequest{ContractID: c.ID})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.RemovedPayments)
	assert.True(t, resp.RemovedAmount.Equal(dec("320.00")))
	assert.True(t, resp.ClearedCredit.Equal(dec("20.00")))

	history, err := e.history.Execute(ctx, dto.PaymentHistoryRequest{ContractID: c.ID})
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Equal(t, map[string]string{"2024-01": "0.00", "2024-02": "0.00", "2024-03": "0.00"}, paidByPeriod(e.invoices(t, c.ID)))

	bal, err := e.outstanding.Execute(ctx, dto.OutstandingBalanceRequest{ContractID: c.ID})
	require.NoError(t, err)
	assert.True(t, bal.Outstanding.Equal(dec("300.00")))
	assert.True(t, bal.Credit.IsZero())
	assert.Equal(t, 1, e.metrics.resets)
}

func TestResetContractPayments_FailureRollsBack(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, date(2024, 1, 5), withStore(failOn("delete_payments")))
	c := e.openContract(t, date(2024, 1, 1), "100.00")
	e.generateThrough(t, c.ID, date(2024, 1, 5))
	_, err := e.pay.Execute(ctx, dto.RecordPaymentRequest{ContractID: c.ID, Amount: dec("60.00")})
	require.NoError(t, err)

	_, err = e.reset.Execute(ctx, dto.ResetContractPaymentsRequest{ContractID: c.ID})
	require.Error(t, err)

	history, err := e.history.Execute(ctx, dto.PaymentHistoryRequest{ContractID: c.ID})
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, map[string]string{"2024-01": "60.00"}, paidByPeriod(e.invoices(t, c.ID)))
}

func TestBackfillRate(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, date(2024, 3, 1))
	c := e.openContract(t, date(2024, 1, 1), "100.00")
	e.generateThrough(t, c.ID, date(2024, 3, 1))
	_, err := e.pay.Execute(ctx, dto.RecordPaymentRequest{ContractID: c.ID, Amount: dec("100.00")})
	require.NoError(t, err)
	_, err = e.rate.Execute(ctx, dto.UpdateContractRateRequest{ContractID: c.ID, MonthlyRate: dec("80.00"), EffectiveFrom: date(2024, 2, 1)})
	require.NoError(t, err)

	resp, err := e.backfill.Execute(ctx, dto.BackfillRateRequest{ContractID: c.ID, From: date(2024, 2, 1)})
	require.NoError(t, err)

	assert.Len(t, resp.Updated, 2)
	assert.True(t, resp.Delta.Equal(dec("-40.00")))
	assert.True(t, resp.CreditApplied.IsZero())

	bal, err := e.outstanding.Execute(ctx, dto.OutstandingBalanceRequest{ContractID: c.ID})
	require.NoError(t, err)
	assert.True(t, bal.Outstanding.Equal(dec("160.00")))
}

func TestBackfillRate_RefusesToDropBelowPaid(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, date(2024, 3, 1))
	c := e.openContract(t, date(2024, 1, 1), "100.00")
	e.generateThrough(t, c.ID, date(2024, 3, 1))
	_, err := e.pay.Execute(ctx, dto.RecordPaymentRequest{ContractID: c.ID, Amount: dec("200.00")})
	require.NoError(t, err)
	_, err = e.rate.Execute(ctx, dto.UpdateContractRateRequest{ContractID: c.ID, MonthlyRate: dec("80.00"), EffectiveFrom: date(2024, 2, 1)})
	require.NoError(t, err)

	_, err = e.backfill.Execute(ctx, dto.BackfillRateRequest{ContractID: c.ID, From: date(2024, 2, 1)})

	assert.ErrorIs(t, err, model.ErrBackfillConflict)
	for _, inv := range e.invoices(t, c.ID) {
		assert.True(t, inv.Billed.Equal(dec("100.00")), inv.PeriodKey)
	}
}

func TestBackfillRate_SpendsHeldCreditOnRaisedInvoices(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, date(2024, 3, 1))
	c := e.openContract(t, date(2024, 1, 1), "100.00")
	e.generateThrough(t, c.ID, date(2024, 3, 1))
	_, err := e.pay.Execute(ctx, dto.RecordPaymentRequest{ContractID: c.ID, Amount: dec("350.00")})
	var credit *model.OverpaymentCreditRecorded
	require.ErrorAs(t, err, &credit)
	_, err = e.rate.Execute(ctx, dto.UpdateContractRateRequest{ContractID: c.ID, MonthlyRate: dec("120.00"), EffectiveFrom: date(2024, 2, 1)})
	require.NoError(t, err)

	resp, err := e.backfill.Execute(ctx, dto.BackfillRateRequest{ContractID: c.ID, From: date(2024, 2, 1)})
	require.NoError(t, err)

	assert.True(t, resp.Delta.Equal(dec("40.00")))
	assert.True(t, resp.CreditApplied.Equal(dec("40.00")))
	for _, inv := range resp.Updated {
		assert.Equal(t, "PAID", inv.Status, inv.PeriodKey)
	}
	assert.Equal(t, map[string]string{"2024-01": "100.00", "2024-02": "120.00", "2024-03": "120.00"}, paidByPeriod(e.invoices(t, c.ID)))
	assert.Len(t, e.mem.CreditApplications(c.ID), 2)

	bal, err := e.outstanding.Execute(ctx, dto.OutstandingBalanceRequest{ContractID: c.ID})
	require.NoError(t, err)
	assert.True(t, bal.Outstanding.IsZero())
	assert.True(t, bal.Credit.Equal(dec("10.00")))
}
