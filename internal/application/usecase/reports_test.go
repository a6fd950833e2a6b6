package usecase_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hennyhux/changsheng/internal/application/dto"
)

// A contract billed on the 11th has its first period end, and fall due, on
// 2024-01-10.
func TestInvoiceStatus_RelativeToToday(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, date(2023, 12, 20))
	c := e.openContract(t, date(2023, 12, 11), "100.00")
	created := e.generateThrough(t, c.ID, date(2023, 12, 20)).Created
	require.Len(t, created, 1)
	require.Equal(t, date(2024, 1, 10), created[0].DueDate)

	early, err := e.listInv.Execute(ctx, dto.ListInvoicesRequest{ContractID: c.ID, Today: date(2023, 12, 20)})
	require.NoError(t, err)
	assert.Contains(t, []string{"DUE", "CURRENT"}, early[0].Status)

	soon, err := e.listInv.Execute(ctx, dto.ListInvoicesRequest{ContractID: c.ID, Today: date(2024, 1, 7)})
	require.NoError(t, err)
	assert.Equal(t, "DUE", soon[0].Status)

	late, err := e.listInv.Execute(ctx, dto.ListInvoicesRequest{ContractID: c.ID, Today: date(2024, 2, 1)})
	require.NoError(t, err)
	assert.Equal(t, "OVERDUE", late[0].Status)
}

func TestListOverdueContracts(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, date(2024, 2, 1))
	late := e.openContract(t, date(2023, 12, 11), "100.00")
	later := e.openContract(t, date(2023, 11, 1), "75.00")
	paidUp := e.openContract(t, date(2023, 12, 11), "100.00")
	e.generateThrough(t, late.ID, date(2023, 12, 20))
	e.generateThrough(t, later.ID, date(2023, 11, 5))
	e.generateThrough(t, paidUp.ID, date(2023, 12, 20))
	_, err := e.pay.Execute(ctx, dto.RecordPaymentRequest{ContractID: paidUp.ID, Amount: dec("100.00")})
	require.NoError(t, err)

	rows, err := e.overdue.Execute(ctx, dto.ListOverdueContractsRequest{Today: date(2024, 2, 1)})
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, later.ID, rows[0].Contract.ID)
	assert.Equal(t, 63, rows[0].DaysLate)
	assert.Equal(t, late.ID, rows[1].Contract.ID)
	assert.Equal(t, 22, rows[1].DaysLate)
	assert.Equal(t, "2023-12", rows[1].OldestUnpaid.PeriodKey)
	assert.True(t, rows[1].OverdueAmount.Equal(dec("100.00")))
	assert.Equal(t, 1, rows[1].OverdueCount)
}

func TestOutstandingBalance_IgnoresFuturePeriods(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, date(2024, 3, 1))
	c := e.openContract(t, date(2024, 1, 1), "100.00")
	e.generateThrough(t, c.ID, date(2024, 3, 1))

	mid, err := e.outstanding.Execute(ctx, dto.OutstandingBalanceRequest{ContractID: c.ID, AsOf: date(2024, 1, 31)})
	require.NoError(t, err)
	assert.True(t, mid.Outstanding.Equal(dec("100.00")))

	// Nothing has been generated for April yet; the balance does not invent it.
	after, err := e.outstanding.Execute(ctx, dto.OutstandingBalanceRequest{ContractID: c.ID, AsOf: date(2024, 4, 30)})
	require.NoError(t, err)
	assert.True(t, after.Outstanding.Equal(dec("300.00")))
	assert.Len(t, e.invoices(t, c.ID), 3)
}

func TestContractStatement(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, date(2024, 3, 10))
	c := e.openContract(t, date(2024, 1, 1), "100.00")
	e.generateThrough(t, c.ID, date(2024, 3, 10))
	_, err := e.pay.Execute(ctx, dto.RecordPaymentRequest{ContractID: c.ID, Amount: dec("150.00"), ReceivedOn: date(2024, 2, 5)})
	require.NoError(t, err)

	st, err := e.statement.Execute(ctx, dto.ContractStatementRequest{ContractID: c.ID, Year: 2024, Month: 2})
	require.NoError(t, err)

	assert.Equal(t, date(2024, 2, 1), st.PeriodStart)
	assert.Equal(t, date(2024, 2, 29), st.PeriodEnd)
	require.NotNil(t, st.Invoice)
	assert.Equal(t, "2024-02", st.Invoice.PeriodKey)
	assert.True(t, st.PreviousBalance.IsZero())
	assert.True(t, st.Expected.Equal(dec("100.00")))
	assert.True(t, st.PaidInPeriod.Equal(dec("150.00")))
	assert.True(t, st.EndingBalance.Equal(dec("50.00")))
	assert.Len(t, st.Payments, 1)

	empty, err := e.statement.Execute(ctx, dto.ContractStatementRequest{ContractID: c.ID, Year: 2024, Month: 7})
	require.NoError(t, err)
	assert.Nil(t, empty.Invoice)
	assert.True(t, empty.Expected.IsZero())
}

func TestCustomerLedger(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, date(2024, 3, 1))
	customer := uuid.New()
	a := e.openContractFor(t, customer, "TRK-1", date(2024, 1, 1), "100.00")
	b := e.openContractFor(t, customer, "TRK-2", date(2024, 2, 1), "50.00")
	e.openContract(t, date(2024, 1, 1), "999.00")
	e.generateThrough(t, a.ID, date(2024, 3, 1))
	e.generateThrough(t, b.ID, date(2024, 3, 1))
	_, err := e.pay.Execute(ctx, dto.RecordPaymentRequest{ContractID: a.ID, Amount: dec("120.00")})
	require.NoError(t, err)

	ledger, err := e.customer.Execute(ctx, dto.CustomerLedgerRequest{CustomerID: customer})
	require.NoError(t, err)

	assert.Equal(t, "Harbor Freight Lines", ledger.CustomerName)
	assert.Len(t, ledger.Contracts, 2)
	assert.True(t, ledger.TotalBilled.Equal(dec("400.00")))
	assert.True(t, ledger.TotalOutstanding.Equal(dec("280.00")))
	assert.True(t, ledger.TotalCredit.IsZero())
}
