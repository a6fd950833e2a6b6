package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/internal/domain/valueobject"
)

var now = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newContract(t *testing.T, start time.Time, rate string) model.Contract {
	t.Helper()
	c, err := model.NewContract(model.ContractParams{
		CustomerID:   uuid.New(),
		CustomerName: "Acme Freight",
		MonthlyRate:  dec(rate),
		StartDate:    start,
	}, now)
	require.NoError(t, err)
	return c
}

// monthlyInvoices builds unpaid first-of-month invoices, due at period end.
func monthlyInvoices(t *testing.T, contractID uuid.UUID, billed string, months ...time.Month) []model.Invoice {
	t.Helper()
	out := make([]model.Invoice, 0, len(months))
	for _, m := range months {
		p := valueobject.PeriodForMonth(1, 2024, m)
		inv, err := model.NewInvoice(contractID, p, p.End(), dec(billed), now)
		require.NoError(t, err)
		out = append(out, inv)
	}
	return out
}

func keys(invoices []model.Invoice) []string {
	out := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, inv.PeriodKey())
	}
	return out
}
