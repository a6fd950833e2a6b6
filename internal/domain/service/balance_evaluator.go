package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/internal/domain/valueobject"
)

const DefaultLookaheadDays = 5

// OverdueContract is one row of the aging report.
type OverdueContract struct {
	Contract      model.Contract
	OldestUnpaid  model.Invoice
	DaysLate      int
	OverdueAmount decimal.Decimal
	OverdueCount  int
}

// BalanceEvaluator folds invoices into balances and statuses. It is read-only;
// "today" is always passed in.
type BalanceEvaluator struct {
	lookaheadDays int
}

func NewBalanceEvaluator(lookaheadDays int) *BalanceEvaluator {
	if lookaheadDays < 0 {
		lookaheadDays = 0
	}
	return &BalanceEvaluator{lookaheadDays: lookaheadDays}
}

func (e *BalanceEvaluator) LookaheadDays() int { return e.lookaheadDays }

// Outstanding sums billed - paid over invoices whose period starts on or before asOf.
func (e *BalanceEvaluator) Outstanding(invoices []model.Invoice, asOf time.Time) decimal.Decimal {
	day := valueobject.DateOf(asOf)
	total := decimal.Zero
	for _, inv := range invoices {
		if inv.Period().Start().After(day) {
			continue
		}
		total = total.Add(inv.Remaining())
	}
	return total
}

// Billed sums billed amounts over invoices whose period starts on or before asOf.
func (e *BalanceEvaluator) Billed(invoices []model.Invoice, asOf time.Time) decimal.Decimal {
	day := valueobject.DateOf(asOf)
	total := decimal.Zero
	for _, inv := range invoices {
		if !inv.Period().Start().After(day) {
			total = total.Add(inv.Billed())
		}
	}
	return total
}

func (e *BalanceEvaluator) Status(inv model.Invoice, today time.Time) valueobject.InvoiceStatus {
	day := valueobject.DateOf(today)
	switch {
	case inv.Paid().GreaterThanOrEqual(inv.Billed()):
		return valueobject.InvoicePaid
	case inv.DueDate().Before(day):
		return valueobject.InvoiceOverdue
	case !inv.DueDate().After(day.AddDate(0, 0, e.lookaheadDays)):
		return valueobject.InvoiceDue
	default:
		return valueobject.InvoiceCurrent
	}
}

// Classify reports whether the contract has any OVERDUE invoice, with its
// oldest one and the aging figures.
func (e *BalanceEvaluator) Classify(c model.Contract, invoices []model.Invoice, today time.Time) (OverdueContract, bool) {
	sorted := append([]model.Invoice(nil), invoices...)
	model.SortInvoices(sorted)

	row := OverdueContract{Contract: c, OverdueAmount: decimal.Zero}
	for _, inv := range sorted {
		if e.Status(inv, today) != valueobject.InvoiceOverdue {
			continue
		}
		if row.OverdueCount == 0 {
			row.OldestUnpaid = inv
			row.DaysLate = valueobject.DaysBetween(inv.DueDate(), today)
		}
		row.OverdueCount++
		row.OverdueAmount = row.OverdueAmount.Add(inv.Remaining())
	}
	return row, row.OverdueCount > 0
}

// SortOverdue puts the most delinquent contracts first.
func SortOverdue(rows []OverdueContract) {
	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].DaysLate != rows[b].DaysLate {
			return rows[a].DaysLate > rows[b].DaysLate
		}
		return rows[a].Contract.ID().String() < rows[b].Contract.ID().String()
	})
}
