package model

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hennyhux/changsheng/internal/domain/valueobject"
)

// Invoice is the charge for one billing period of a contract. Billed is fixed
// at issue; paid only moves through allocation or a reset.
type Invoice struct {
	id         uuid.UUID
	contractID uuid.UUID
	period     valueobject.BillingPeriod
	dueDate    time.Time
	billed     decimal.Decimal
	paid       decimal.Decimal
	createdAt  time.Time
}

func NewInvoice(contractID uuid.UUID, period valueobject.BillingPeriod, dueDate time.Time, billed decimal.Decimal, now time.Time) (Invoice, error) {
	if contractID == uuid.Nil {
		return Invoice{}, fmt.Errorf("%w: contract is required", ErrInvalidInvoice)
	}
	if period.IsZero() {
		return Invoice{}, fmt.Errorf("%w: period is required", ErrInvalidInvoice)
	}
	if billed.IsNegative() || !isCents(billed) {
		return Invoice{}, fmt.Errorf("%w: billed amount %s", ErrInvalidInvoice, billed.String())
	}
	return Invoice{
		id:         uuid.Must(uuid.NewV7()),
		contractID: contractID,
		period:     period,
		dueDate:    valueobject.DateOf(dueDate),
		billed:     billed,
		paid:       decimal.Zero,
		createdAt:  now,
	}, nil
}

// ReconstructInvoice recreates an Invoice from persistence.
func ReconstructInvoice(
	id, contractID uuid.UUID,
	periodStart, dueDate time.Time,
	billed, paid decimal.Decimal,
	createdAt time.Time,
) Invoice {
	return Invoice{
		id:         id,
		contractID: contractID,
		period:     valueobject.PeriodStartingOn(periodStart),
		dueDate:    valueobject.DateOf(dueDate),
		billed:     billed,
		paid:       paid,
		createdAt:  createdAt,
	}
}

func (i Invoice) ID() uuid.UUID                     { return i.id }
func (i Invoice) ContractID() uuid.UUID             { return i.contractID }
func (i Invoice) Period() valueobject.BillingPeriod { return i.period }
func (i Invoice) PeriodKey() string                 { return i.period.Key() }
func (i Invoice) DueDate() time.Time                { return i.dueDate }
func (i Invoice) Billed() decimal.Decimal           { return i.billed }
func (i Invoice) Paid() decimal.Decimal             { return i.paid }
func (i Invoice) CreatedAt() time.Time              { return i.createdAt }

// Remaining is billed minus paid; never negative for a consistent invoice.
func (i Invoice) Remaining() decimal.Decimal { return i.billed.Sub(i.paid) }

// Open reports whether the invoice still accepts funds.
func (i Invoice) Open() bool { return i.paid.LessThan(i.billed) }

// ApplyPayment returns a copy with amount added to paid.
func (i Invoice) ApplyPayment(amount decimal.Decimal) (Invoice, error) {
	if !amount.IsPositive() {
		return Invoice{}, fmt.Errorf("%w: allocation %s must be positive", ErrInvalidPayment, amount.String())
	}
	if amount.GreaterThan(i.Remaining()) {
		return Invoice{}, fmt.Errorf("%w: allocation %s exceeds remaining %s on invoice %s",
			ErrInvalidPayment, amount.String(), i.Remaining().String(), i.id)
	}
	applied := i
	applied.paid = i.paid.Add(amount)
	return applied, nil
}

// ResetPaid zeroes the paid amount.
func (i Invoice) ResetPaid() Invoice {
	reset := i
	reset.paid = decimal.Zero
	return reset
}

// Rebill replaces the billed amount. It is only used by the explicit rate
// backfill and refuses to drop billed below what was already paid.
func (i Invoice) Rebill(billed decimal.Decimal) (Invoice, error) {
	if billed.IsNegative() || !isCents(billed) {
		return Invoice{}, fmt.Errorf("%w: billed amount %s", ErrInvalidInvoice, billed.String())
	}
	if i.paid.GreaterThan(billed) {
		return Invoice{}, fmt.Errorf("%w: invoice %s paid %s, new billed %s",
			ErrBackfillConflict, i.period.Key(), i.paid.StringFixed(2), billed.StringFixed(2))
	}
	rebilled := i
	rebilled.billed = billed
	return rebilled, nil
}

// SortInvoices orders invoices oldest period first, ties broken by id.
func SortInvoices(invoices []Invoice) {
	sort.SliceStable(invoices, func(a, b int) bool {
		return InvoiceLess(invoices[a], invoices[b])
	})
}

func InvoiceLess(a, b Invoice) bool {
	if !a.period.Start().Equal(b.period.Start()) {
		return a.period.Start().Before(b.period.Start())
	}
	return bytes.Compare(a.id[:], b.id[:]) < 0
}

// AnchorInvoice returns the earliest invoice, the one that fixed the contract's
// billing cadence.
func AnchorInvoice(invoices []Invoice) (Invoice, bool) {
	if len(invoices) == 0 {
		return Invoice{}, false
	}
	anchor := invoices[0]
	for _, inv := range invoices[1:] {
		if InvoiceLess(inv, anchor) {
			anchor = inv
		}
	}
	return anchor, true
}
