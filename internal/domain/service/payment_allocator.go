package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hennyhux/changsheng/internal/domain/model"
)

// AllocationResult is the outcome of spreading an amount over open invoices.
type AllocationResult struct {
	// Updated holds the invoices that received funds, with their new paid amounts.
	Updated     []model.Invoice
	Allocations []model.Allocation
	Allocated   decimal.Decimal
	Remaining   decimal.Decimal
}

// PaymentAllocator applies funds oldest open invoice first.
type PaymentAllocator struct{}

func NewPaymentAllocator() *PaymentAllocator {
	return &PaymentAllocator{}
}

// Allocate walks the open invoices by period start (ties by id) and gives each
// min(remaining funds, billed - paid) until the funds or the invoices run out.
// Closed invoices in the input are ignored. The input slice is not modified.
func (a *PaymentAllocator) Allocate(invoices []model.Invoice, amount decimal.Decimal) (AllocationResult, error) {
	if !amount.IsPositive() {
		return AllocationResult{}, fmt.Errorf("%w: amount %s must be greater than zero", model.ErrInvalidPayment, amount.String())
	}

	open := make([]model.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv.Open() {
			open = append(open, inv)
		}
	}
	model.SortInvoices(open)

	result := AllocationResult{Allocated: decimal.Zero, Remaining: amount}
	for _, inv := range open {
		if !result.Remaining.IsPositive() {
			break
		}
		share := decimal.Min(result.Remaining, inv.Remaining())
		applied, err := inv.ApplyPayment(share)
		if err != nil {
			return AllocationResult{}, err
		}
		result.Updated = append(result.Updated, applied)
		result.Allocations = append(result.Allocations, model.Allocation{
			InvoiceID:     inv.ID(),
			Amount:        share,
			BalanceBefore: inv.Remaining(),
			BalanceAfter:  applied.Remaining(),
		})
		result.Allocated = result.Allocated.Add(share)
		result.Remaining = result.Remaining.Sub(share)
	}
	return result, nil
}
