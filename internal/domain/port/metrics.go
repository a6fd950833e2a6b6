package port

import "github.com/shopspring/decimal"

// LedgerMetrics receives counts of committed ledger mutations.
type LedgerMetrics interface {
	InvoicesGenerated(count int, billed decimal.Decimal)
	PaymentRecorded(method string, amount decimal.Decimal)
	CreditRecorded(amount decimal.Decimal)
	PaymentsReset(removed int)
	StoreError(op string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) InvoicesGenerated(int, decimal.Decimal)  {}
func (NopMetrics) PaymentRecorded(string, decimal.Decimal) {}
func (NopMetrics) CreditRecorded(decimal.Decimal)          {}
func (NopMetrics) PaymentsReset(int)                       {}
func (NopMetrics) StoreError(string)                       {}
