package valueobject

import (
	"fmt"
	"strings"
)

// GapPolicy decides what invoice generation does with periods missing from the
// middle of a contract's invoice history.
type GapPolicy string

const (
	// GapBackfill generates every missing period.
	GapBackfill GapPolicy = "backfill"
	// GapSkip only generates periods after the latest existing invoice.
	GapSkip GapPolicy = "skip"
	// GapStrict refuses to generate while a hole exists.
	GapStrict GapPolicy = "strict"
)

func ParseGapPolicy(s string) (GapPolicy, error) {
	switch p := GapPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case GapBackfill, GapSkip, GapStrict:
		return p, nil
	default:
		return "", fmt.Errorf("invalid gap policy %q", s)
	}
}

func (p GapPolicy) String() string { return string(p) }

// PaymentMethod is how a payment was received.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCheck    PaymentMethod = "check"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentOther    PaymentMethod = "other"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case PaymentCash, PaymentCheck, PaymentTransfer, PaymentOther:
		return m, nil
	case "":
		return PaymentOther, nil
	default:
		return "", fmt.Errorf("invalid payment method %q", s)
	}
}

func (m PaymentMethod) String() string { return string(m) }

// InvoiceStatus is derived from paid, billed, due date and today. It is never stored.
type InvoiceStatus string

const (
	InvoicePaid    InvoiceStatus = "PAID"
	InvoiceOverdue InvoiceStatus = "OVERDUE"
	InvoiceDue     InvoiceStatus = "DUE"
	InvoiceCurrent InvoiceStatus = "CURRENT"
)

func (s InvoiceStatus) String() string { return string(s) }
