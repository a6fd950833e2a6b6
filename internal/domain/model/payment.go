package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hennyhux/changsheng/internal/domain/valueobject"
)

const maxNoteLength = 500

// Allocation is the portion of a payment applied to one invoice.
type Allocation struct {
	InvoiceID     uuid.UUID
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
}

// Payment is an immutable receipt together with how it was split across invoices.
// Allocations plus Credit always equal Amount.
type Payment struct {
	id          uuid.UUID
	contractID  uuid.UUID
	amount      decimal.Decimal
	receivedOn  time.Time
	method      valueobject.PaymentMethod
	note        string
	allocations []Allocation
	credit      decimal.Decimal
	recordedAt  time.Time
}

func NewPayment(
	contractID uuid.UUID,
	amount decimal.Decimal,
	receivedOn time.Time,
	method valueobject.PaymentMethod,
	note string,
	allocations []Allocation,
	credit decimal.Decimal,
	now time.Time,
) (Payment, error) {
	if err := ValidatePaymentAmount(amount); err != nil {
		return Payment{}, err
	}
	if receivedOn.IsZero() {
		return Payment{}, fmt.Errorf("%w: received date is required", ErrInvalidPayment)
	}
	if _, err := valueobject.ParsePaymentMethod(string(method)); err != nil {
		return Payment{}, fmt.Errorf("%w: %v", ErrInvalidPayment, err)
	}
	note = strings.TrimSpace(note)
	if len(note) > maxNoteLength {
		return Payment{}, fmt.Errorf("%w: note longer than %d characters", ErrInvalidPayment, maxNoteLength)
	}
	if credit.IsNegative() {
		return Payment{}, fmt.Errorf("%w: credit portion is negative", ErrInvalidPayment)
	}
	allocated := decimal.Zero
	for _, a := range allocations {
		if !a.Amount.IsPositive() {
			return Payment{}, fmt.Errorf("%w: allocation to %s is not positive", ErrInvalidPayment, a.InvoiceID)
		}
		allocated = allocated.Add(a.Amount)
	}
	if !allocated.Add(credit).Equal(amount) {
		return Payment{}, fmt.Errorf("%w: allocations %s plus credit %s do not equal amount %s",
			ErrInvalidPayment, allocated.String(), credit.String(), amount.String())
	}

	return Payment{
		id:          uuid.Must(uuid.NewV7()),
		contractID:  contractID,
		amount:      amount,
		receivedOn:  valueobject.DateOf(receivedOn),
		method:      method,
		note:        note,
		allocations: append([]Allocation(nil), allocations...),
		credit:      credit,
		recordedAt:  now,
	}, nil
}

// ValidatePaymentAmount accepts positive whole-cent amounts.
func ValidatePaymentAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount %s must be greater than zero", ErrInvalidPayment, amount.String())
	}
	if !isCents(amount) {
		return fmt.Errorf("%w: amount %s has more than two decimal places", ErrInvalidPayment, amount.String())
	}
	return nil
}

// ReconstructPayment recreates a Payment from persistence.
func ReconstructPayment(
	id, contractID uuid.UUID,
	amount decimal.Decimal,
	receivedOn time.Time,
	method valueobject.PaymentMethod,
	note string,
	allocations []Allocation,
	credit decimal.Decimal,
	recordedAt time.Time,
) Payment {
	return Payment{
		id:          id,
		contractID:  contractID,
		amount:      amount,
		receivedOn:  valueobject.DateOf(receivedOn),
		method:      method,
		note:        note,
		allocations: allocations,
		credit:      credit,
		recordedAt:  recordedAt,
	}
}

func (p Payment) ID() uuid.UUID                     { return p.id }
func (p Payment) ContractID() uuid.UUID             { return p.contractID }
func (p Payment) Amount() decimal.Decimal           { return p.amount }
func (p Payment) ReceivedOn() time.Time             { return p.receivedOn }
func (p Payment) Method() valueobject.PaymentMethod { return p.method }
func (p Payment) Note() string                      { return p.note }
func (p Payment) Allocations() []Allocation         { return append([]Allocation(nil), p.allocations...) }
func (p Payment) Credit() decimal.Decimal           { return p.credit }
func (p Payment) RecordedAt() time.Time             { return p.recordedAt }

func (p Payment) Allocated() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// SortPayments orders payments chronologically by received date, then by
// recording time and id.
func SortPayments(payments []Payment) {
	sort.SliceStable(payments, func(a, b int) bool {
		pa, pb := payments[a], payments[b]
		if !pa.receivedOn.Equal(pb.receivedOn) {
			return pa.receivedOn.Before(pb.receivedOn)
		}
		if !pa.recordedAt.Equal(pb.recordedAt) {
			return pa.recordedAt.Before(pb.recordedAt)
		}
		return pa.id.String() < pb.id.String()
	})
}

// CreditApplication records held credit consumed by a newly generated invoice.
type CreditApplication struct {
	ID         uuid.UUID
	ContractID uuid.UUID
	InvoiceID  uuid.UUID
	Amount     decimal.Decimal
	AppliedAt  time.Time
}

func NewCreditApplication(contractID, invoiceID uuid.UUID, amount decimal.Decimal, at time.Time) CreditApplication {
	return CreditApplication{
		ID:         uuid.Must(uuid.NewV7()),
		ContractID: contractID,
		InvoiceID:  invoiceID,
		Amount:     amount,
		AppliedAt:  at,
	}
}
