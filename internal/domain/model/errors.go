package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPayment         = errors.New("invalid payment")
	ErrInvalidInvoice         = errors.New("invalid invoice")
	ErrInvalidRateChange      = errors.New("invalid rate change")
	ErrInvoiceNotFound        = errors.New("invoice not found")
	ErrConcurrentUpdate       = errors.New("contract was modified concurrently")
	ErrTruckAlreadyContracted = errors.New("truck already has an active contract overlapping these dates")
	ErrBackfillConflict       = errors.New("invoice already paid beyond the backfilled amount")
	ErrInvalidStatusChange    = errors.New("invalid contract status change")
	ErrInvalidGapPolicy       = errors.New("invalid gap policy")
)

// InvalidContractError reports contract terms the engine cannot bill.
type InvalidContractError struct {
	ContractID uuid.UUID
	Reason     string
}

func (e *InvalidContractError) Error() string {
	if e.ContractID == uuid.Nil {
		return "invalid contract: " + e.Reason
	}
	return fmt.Sprintf("invalid contract %s: %s", e.ContractID, e.Reason)
}

type ContractNotFoundError struct {
	ContractID uuid.UUID
}

func (e *ContractNotFoundError) Error() string {
	return fmt.Sprintf("contract %s not found", e.ContractID)
}

// StorageError wraps a persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err unless it already carries a domain meaning.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var notFound *ContractNotFoundError
	var storage *StorageError
	if errors.As(err, &notFound) || errors.As(err, &storage) ||
		errors.Is(err, ErrConcurrentUpdate) || errors.Is(err, ErrTruckAlreadyContracted) ||
		errors.Is(err, ErrInvoiceNotFound) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// OverpaymentCreditRecorded is informational: the payment was recorded but part
// of it exceeded every open invoice and is held as contract credit.
type OverpaymentCreditRecorded struct {
	ContractID uuid.UUID
	PaymentID  uuid.UUID
	Credit     decimal.Decimal
	Balance    decimal.Decimal
}

func (e *OverpaymentCreditRecorded) Error() string {
	return fmt.Sprintf("payment %s left %s unallocated; contract %s credit is now %s",
		e.PaymentID, e.Credit.StringFixed(2), e.ContractID, e.Balance.StringFixed(2))
}

// PeriodGapError reports billing periods missing from the middle of a contract's
// invoice history.
type PeriodGapError struct {
	ContractID uuid.UUID
	Missing    []string
}

func (e *PeriodGapError) Error() string {
	return fmt.Sprintf("contract %s has uninvoiced periods before its latest invoice: %s",
		e.ContractID, strings.Join(e.Missing, ", "))
}
