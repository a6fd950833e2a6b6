package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateContractRequest is the input DTO for opening a contract.
type CreateContractRequest struct {
	StartDate    time.Time
	EndDate      *time.Time
	CustomerName string
	TruckPlate   string
	MonthlyRate  decimal.Decimal
	BillingDay   int
	CustomerID   uuid.UUID
}

type RateChangeDTO struct {
	EffectiveFrom time.Time
	MonthlyRate   decimal.Decimal
}

// ContractResponse is the output DTO for a contract.
type ContractResponse struct {
	StartDate    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	EndDate      *time.Time
	CustomerName string
	TruckPlate   string
	MonthlyRate  decimal.Decimal
	Credit       decimal.Decimal
	Rates        []RateChangeDTO
	Suspensions  []SuspensionDTO
	BillingDay   int
	Version      int
	Active       bool
	ID           uuid.UUID
	CustomerID   uuid.UUID
}

// SuspensionDTO is an inclusive stretch of days the contract was stopped.
type SuspensionDTO struct {
	From time.Time
	To   time.Time
}

type GetContractRequest struct {
	ContractID uuid.UUID
}

type ListContractsRequest struct {
	// CustomerID narrows the list when set.
	CustomerID uuid.UUID
}

type UpdateContractRateRequest struct {
	EffectiveFrom time.Time
	MonthlyRate   decimal.Decimal
	ContractID    uuid.UUID
}

type SetContractStatusRequest struct {
	// EndDate is required when deactivating.
	EndDate time.Time
	// ResumeOn defaults to today when reactivating.
	ResumeOn   time.Time
	Active     bool
	ContractID uuid.UUID
}

// InvoiceResponse is the output DTO for an invoice with its derived status.
type InvoiceResponse struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	DueDate     time.Time
	PeriodKey   string
	Status      string
	Billed      decimal.Decimal
	Paid        decimal.Decimal
	Remaining   decimal.Decimal
	ID          uuid.UUID
	ContractID  uuid.UUID
}

type GenerateInvoicesRequest struct {
	// AsOf defaults to today.
	AsOf time.Time
	// GapPolicy overrides the configured policy for this run when set.
	GapPolicy  string
	ContractID uuid.UUID
}

type GenerateInvoicesResponse struct {
	AsOf          time.Time
	Anchor        *InvoiceResponse
	Created       []InvoiceResponse
	CreditApplied decimal.Decimal
	ContractID    uuid.UUID
}

type GenerateAllInvoicesRequest struct {
	AsOf time.Time
}

type ContractFailure struct {
	Error      string
	ContractID uuid.UUID
}

type GenerateAllInvoicesResponse struct {
	AsOf      time.Time
	Failures  []ContractFailure
	Contracts int
	Created   int
}

type ListInvoicesRequest struct {
	Today      time.Time
	ContractID uuid.UUID
}

type RecordPaymentRequest struct {
	// ReceivedOn defaults to today.
	ReceivedOn time.Time
	Method     string
	Note       string
	Amount     decimal.Decimal
	ContractID uuid.UUID
}

type AllocationDTO struct {
	InvoiceID     uuid.UUID
	PeriodKey     string
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
}

// PaymentResponse is the output DTO for a payment and its allocation split.
type PaymentResponse struct {
	ReceivedOn  time.Time
	RecordedAt  time.Time
	Method      string
	Note        string
	Amount      decimal.Decimal
	Credit      decimal.Decimal
	Allocations []AllocationDTO
	ID          uuid.UUID
	ContractID  uuid.UUID
}

type ResetContractPaymentsRequest struct {
	ContractID uuid.UUID
}

type ResetContractPaymentsResponse struct {
	RemovedAmount   decimal.Decimal
	ClearedCredit   decimal.Decimal
	RemovedPayments int
	ContractID      uuid.UUID
}

type OutstandingBalanceRequest struct {
	// AsOf defaults to today.
	AsOf       time.Time
	ContractID uuid.UUID
}

type OutstandingBalanceResponse struct {
	AsOf        time.Time
	Outstanding decimal.Decimal
	Credit      decimal.Decimal
	ContractID  uuid.UUID
}

type ListOverdueContractsRequest struct {
	// Today defaults to the clock.
	Today time.Time
}

type OverdueContractResponse struct {
	Contract      ContractResponse
	OldestUnpaid  InvoiceResponse
	OverdueAmount decimal.Decimal
	DaysLate      int
	OverdueCount  int
}

type PaymentHistoryRequest struct {
	ContractID uuid.UUID
}

type ContractStatementRequest struct {
	Year       int
	Month      time.Month
	ContractID uuid.UUID
}

// ContractStatementResponse summarizes one billing period of a contract.
type ContractStatementResponse struct {
	PeriodStart     time.Time
	PeriodEnd       time.Time
	Invoice         *InvoiceResponse
	Contract        ContractResponse
	PreviousBalance decimal.Decimal
	Expected        decimal.Decimal
	PaidInPeriod    decimal.Decimal
	EndingBalance   decimal.Decimal
	Credit          decimal.Decimal
	Payments        []PaymentResponse
}

type CustomerLedgerRequest struct {
	AsOf       time.Time
	CustomerID uuid.UUID
}

type CustomerContractLine struct {
	Contract    ContractResponse
	Billed      decimal.Decimal
	Outstanding decimal.Decimal
	Overdue     bool
}

// CustomerLedgerResponse groups a customer's contracts with their totals.
type CustomerLedgerResponse struct {
	AsOf             time.Time
	CustomerName     string
	Contracts        []CustomerContractLine
	TotalBilled      decimal.Decimal
	TotalOutstanding decimal.Decimal
	TotalCredit      decimal.Decimal
	CustomerID       uuid.UUID
}

type BackfillRateRequest struct {
	From       time.Time
	ContractID uuid.UUID
}

type BackfillRateResponse struct {
	Updated []InvoiceResponse
	Delta   decimal.Decimal
	// CreditApplied is the held credit spent on invoices the backfill raised.
	CreditApplied decimal.Decimal
	ContractID    uuid.UUID
}
