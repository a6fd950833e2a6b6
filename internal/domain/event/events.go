package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hennyhux/changsheng/pkg/events"
)

const AggregateTypeContract = "Contract"

const (
	TypeContractCreated       = "billing.contract.created"
	TypeContractRateChanged   = "billing.contract.rate_changed"
	TypeContractStatusChanged = "billing.contract.status_changed"
	TypeInvoicesGenerated     = "billing.invoices.generated"
	TypePaymentRecorded       = "billing.payment.recorded"
	TypeCreditRecorded        = "billing.credit.recorded"
	TypeCreditApplied         = "billing.credit.applied"
	TypePaymentsReset         = "billing.payments.reset"
	TypeRateBackfilled        = "billing.rate.backfilled"
)

func newBase(eventType string, contractID uuid.UUID, data any, at time.Time) events.BaseEvent {
	payload, _ := json.Marshal(data)
	return events.NewBaseEventAt(eventType, contractID, AggregateTypeContract, payload, at)
}

// ContractCreated is emitted when a new contract is opened.
type ContractCreated struct {
	events.BaseEvent
	Data ContractCreatedData
}

type ContractCreatedData struct {
	ContractID  uuid.UUID       `json:"contract_id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	TruckPlate  string          `json:"truck_plate,omitempty"`
	MonthlyRate decimal.Decimal `json:"monthly_rate"`
	StartDate   string          `json:"start_date"`
	BillingDay  int             `json:"billing_day"`
}

func NewContractCreated(d ContractCreatedData, at time.Time) ContractCreated {
	return ContractCreated{BaseEvent: newBase(TypeContractCreated, d.ContractID, d, at), Data: d}
}

// ContractRateChanged is emitted when a rate change is scheduled.
type ContractRateChanged struct {
	events.BaseEvent
	Data ContractRateChangedData
}

type ContractRateChangedData struct {
	ContractID    uuid.UUID       `json:"contract_id"`
	MonthlyRate   decimal.Decimal `json:"monthly_rate"`
	EffectiveFrom string          `json:"effective_from"`
}

func NewContractRateChanged(d ContractRateChangedData, at time.Time) ContractRateChanged {
	return ContractRateChanged{BaseEvent: newBase(TypeContractRateChanged, d.ContractID, d, at), Data: d}
}

// ContractStatusChanged is emitted on deactivation and reactivation.
type ContractStatusChanged struct {
	events.BaseEvent
	Data ContractStatusChangedData
}

type ContractStatusChangedData struct {
	ContractID    uuid.UUID `json:"contract_id"`
	Active        bool      `json:"active"`
	EndDate       string    `json:"end_date,omitempty"`
	ResumeOn      string    `json:"resume_on,omitempty"`
	SuspendedFrom string    `json:"suspended_from,omitempty"`
	SuspendedTo   string    `json:"suspended_to,omitempty"`
}

func NewContractStatusChanged(d ContractStatusChangedData, at time.Time) ContractStatusChanged {
	return ContractStatusChanged{BaseEvent: newBase(TypeContractStatusChanged, d.ContractID, d, at), Data: d}
}

type InvoicesGenerated struct {
	events.BaseEvent
	Data InvoicesGeneratedData
}

type InvoicesGeneratedData struct {
	ContractID  uuid.UUID       `json:"contract_id"`
	AsOf        string          `json:"as_of"`
	PeriodKeys  []string        `json:"period_keys"`
	TotalBilled decimal.Decimal `json:"total_billed"`
}

func NewInvoicesGenerated(d InvoicesGeneratedData, at time.Time) InvoicesGenerated {
	return InvoicesGenerated{BaseEvent: newBase(TypeInvoicesGenerated, d.ContractID, d, at), Data: d}
}

type PaymentRecorded struct {
	events.BaseEvent
	Data PaymentRecordedData
}

type PaymentRecordedData struct {
	ContractID  uuid.UUID           `json:"contract_id"`
	PaymentID   uuid.UUID           `json:"payment_id"`
	Amount      decimal.Decimal     `json:"amount"`
	ReceivedOn  string              `json:"received_on"`
	Method      string              `json:"method"`
	Allocations []AllocationPayload `json:"allocations"`
	Credit      decimal.Decimal     `json:"credit"`
}

type AllocationPayload struct {
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
}

func NewPaymentRecorded(d PaymentRecordedData, at time.Time) PaymentRecorded {
	return PaymentRecorded{BaseEvent: newBase(TypePaymentRecorded, d.ContractID, d, at), Data: d}
}

// CreditRecorded is emitted when a payment leaves funds no open invoice can absorb.
type CreditRecorded struct {
	events.BaseEvent
	Data CreditRecordedData
}

type CreditRecordedData struct {
	ContractID uuid.UUID       `json:"contract_id"`
	PaymentID  uuid.UUID       `json:"payment_id"`
	Amount     decimal.Decimal `json:"amount"`
	Balance    decimal.Decimal `json:"balance"`
}

func NewCreditRecorded(d CreditRecordedData, at time.Time) CreditRecorded {
	return CreditRecorded{BaseEvent: newBase(TypeCreditRecorded, d.ContractID, d, at), Data: d}
}

// CreditApplied is emitted when held credit pays down a newly generated invoice.
type CreditApplied struct {
	events.BaseEvent
	Data CreditAppliedData
}

type CreditAppliedData struct {
	ContractID uuid.UUID       `json:"contract_id"`
	InvoiceID  uuid.UUID       `json:"invoice_id"`
	Amount     decimal.Decimal `json:"amount"`
	Balance    decimal.Decimal `json:"balance"`
}

func NewCreditApplied(d CreditAppliedData, at time.Time) CreditApplied {
	return CreditApplied{BaseEvent: newBase(TypeCreditApplied, d.ContractID, d, at), Data: d}
}

type PaymentsReset struct {
	events.BaseEvent
	Data PaymentsResetData
}

type PaymentsResetData struct {
	ContractID      uuid.UUID       `json:"contract_id"`
	RemovedPayments int             `json:"removed_payments"`
	RemovedAmount   decimal.Decimal `json:"removed_amount"`
	ClearedCredit   decimal.Decimal `json:"cleared_credit"`
}

func NewPaymentsReset(d PaymentsResetData, at time.Time) PaymentsReset {
	return PaymentsReset{BaseEvent: newBase(TypePaymentsReset, d.ContractID, d, at), Data: d}
}

type RateBackfilled struct {
	events.BaseEvent
	Data RateBackfilledData
}

type RateBackfilledData struct {
	ContractID uuid.UUID       `json:"contract_id"`
	From       string          `json:"from"`
	Invoices   int             `json:"invoices"`
	Delta      decimal.Decimal `json:"delta"`
}

func NewRateBackfilled(d RateBackfilledData, at time.Time) RateBackfilled {
	return RateBackfilled{BaseEvent: newBase(TypeRateBackfilled, d.ContractID, d, at), Data: d}
}
