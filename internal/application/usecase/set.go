package usecase

import (
	"log/slog"

	"github.com/hennyhux/changsheng/internal/domain/port"
	"github.com/hennyhux/changsheng/internal/domain/service"
)

// Dependencies are the collaborators shared by every billing use case.
type Dependencies struct {
	Store     port.LedgerStore
	Generator *service.InvoiceGenerator
	Allocator *service.PaymentAllocator
	Evaluator *service.BalanceEvaluator
	Clock     port.Clock
	Metrics   port.LedgerMetrics
	Logger    *slog.Logger
}

// Set holds one instance of each billing use case over a single store.
type Set struct {
	CreateContract        *CreateContract
	GetContract           *GetContract
	ListContracts         *ListContracts
	UpdateContractRate    *UpdateContractRate
	SetContractStatus     *SetContractStatus
	GenerateInvoices      *GenerateInvoices
	GenerateAllInvoices   *GenerateAllInvoices
	RecordPayment         *RecordPayment
	ResetContractPayments *ResetContractPayments
	OutstandingBalance    *OutstandingBalance
	ListOverdueContracts  *ListOverdueContracts
	PaymentHistory        *PaymentHistory
	ListInvoices          *ListInvoices
	ContractStatement     *ContractStatement
	CustomerLedger        *CustomerLedger
	BackfillRate          *BackfillRate
}

func NewSet(d Dependencies) *Set {
	if d.Metrics == nil {
		d.Metrics = port.NopMetrics{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	generate := NewGenerateInvoices(d.Store, d.Generator, d.Allocator, d.Evaluator, d.Clock, d.Metrics, d.Logger)

	return &Set{
		CreateContract:        NewCreateContract(d.Store, d.Clock, d.Logger),
		GetContract:           NewGetContract(d.Store),
		ListContracts:         NewListContracts(d.Store),
		UpdateContractRate:    NewUpdateContractRate(d.Store, d.Clock, d.Logger),
		SetContractStatus:     NewSetContractStatus(d.Store, d.Clock, d.Logger),
		GenerateInvoices:      generate,
		GenerateAllInvoices:   NewGenerateAllInvoices(d.Store, generate, d.Clock, d.Logger),
		RecordPayment:         NewRecordPayment(d.Store, d.Allocator, d.Clock, d.Metrics, d.Logger),
		ResetContractPayments: NewResetContractPayments(d.Store, d.Clock, d.Metrics, d.Logger),
		OutstandingBalance:    NewOutstandingBalance(d.Store, d.Evaluator, d.Clock),
		ListOverdueContracts:  NewListOverdueContracts(d.Store, d.Evaluator, d.Clock),
		PaymentHistory:        NewPaymentHistory(d.Store),
		ListInvoices:          NewListInvoices(d.Store, d.Evaluator, d.Clock),
		ContractStatement:     NewContractStatement(d.Store, d.Evaluator),
		CustomerLedger:        NewCustomerLedger(d.Store, d.Evaluator, d.Clock),
		BackfillRate:          NewBackfillRate(d.Store, d.Allocator, d.Evaluator, d.Clock, d.Logger),
	}
}
