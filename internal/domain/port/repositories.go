package port

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/pkg/events"
)

// LedgerReader is the read side of the ledger store.
type LedgerReader interface {
	// GetContract returns *model.ContractNotFoundError for unknown ids.
	GetContract(ctx context.Context, id uuid.UUID) (model.Contract, error)
	ListContracts(ctx context.Context) ([]model.Contract, error)
	ListContractsByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Contract, error)
	ListContractsByTruck(ctx context.Context, plate string) ([]model.Contract, error)
	// ListInvoices returns all invoices of a contract, oldest period first.
	ListInvoices(ctx context.Context, contractID uuid.UUID) ([]model.Invoice, error)
	// FindOpenInvoices returns invoices with paid < billed whose period starts on
	// or before asOf, oldest period first, ties by id. A zero asOf means no bound.
	FindOpenInvoices(ctx context.Context, contractID uuid.UUID, asOf time.Time) ([]model.Invoice, error)
	// ListPayments returns payments in chronological order.
	ListPayments(ctx context.Context, contractID uuid.UUID) ([]model.Payment, error)
}

// LedgerTx is a unit of work over the ledger. Everything written through it
// becomes visible together on commit or not at all.
type LedgerTx interface {
	LedgerReader
	// LockContract loads a contract and holds it against concurrent writers
	// until the unit of work ends.
	LockContract(ctx context.Context, id uuid.UUID) (model.Contract, error)
	// SaveContract inserts or updates a contract. Updates fail with
	// model.ErrConcurrentUpdate when the stored version moved on.
	SaveContract(ctx context.Context, c model.Contract) error
	AppendInvoice(ctx context.Context, inv model.Invoice) error
	AppendPayment(ctx context.Context, p model.Payment) error
	UpdateInvoicePaidAmount(ctx context.Context, invoiceID uuid.UUID, paid decimal.Decimal) error
	UpdateInvoiceBilledAmount(ctx context.Context, invoiceID uuid.UUID, billed decimal.Decimal) error
	AppendCreditApplication(ctx context.Context, app model.CreditApplication) error
	// DeletePayments removes every payment and credit application of a contract
	// and returns how many payments were removed.
	DeletePayments(ctx context.Context, contractID uuid.UUID) (int, error)
	AppendEvents(ctx context.Context, evts ...events.DomainEvent) error
}

// LedgerStore is the persistence port of the billing engine.
type LedgerStore interface {
	LedgerReader
	// WithinTx runs fn in a unit of work. A non-nil error from fn rolls back.
	WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error
	Ping(ctx context.Context) error
}

// Clock provides the current time. Evaluations take "today" from it unless the
// caller passes an explicit date.
type Clock interface {
	Now() time.Time
	Today() time.Time
}
