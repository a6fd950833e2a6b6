// Package memory holds an in-process ledger store. The use case, CLI and gRPC
// tests run against it in place of postgres.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/internal/domain/port"
	"github.com/hennyhux/changsheng/pkg/events"
)

var (
	_ port.LedgerStore        = (*LedgerStore)(nil)
	_ port.LedgerTx           = (*ledgerTx)(nil)
	_ events.OutboxRepository = (*LedgerStore)(nil)
)

// LedgerStore keeps the whole ledger in maps. Units of work run one at a time
// against a copy of the state, which replaces the live state only on success.
type LedgerStore struct {
	mu    sync.RWMutex
	state *ledgerState
}

type ledgerState struct {
	contracts     map[uuid.UUID]model.Contract
	invoices      map[uuid.UUID][]model.Invoice
	invoiceOwner  map[uuid.UUID]uuid.UUID
	payments      map[uuid.UUID][]model.Payment
	creditApplied map[uuid.UUID][]model.CreditApplication
	outbox        []events.OutboxEntry
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{state: &ledgerState{
		contracts:     make(map[uuid.UUID]model.Contract),
		invoices:      make(map[uuid.UUID][]model.Invoice),
		invoiceOwner:  make(map[uuid.UUID]uuid.UUID),
		payments:      make(map[uuid.UUID][]model.Payment),
		creditApplied: make(map[uuid.UUID][]model.CreditApplication),
	}}
}

// clone copies the maps and slices. The stored values are immutable, so a
// shallow copy of each slice is enough.
func (s *ledgerState) clone() *ledgerState {
	c := &ledgerState{
		contracts:     make(map[uuid.UUID]model.Contract, len(s.contracts)),
		invoices:      make(map[uuid.UUID][]model.Invoice, len(s.invoices)),
		invoiceOwner:  make(map[uuid.UUID]uuid.UUID, len(s.invoiceOwner)),
		payments:      make(map[uuid.UUID][]model.Payment, len(s.payments)),
		creditApplied: make(map[uuid.UUID][]model.CreditApplication, len(s.creditApplied)),
		outbox:        append([]events.OutboxEntry(nil), s.outbox...),
	}
	for k, v := range s.contracts {
		c.contracts[k] = v
	}
	for k, v := range s.invoices {
		c.invoices[k] = append([]model.Invoice(nil), v...)
	}
	for k, v := range s.invoiceOwner {
		c.invoiceOwner[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = append([]model.Payment(nil), v...)
	}
	for k, v := range s.creditApplied {
		c.creditApplied[k] = append([]model.CreditApplication(nil), v...)
	}
	return c
}

func (s *LedgerStore) WithinTx(ctx context.Context, fn func(tx port.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &ledgerTx{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *LedgerStore) Ping(context.Context) error { return nil }

func (s *LedgerStore) read() *ledgerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *LedgerStore) GetContract(_ context.Context, id uuid.UUID) (model.Contract, error) {
	return s.read().contract(id)
}

func (s *LedgerStore) ListContracts(context.Context) ([]model.Contract, error) {
	return s.read().listContracts(func(model.Contract) bool { return true }), nil
}

func (s *LedgerStore) ListContractsByCustomer(_ context.Context, customerID uuid.UUID) ([]model.Contract, error) {
	return s.read().listContracts(func(c model.Contract) bool { return c.CustomerID() == customerID }), nil
}

func (s *LedgerStore) ListContractsByTruck(_ context.Context, plate string) ([]model.Contract, error) {
	plate = model.NormalizePlate(plate)
	return s.read().listContracts(func(c model.Contract) bool { return c.TruckPlate() == plate }), nil
}

func (s *LedgerStore) ListInvoices(_ context.Context, contractID uuid.UUID) ([]model.Invoice, error) {
	return s.read().listInvoices(contractID), nil
}

func (s *LedgerStore) FindOpenInvoices(_ context.Context, contractID uuid.UUID, asOf time.Time) ([]model.Invoice, error) {
	return s.read().openInvoices(contractID, asOf), nil
}

func (s *LedgerStore) ListPayments(_ context.Context, contractID uuid.UUID) ([]model.Payment, error) {
	return s.read().listPayments(contractID), nil
}

// FetchUnpublished returns outbox entries not yet relayed, oldest first.
func (s *LedgerStore) FetchUnpublished(_ context.Context, batchSize int) ([]events.OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []events.OutboxEntry
	for _, e := range s.state.outbox {
		if e.Published() {
			continue
		}
		out = append(out, e)
		if batchSize > 0 && len(out) == batchSize {
			break
		}
	}
	return out, nil
}

func (s *LedgerStore) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	marked := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		marked[id] = true
	}
	outbox := append([]events.OutboxEntry(nil), s.state.outbox...)
	for i := range outbox {
		if marked[outbox[i].ID] && !outbox[i].Published() {
			published := at
			outbox[i].PublishedAt = &published
		}
	}
	next := *s.state
	next.outbox = outbox
	s.state = &next
	return nil
}

// Outbox returns every outbox entry written so far.
func (s *LedgerStore) Outbox() []events.OutboxEntry {
	return append([]events.OutboxEntry(nil), s.read().outbox...)
}

// CreditApplications returns the held credit consumed by a contract's invoices.
func (s *LedgerStore) CreditApplications(contractID uuid.UUID) []model.CreditApplication {
	return append([]model.CreditApplication(nil), s.read().creditApplied[contractID]...)
}

type ledgerTx struct {
	state *ledgerState
}

func (t *ledgerTx) GetContract(_ context.Context, id uuid.UUID) (model.Contract, error) {
	return t.state.contract(id)
}

func (t *ledgerTx) LockContract(_ context.Context, id uuid.UUID) (model.Contract, error) {
	return t.state.contract(id)
}

func (t *ledgerTx) ListContracts(context.Context) ([]model.Contract, error) {
	return t.state.listContracts(func(model.Contract) bool { return true }), nil
}

func (t *ledgerTx) ListContractsByCustomer(_ context.Context, customerID uuid.UUID) ([]model.Contract, error) {
	return t.state.listContracts(func(c model.Contract) bool { return c.CustomerID() == customerID }), nil
}

func (t *ledgerTx) ListContractsByTruck(_ context.Context, plate string) ([]model.Contract, error) {
	plate = model.NormalizePlate(plate)
	return t.state.listContracts(func(c model.Contract) bool { return c.TruckPlate() == plate }), nil
}

func (t *ledgerTx) ListInvoices(_ context.Context, contractID uuid.UUID) ([]model.Invoice, error) {
	return t.state.listInvoices(contractID), nil
}

func (t *ledgerTx) FindOpenInvoices(_ context.Context, contractID uuid.UUID, asOf time.Time) ([]model.Invoice, error) {
	return t.state.openInvoices(contractID, asOf), nil
}

func (t *ledgerTx) ListPayments(_ context.Context, contractID uuid.UUID) ([]model.Payment, error) {
	return t.state.listPayments(contractID), nil
}

func (t *ledgerTx) SaveContract(_ context.Context, c model.Contract) error {
	version := c.Version()
	if stored, ok := t.state.contracts[c.ID()]; ok {
		if stored.Version() != c.Version() {
			return model.ErrConcurrentUpdate
		}
		version++
	}
	t.state.contracts[c.ID()] = model.ReconstructContract(
		c.ID(), c.CustomerID(), c.CustomerName(), c.TruckPlate(), c.BillingDay().Int(),
		c.StartDate(), c.EndDate(), c.Active(), c.Rates(), c.Suspensions(), c.Credit(), version,
		c.CreatedAt(), c.UpdatedAt(),
	)
	return nil
}

func (t *ledgerTx) AppendInvoice(_ context.Context, inv model.Invoice) error {
	if _, ok := t.state.contracts[inv.ContractID()]; !ok {
		return &model.ContractNotFoundError{ContractID: inv.ContractID()}
	}
	for _, existing := range t.state.invoices[inv.ContractID()] {
		if existing.PeriodKey() == inv.PeriodKey() {
			return model.NewStorageError("append invoice",
				fmt.Errorf("contract %s already has an invoice for %s", inv.ContractID(), inv.PeriodKey()))
		}
	}
	t.state.invoices[inv.ContractID()] = append(t.state.invoices[inv.ContractID()], inv)
	t.state.invoiceOwner[inv.ID()] = inv.ContractID()
	return nil
}

func (t *ledgerTx) AppendPayment(_ context.Context, p model.Payment) error {
	if _, ok := t.state.contracts[p.ContractID()]; !ok {
		return &model.ContractNotFoundError{ContractID: p.ContractID()}
	}
	t.state.payments[p.ContractID()] = append(t.state.payments[p.ContractID()], p)
	return nil
}

func (t *ledgerTx) UpdateInvoicePaidAmount(_ context.Context, invoiceID uuid.UUID, paid decimal.Decimal) error {
	return t.replaceInvoice(invoiceID, func(inv model.Invoice) (model.Invoice, error) {
		if paid.IsNegative() || paid.GreaterThan(inv.Billed()) {
			return model.Invoice{}, fmt.Errorf("%w: paid %s outside 0..%s", model.ErrInvalidInvoice, paid.String(), inv.Billed().String())
		}
		return model.ReconstructInvoice(inv.ID(), inv.ContractID(), inv.Period().Start(), inv.DueDate(),
			inv.Billed(), paid, inv.CreatedAt()), nil
	})
}

func (t *ledgerTx) UpdateInvoiceBilledAmount(_ context.Context, invoiceID uuid.UUID, billed decimal.Decimal) error {
	return t.replaceInvoice(invoiceID, func(inv model.Invoice) (model.Invoice, error) {
		return inv.Rebill(billed)
	})
}

func (t *ledgerTx) replaceInvoice(invoiceID uuid.UUID, fn func(model.Invoice) (model.Invoice, error)) error {
	contractID, ok := t.state.invoiceOwner[invoiceID]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrInvoiceNotFound, invoiceID)
	}
	invoices := t.state.invoices[contractID]
	for i, inv := range invoices {
		if inv.ID() != invoiceID {
			continue
		}
		updated, err := fn(inv)
		if err != nil {
			return err
		}
		invoices[i] = updated
		return nil
	}
	return fmt.Errorf("%w: %s", model.ErrInvoiceNotFound, invoiceID)
}

func (t *ledgerTx) AppendCreditApplication(_ context.Context, app model.CreditApplication) error {
	if _, ok := t.state.invoiceOwner[app.InvoiceID]; !ok {
		return fmt.Errorf("%w: %s", model.ErrInvoiceNotFound, app.InvoiceID)
	}
	t.state.creditApplied[app.ContractID] = append(t.state.creditApplied[app.ContractID], app)
	return nil
}

func (t *ledgerTx) DeletePayments(_ context.Context, contractID uuid.UUID) (int, error) {
	removed := len(t.state.payments[contractID])
	delete(t.state.payments, contractID)
	delete(t.state.creditApplied, contractID)
	return removed, nil
}

func (t *ledgerTx) AppendEvents(_ context.Context, evts ...events.DomainEvent) error {
	for _, e := range evts {
		t.state.outbox = append(t.state.outbox, events.NewOutboxEntry(e))
	}
	return nil
}

func (s *ledgerState) contract(id uuid.UUID) (model.Contract, error) {
	c, ok := s.contracts[id]
	if !ok {
		return model.Contract{}, &model.ContractNotFoundError{ContractID: id}
	}
	return c, nil
}

func (s *ledgerState) listContracts(keep func(model.Contract) bool) []model.Contract {
	var out []model.Contract
	for _, c := range s.contracts {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt().Equal(out[b].CreatedAt()) {
			return out[a].CreatedAt().Before(out[b].CreatedAt())
		}
		return out[a].ID().String() < out[b].ID().String()
	})
	return out
}

func (s *ledgerState) listInvoices(contractID uuid.UUID) []model.Invoice {
	out := append([]model.Invoice(nil), s.invoices[contractID]...)
	model.SortInvoices(out)
	return out
}

func (s *ledgerState) openInvoices(contractID uuid.UUID, asOf time.Time) []model.Invoice {
	var out []model.Invoice
	for _, inv := range s.invoices[contractID] {
		if !inv.Open() {
			continue
		}
		if !asOf.IsZero() && inv.Period().Start().After(asOf) {
			continue
		}
		out = append(out, inv)
	}
	model.SortInvoices(out)
	return out
}

func (s *ledgerState) listPayments(contractID uuid.UUID) []model.Payment {
	out := append([]model.Payment(nil), s.payments[contractID]...)
	model.SortPayments(out)
	return out
}
