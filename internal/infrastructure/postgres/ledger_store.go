package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/internal/domain/port"
	"github.com/hennyhux/changsheng/internal/domain/valueobject"
	"github.com/hennyhux/changsheng/pkg/events"
	pkgpostgres "github.com/hennyhux/changsheng/pkg/postgres"
)

var (
	_ port.LedgerStore = (*LedgerStore)(nil)
	_ port.LedgerTx    = (*ledgerTx)(nil)
)

// LedgerStore implements port.LedgerStore on PostgreSQL. Reads outside a unit
// of work go straight to the pool; units of work run in one transaction each.
type LedgerStore struct {
	queries
	pool *pgxpool.Pool
}

func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{queries: queries{db: pool}, pool: pool}
}

func (s *LedgerStore) WithinTx(ctx context.Context, fn func(tx port.LedgerTx) error) error {
	var fnErr error
	err := pkgpostgres.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		fnErr = fn(&ledgerTx{queries: queries{db: tx}})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return model.NewStorageError("commit", err)
	}
	return nil
}

func (s *LedgerStore) Ping(ctx context.Context) error {
	return pkgpostgres.HealthCheck(ctx, s.pool)
}

const contractColumns = `
	id, customer_id, customer_name, truck_plate, billing_day,
	start_date, end_date, active, credit, version, created_at, updated_at`

const invoiceColumns = `id, contract_id, period_start, due_date, billed, paid, created_at`

// queries holds the read side shared by the pool and by transactions.
type queries struct {
	db pkgpostgres.Querier
}

func (q queries) GetContract(ctx context.Context, id uuid.UUID) (model.Contract, error) {
	return q.contractByID(ctx, id, false)
}

func (q queries) contractByID(ctx context.Context, id uuid.UUID, lock bool) (model.Contract, error) {
	query := `SELECT` + contractColumns + ` FROM contracts WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	row, err := scanContractRow(q.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Contract{}, &model.ContractNotFoundError{ContractID: id}
	}
	if err != nil {
		return model.Contract{}, model.NewStorageError("get contract", err)
	}
	rates, err := q.ratesFor(ctx, []uuid.UUID{id})
	if err != nil {
		return model.Contract{}, err
	}
	suspensions, err := q.suspensionsFor(ctx, []uuid.UUID{id})
	if err != nil {
		return model.Contract{}, err
	}
	return row.contract(rates[id], suspensions[id]), nil
}

func (q queries) ListContracts(ctx context.Context) ([]model.Contract, error) {
	return q.listContracts(ctx, `SELECT`+contractColumns+` FROM contracts ORDER BY created_at, id`)
}

func (q queries) ListContractsByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Contract, error) {
	return q.listContracts(ctx, `SELECT`+contractColumns+` FROM contracts WHERE customer_id = $1 ORDER BY created_at, id`, customerID)
}

func (q queries) ListContractsByTruck(ctx context.Context, plate string) ([]model.Contract, error) {
	return q.listContracts(ctx, `SELECT`+contractColumns+` FROM contracts WHERE truck_plate = $1 ORDER BY created_at, id`,
		model.NormalizePlate(plate))
}

func (q queries) listContracts(ctx context.Context, query string, args ...any) ([]model.Contract, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, model.NewStorageError("list contracts", err)
	}
	defer rows.Close()

	var scanned []contractRow
	for rows.Next() {
		row, err := scanContractRow(rows)
		if err != nil {
			return nil, model.NewStorageError("scan contract", err)
		}
		scanned = append(scanned, row)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("list contracts", err)
	}
	if len(scanned) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(scanned))
	for _, row := range scanned {
		ids = append(ids, row.id)
	}
	rates, err := q.ratesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	suspensions, err := q.suspensionsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	contracts := make([]model.Contract, 0, len(scanned))
	for _, row := range scanned {
		contracts = append(contracts, row.contract(rates[row.id], suspensions[row.id]))
	}
	return contracts, nil
}

func (q queries) ratesFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]model.RateChange, error) {
	const query = `
		SELECT contract_id, effective_from, monthly_rate
		FROM contract_rates
		WHERE contract_id = ANY($1)
		ORDER BY contract_id, effective_from`

	rows, err := q.db.Query(ctx, query, ids)
	if err != nil {
		return nil, model.NewStorageError("list rates", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]model.RateChange, len(ids))
	for rows.Next() {
		var (
			contractID uuid.UUID
			from       time.Time
			rate       decimal.Decimal
		)
		if err := rows.Scan(&contractID, &from, &rate); err != nil {
			return nil, model.NewStorageError("scan rate", err)
		}
		out[contractID] = append(out[contractID], model.NewRateChange(from, rate))
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("list rates", err)
	}
	return out, nil
}

func (q queries) suspensionsFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]model.Suspension, error) {
	const query = `
		SELECT contract_id, suspended_from, suspended_to
		FROM contract_suspensions
		WHERE contract_id = ANY($1)
		ORDER BY contract_id, suspended_from`

	rows, err := q.db.Query(ctx, query, ids)
	if err != nil {
		return nil, model.NewStorageError("list suspensions", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]model.Suspension)
	for rows.Next() {
		var (
			contractID uuid.UUID
			from, to   time.Time
		)
		if err := rows.Scan(&contractID, &from, &to); err != nil {
			return nil, model.NewStorageError("scan suspension", err)
		}
		out[contractID] = append(out[contractID], model.NewSuspension(from, to))
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("list suspensions", err)
	}
	return out, nil
}

func (q queries) ListInvoices(ctx context.Context, contractID uuid.UUID) ([]model.Invoice, error) {
	return q.listInvoices(ctx, `SELECT `+invoiceColumns+`
		FROM invoices WHERE contract_id = $1
		ORDER BY period_start, id`, contractID)
}

func (q queries) FindOpenInvoices(ctx context.Context, contractID uuid.UUID, asOf time.Time) ([]model.Invoice, error) {
	if asOf.IsZero() {
		return q.listInvoices(ctx, `SELECT `+invoiceColumns+`
			FROM invoices WHERE contract_id = $1 AND paid < billed
			ORDER BY period_start, id`, contractID)
	}
	return q.listInvoices(ctx, `SELECT `+invoiceColumns+`
		FROM invoices WHERE contract_id = $1 AND paid < billed AND period_start <= $2
		ORDER BY period_start, id`, contractID, valueobject.DateOf(asOf))
}

func (q queries) listInvoices(ctx context.Context, query string, args ...any) ([]model.Invoice, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, model.NewStorageError("list invoices", err)
	}
	defer rows.Close()

	var invoices []model.Invoice
	for rows.Next() {
		var (
			id, contractID       uuid.UUID
			periodStart, dueDate time.Time
			billed, paid         decimal.Decimal
			createdAt            time.Time
		)
		if err := rows.Scan(&id, &contractID, &periodStart, &dueDate, &billed, &paid, &createdAt); err != nil {
			return nil, model.NewStorageError("scan invoice", err)
		}
		invoices = append(invoices, model.ReconstructInvoice(id, contractID, periodStart, dueDate, billed, paid, createdAt))
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("list invoices", err)
	}
	return invoices, nil
}

func (q queries) ListPayments(ctx context.Context, contractID uuid.UUID) ([]model.Payment, error) {
	const paymentsSQL = `
		SELECT id, amount, received_on, method, note, credit, recorded_at
		FROM payments
		WHERE contract_id = $1
		ORDER BY received_on, recorded_at, id`
	const allocationsSQL = `
		SELECT a.payment_id, a.invoice_id, a.amount, a.balance_before, a.balance_after
		FROM payment_allocations a
		JOIN payments p ON p.id = a.payment_id
		WHERE p.contract_id = $1
		ORDER BY a.payment_id, a.position`

	allocations, err := q.allocationsFor(ctx, allocationsSQL, contractID)
	if err != nil {
		return nil, err
	}

	rows, err := q.db.Query(ctx, paymentsSQL, contractID)
	if err != nil {
		return nil, model.NewStorageError("list payments", err)
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		var (
			id             uuid.UUID
			amount, credit decimal.Decimal
			receivedOn     time.Time
			method, note   string
			recordedAt     time.Time
		)
		if err := rows.Scan(&id, &amount, &receivedOn, &method, &note, &credit, &recordedAt); err != nil {
			return nil, model.NewStorageError("scan payment", err)
		}
		payments = append(payments, model.ReconstructPayment(
			id, contractID, amount, receivedOn, valueobject.PaymentMethod(method), note,
			allocations[id], credit, recordedAt,
		))
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("list payments", err)
	}
	model.SortPayments(payments)
	return payments, nil
}

func (q queries) allocationsFor(ctx context.Context, query string, contractID uuid.UUID) (map[uuid.UUID][]model.Allocation, error) {
	rows, err := q.db.Query(ctx, query, contractID)
	if err != nil {
		return nil, model.NewStorageError("list allocations", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]model.Allocation)
	for rows.Next() {
		var (
			paymentID uuid.UUID
			a         model.Allocation
		)
		if err := rows.Scan(&paymentID, &a.InvoiceID, &a.Amount, &a.BalanceBefore, &a.BalanceAfter); err != nil {
			return nil, model.NewStorageError("scan allocation", err)
		}
		out[paymentID] = append(out[paymentID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("list allocations", err)
	}
	return out, nil
}

// ledgerTx is one transaction's view of the ledger.
type ledgerTx struct {
	queries
}

func (t *ledgerTx) LockContract(ctx context.Context, id uuid.UUID) (model.Contract, error) {
	return t.contractByID(ctx, id, true)
}

// SaveContract upserts with optimistic locking: an update only lands when the
// stored version still matches the one the caller read, and bumps it.
func (t *ledgerTx) SaveContract(ctx context.Context, c model.Contract) error {
	const upsertSQL = `
		INSERT INTO contracts (` + contractColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			customer_name = EXCLUDED.customer_name,
			truck_plate = EXCLUDED.truck_plate,
			end_date = EXCLUDED.end_date,
			active = EXCLUDED.active,
			credit = EXCLUDED.credit,
			updated_at = EXCLUDED.updated_at,
			version = contracts.version + 1
		WHERE contracts.version = EXCLUDED.version`

	tag, err := t.db.Exec(ctx, upsertSQL,
		c.ID(),
		c.CustomerID(),
		c.CustomerName(),
		c.TruckPlate(),
		c.BillingDay().Int(),
		c.StartDate(),
		c.EndDate(),
		c.Active(),
		c.Credit(),
		c.Version(),
		c.CreatedAt(),
		c.UpdatedAt(),
	)
	if err != nil {
		if pkgpostgres.IsExclusionViolation(err) {
			return fmt.Errorf("%w: plate %s", model.ErrTruckAlreadyContracted, c.TruckPlate())
		}
		return model.NewStorageError("save contract", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrConcurrentUpdate
	}

	const rateSQL = `
		INSERT INTO contract_rates (contract_id, effective_from, monthly_rate)
		VALUES ($1, $2, $3)
		ON CONFLICT (contract_id, effective_from) DO NOTHING`
	for _, r := range c.Rates() {
		if _, err := t.db.Exec(ctx, rateSQL, c.ID(), r.EffectiveFrom(), r.MonthlyRate()); err != nil {
			return model.NewStorageError("save rate", err)
		}
	}

	const suspensionSQL = `
		INSERT INTO contract_suspensions (contract_id, suspended_from, suspended_to)
		VALUES ($1, $2, $3)
		ON CONFLICT (contract_id, suspended_from) DO NOTHING`
	for _, sp := range c.Suspensions() {
		if _, err := t.db.Exec(ctx, suspensionSQL, c.ID(), sp.From(), sp.To()); err != nil {
			return model.NewStorageError("save suspension", err)
		}
	}
	return nil
}

func (t *ledgerTx) AppendInvoice(ctx context.Context, inv model.Invoice) error {
	const insertSQL = `
		INSERT INTO invoices (id, contract_id, period_key, period_start, period_end, due_date, billed, paid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := t.db.Exec(ctx, insertSQL,
		inv.ID(),
		inv.ContractID(),
		inv.PeriodKey(),
		inv.Period().Start(),
		inv.Period().End(),
		inv.DueDate(),
		inv.Billed(),
		inv.Paid(),
		inv.CreatedAt(),
	)
	if err != nil {
		return model.NewStorageError("append invoice", err)
	}
	return nil
}

func (t *ledgerTx) AppendPayment(ctx context.Context, p model.Payment) error {
	const paymentSQL = `
		INSERT INTO payments (id, contract_id, amount, received_on, method, note, credit, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	const allocationSQL = `
		INSERT INTO payment_allocations (payment_id, position, invoice_id, amount, balance_before, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := t.db.Exec(ctx, paymentSQL,
		p.ID(), p.ContractID(), p.Amount(), p.ReceivedOn(), p.Method().String(), p.Note(), p.Credit(), p.RecordedAt(),
	); err != nil {
		return model.NewStorageError("append payment", err)
	}
	for i, a := range p.Allocations() {
		if _, err := t.db.Exec(ctx, allocationSQL,
			p.ID(), i, a.InvoiceID, a.Amount, a.BalanceBefore, a.BalanceAfter,
		); err != nil {
			return model.NewStorageError("append allocation", err)
		}
	}
	return nil
}

func (t *ledgerTx) UpdateInvoicePaidAmount(ctx context.Context, invoiceID uuid.UUID, paid decimal.Decimal) error {
	return t.updateInvoice(ctx, "update invoice paid", `UPDATE invoices SET paid = $2 WHERE id = $1`, invoiceID, paid)
}

func (t *ledgerTx) UpdateInvoiceBilledAmount(ctx context.Context, invoiceID uuid.UUID, billed decimal.Decimal) error {
	return t.updateInvoice(ctx, "update invoice billed", `UPDATE invoices SET billed = $2 WHERE id = $1`, invoiceID, billed)
}

func (t *ledgerTx) updateInvoice(ctx context.Context, op, query string, invoiceID uuid.UUID, amount decimal.Decimal) error {
	tag, err := t.db.Exec(ctx, query, invoiceID, amount)
	if err != nil {
		if pkgpostgres.IsCheckViolation(err) {
			return fmt.Errorf("%w: %s", model.ErrInvalidInvoice, pkgpostgres.ConstraintName(err))
		}
		return model.NewStorageError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", model.ErrInvoiceNotFound, invoiceID)
	}
	return nil
}

func (t *ledgerTx) AppendCreditApplication(ctx context.Context, app model.CreditApplication) error {
	const insertSQL = `
		INSERT INTO credit_applications (id, contract_id, invoice_id, amount, applied_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := t.db.Exec(ctx, insertSQL, app.ID, app.ContractID, app.InvoiceID, app.Amount, app.AppliedAt); err != nil {
		return model.NewStorageError("append credit application", err)
	}
	return nil
}

func (t *ledgerTx) DeletePayments(ctx context.Context, contractID uuid.UUID) (int, error) {
	if _, err := t.db.Exec(ctx, `DELETE FROM credit_applications WHERE contract_id = $1`, contractID); err != nil {
		return 0, model.NewStorageError("delete credit applications", err)
	}
	tag, err := t.db.Exec(ctx, `DELETE FROM payments WHERE contract_id = $1`, contractID)
	if err != nil {
		return 0, model.NewStorageError("delete payments", err)
	}
	return int(tag.RowsAffected()), nil
}

// AppendEvents writes events to the outbox in the caller's transaction.
func (t *ledgerTx) AppendEvents(ctx context.Context, evts ...events.DomainEvent) error {
	const insertSQL = `
		INSERT INTO outbox (id, aggregate_id, aggregate_type, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, evt := range evts {
		entry := events.NewOutboxEntry(evt)
		if _, err := t.db.Exec(ctx, insertSQL,
			entry.ID, entry.AggregateID, entry.AggregateType, entry.EventType, entry.Payload, entry.CreatedAt,
		); err != nil {
			return model.NewStorageError("insert outbox event", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

type contractRow struct {
	id, customerID       uuid.UUID
	customerName, plate  string
	billingDay           int
	startDate            time.Time
	endDate              *time.Time
	active               bool
	credit               decimal.Decimal
	version              int
	createdAt, updatedAt time.Time
}

func scanContractRow(row rowScanner) (contractRow, error) {
	var r contractRow
	err := row.Scan(
		&r.id, &r.customerID, &r.customerName, &r.plate, &r.billingDay,
		&r.startDate, &r.endDate, &r.active, &r.credit, &r.version, &r.createdAt, &r.updatedAt,
	)
	return r, err
}

func (r contractRow) contract(rates []model.RateChange, suspensions []model.Suspension) model.Contract {
	return model.ReconstructContract(
		r.id, r.customerID, r.customerName, r.plate, r.billingDay,
		r.startDate, r.endDate, r.active, rates, suspensions, r.credit, r.version,
		r.createdAt, r.updatedAt,
	)
}
