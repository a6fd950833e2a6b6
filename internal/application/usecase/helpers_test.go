package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/application/usecase"
	"github.com/hennyhux/changsheng/internal/domain/port"
	"github.com/hennyhux/changsheng/internal/domain/service"
	"github.com/hennyhux/changsheng/internal/domain/valueobject"
	"github.com/hennyhux/changsheng/internal/infrastructure/clock"
	"github.com/hennyhux/changsheng/internal/infrastructure/memory"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingMetrics counts what the use cases report.
type recordingMetrics struct {
	mu          sync.Mutex
	invoices    int
	payments    int
	credits     int
	resets      int
	storeErrors []string
}

func (m *recordingMetrics) InvoicesGenerated(count int, _ decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices += count
}

func (m *recordingMetrics) PaymentRecorded(string, decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments++
}

func (m *recordingMetrics) CreditRecorded(decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credits++
}

func (m *recordingMetrics) PaymentsReset(int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
}

func (m *recordingMetrics) StoreError(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeErrors = append(m.storeErrors, op)
}

type engine struct {
	store   port.LedgerStore
	mem     *memory.LedgerStore
	clock   *clock.Fixed
	metrics *recordingMetrics

	create      *usecase.CreateContract
	rate        *usecase.UpdateContractRate
	status      *usecase.SetContractStatus
	generate    *usecase.GenerateInvoices
	generateAll *usecase.GenerateAllInvoices
	listInv     *usecase.ListInvoices
	pay         *usecase.RecordPayment
	reset       *usecase.ResetContractPayments
	outstanding *usecase.OutstandingBalance
	overdue     *usecase.ListOverdueContracts
	history     *usecase.PaymentHistory
	statement   *usecase.ContractStatement
	customer    *usecase.CustomerLedger
	backfill    *usecase.BackfillRate
}

type engineOption func(*engineConfig)

type engineConfig struct {
	gapPolicy valueobject.GapPolicy
	store     func(*memory.LedgerStore) port.LedgerStore
}

func withGapPolicy(p valueobject.GapPolicy) engineOption {
	return func(c *engineConfig) { c.gapPolicy = p }
}

func withStore(wrap func(*memory.LedgerStore) port.LedgerStore) engineOption {
	return func(c *engineConfig) { c.store = wrap }
}

func newEngine(t *testing.T, now time.Time, opts ...engineOption) *engine {
	t.Helper()
	cfg := engineConfig{
		gapPolicy: valueobject.GapBackfill,
		store:     func(m *memory.LedgerStore) port.LedgerStore { return m },
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	mem := memory.NewLedgerStore()
	store := cfg.store(mem)
	clk := clock.NewFixed(now)
	metrics := &recordingMetrics{}
	logger := discardLogger()

	generator := service.NewInvoiceGenerator(valueobject.DefaultDueRule(), cfg.gapPolicy)
	allocator := service.NewPaymentAllocator()
	evaluator := service.NewBalanceEvaluator(service.DefaultLookaheadDays)
	generate := usecase.NewGenerateInvoices(store, generator, allocator, evaluator, clk, metrics, logger)

	return &engine{
		store:       store,
		mem:         mem,
		clock:       clk,
		metrics:     metrics,
		create:      usecase.NewCreateContract(store, clk, logger),
		rate:        usecase.NewUpdateContractRate(store, clk, logger),
		status:      usecase.NewSetContractStatus(store, clk, logger),
		generate:    generate,
		generateAll: usecase.NewGenerateAllInvoices(store, generate, clk, logger),
		listInv:     usecase.NewListInvoices(store, evaluator, clk),
		pay:         usecase.NewRecordPayment(store, allocator, clk, metrics, logger),
		reset:       usecase.NewResetContractPayments(store, clk, metrics, logger),
		outstanding: usecase.NewOutstandingBalance(store, evaluator, clk),
		overdue:     usecase.NewListOverdueContracts(store, evaluator, clk),
		history:     usecase.NewPaymentHistory(store),
		statement:   usecase.NewContractStatement(store, evaluator),
		customer:    usecase.NewCustomerLedger(store, evaluator, clk),
		backfill:    usecase.NewBackfillRate(store, allocator, evaluator, clk, logger),
	}
}

func (e *engine) openContract(t *testing.T, start time.Time, rate string) dto.ContractResponse {
	t.Helper()
	return e.openContractFor(t, uuid.New(), "", start, rate)
}

func (e *engine) openContractFor(t *testing.T, customerID uuid.UUID, plate string, start time.Time, rate string) dto.ContractResponse {
	t.Helper()
	c, err := e.create.Execute(context.Background(), dto.CreateContractRequest{
		CustomerID:   customerID,
		CustomerName: "Harbor Freight Lines",
		TruckPlate:   plate,
		MonthlyRate:  dec(rate),
		StartDate:    start,
	})
	require.NoError(t, err)
	return c
}

func (e *engine) generateThrough(t *testing.T, contractID uuid.UUID, asOf time.Time) dto.GenerateInvoicesResponse {
	t.Helper()
	resp, err := e.generate.Execute(context.Background(), dto.GenerateInvoicesRequest{ContractID: contractID, AsOf: asOf})
	require.NoError(t, err)
	return resp
}

func (e *engine) invoices(t *testing.T, contractID uuid.UUID) []dto.InvoiceResponse {
	t.Helper()
	invs, err := e.listInv.Execute(context.Background(), dto.ListInvoicesRequest{ContractID: contractID})
	require.NoError(t, err)
	return invs
}

func paidByPeriod(invs []dto.InvoiceResponse) map[string]string {
	out := make(map[string]string, len(invs))
	for _, inv := range invs {
		out[inv.PeriodKey] = inv.Paid.StringFixed(2)
	}
	return out
}
