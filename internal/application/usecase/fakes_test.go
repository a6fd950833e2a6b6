package usecase_test

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/internal/domain/port"
	"github.com/hennyhux/changsheng/internal/infrastructure/memory"
)

var errConnectionReset = errors.New("connection reset by peer")

// failingStore wraps the memory store and fails one kind of write inside
// units of work, the way a dropped database connection would.
type failingStore struct {
	*memory.LedgerStore
	op string
}

func failOn(op string) func(*memory.LedgerStore) port.LedgerStore {
	return func(m *memory.LedgerStore) port.LedgerStore {
		return &failingStore{LedgerStore: m, op: op}
	}
}

func (s *failingStore) WithinTx(ctx context.Context, fn func(tx port.LedgerTx) error) error {
	return s.LedgerStore.WithinTx(ctx, func(tx port.LedgerTx) error {
		return fn(&failingTx{LedgerTx: tx, op: s.op})
	})
}

type failingTx struct {
	port.LedgerTx
	op string
}

func (t *failingTx) fail(op string) error {
	if t.op == op {
		return model.NewStorageError(op, errConnectionReset)
	}
	return nil
}

func (t *failingTx) AppendInvoice(ctx context.Context, inv model.Invoice) error {
	if err := t.fail("append_invoice"); err != nil {
		return err
	}
	return t.LedgerTx.AppendInvoice(ctx, inv)
}

func (t *failingTx) UpdateInvoicePaidAmount(ctx context.Context, id uuid.UUID, paid decimal.Decimal) error {
	if err := t.fail("update_paid"); err != nil {
		return err
	}
	return t.LedgerTx.UpdateInvoicePaidAmount(ctx, id, paid)
}

func (t *failingTx) DeletePayments(ctx context.Context, contractID uuid.UUID) (int, error) {
	if err := t.fail("delete_payments"); err != nil {
		return 0, err
	}
	return t.LedgerTx.DeletePayments(ctx, contractID)
}
