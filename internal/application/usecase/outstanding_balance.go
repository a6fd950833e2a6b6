package usecase

import (
	"context"
	"fmt"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/domain/port"
	"github.com/hennyhux/changsheng/internal/domain/service"
)

// OutstandingBalance sums billed minus paid over the invoices whose period has
// started by the given date. Held credit is reported beside it, not netted.
type OutstandingBalance struct {
	store     port.LedgerReader
	evaluator *service.BalanceEvaluator
	clock     port.Clock
}

func NewOutstandingBalance(store port.LedgerReader, evaluator *service.BalanceEvaluator, clock port.Clock) *OutstandingBalance {
	return &OutstandingBalance{store: store, evaluator: evaluator, clock: clock}
}

func (uc *OutstandingBalance) Execute(ctx context.Context, req dto.OutstandingBalanceRequest) (dto.OutstandingBalanceResponse, error) {
	c, err := uc.store.GetContract(ctx, req.ContractID)
	if err != nil {
		return dto.OutstandingBalanceResponse{}, fmt.Errorf("failed to get contract: %w", err)
	}
	invoices, err := uc.store.ListInvoices(ctx, c.ID())
	if err != nil {
		return dto.OutstandingBalanceResponse{}, fmt.Errorf("failed to list invoices: %w", err)
	}

	asOf := dayOr(req.AsOf, uc.clock)
	return dto.OutstandingBalanceResponse{
		ContractID:  c.ID(),
		AsOf:        asOf,
		Outstanding: uc.evaluator.Outstanding(invoices, asOf),
		Credit:      c.Credit(),
	}, nil
}
