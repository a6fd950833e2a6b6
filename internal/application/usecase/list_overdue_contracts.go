package usecase

import (
	"context"
	"fmt"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/domain/port"
	"github.com/hennyhux/changsheng/internal/domain/service"
)

// ListOverdueContracts is the aging report: every contract with at least one
// OVERDUE invoice, longest overdue first.
type ListOverdueContracts struct {
	store     port.LedgerReader
	evaluator *service.BalanceEvaluator
	clock     port.Clock
}

func NewListOverdueContracts(store port.LedgerReader, evaluator *service.BalanceEvaluator, clock port.Clock) *ListOverdueContracts {
	return &ListOverdueContracts{store: store, evaluator: evaluator, clock: clock}
}

func (uc *ListOverdueContracts) Execute(ctx context.Context, req dto.ListOverdueContractsRequest) ([]dto.OverdueContractResponse, error) {
	contracts, err := uc.store.ListContracts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}

	today := dayOr(req.Today, uc.clock)
	var rows []service.OverdueContract
	for _, c := range contracts {
		invoices, err := uc.store.ListInvoices(ctx, c.ID())
		if err != nil {
			return nil, fmt.Errorf("failed to list invoices for contract %s: %w", c.ID(), err)
		}
		if row, ok := uc.evaluator.Classify(c, invoices, today); ok {
			rows = append(rows, row)
		}
	}
	service.SortOverdue(rows)

	out := make([]dto.OverdueContractResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.OverdueContractResponse{
			Contract:      toContractResponse(row.Contract),
			OldestUnpaid:  toInvoiceResponse(row.OldestUnpaid, uc.evaluator.Status(row.OldestUnpaid, today)),
			DaysLate:      row.DaysLate,
			OverdueAmount: row.OverdueAmount,
			OverdueCount:  row.OverdueCount,
		})
	}
	return out, nil
}
