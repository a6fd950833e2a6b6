package usecase

import (
	"context"
	"fmt"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/domain/port"
	"github.com/hennyhux/changsheng/internal/domain/service"
)

// ListInvoices returns a contract's invoices with their status as of a day.
type ListInvoices struct {
	store     port.LedgerReader
	evaluator *service.BalanceEvaluator
	clock     port.Clock
}

func NewListInvoices(store port.LedgerReader, evaluator *service.BalanceEvaluator, clock port.Clock) *ListInvoices {
	return &ListInvoices{store: store, evaluator: evaluator, clock: clock}
}

func (uc *ListInvoices) Execute(ctx context.Context, req dto.ListInvoicesRequest) ([]dto.InvoiceResponse, error) {
	if _, err := uc.store.GetContract(ctx, req.ContractID); err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	invoices, err := uc.store.ListInvoices(ctx, req.ContractID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	today := dayOr(req.Today, uc.clock)
	out := make([]dto.InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toInvoiceResponse(inv, uc.evaluator.Status(inv, today)))
	}
	return out, nil
}
