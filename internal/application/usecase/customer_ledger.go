package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/domain/port"
	"github.com/hennyhux/changsheng/internal/domain/service"
)

// CustomerLedger rolls up every contract held by one customer.
type CustomerLedger struct {
	store     port.LedgerReader
	evaluator *service.BalanceEvaluator
	clock     port.Clock
}

func NewCustomerLedger(store port.LedgerReader, evaluator *service.BalanceEvaluator, clock port.Clock) *CustomerLedger {
	return &CustomerLedger{store: store, evaluator: evaluator, clock: clock}
}

func (uc *CustomerLedger) Execute(ctx context.Context, req dto.CustomerLedgerRequest) (dto.CustomerLedgerResponse, error) {
	contracts, err := uc.store.ListContractsByCustomer(ctx, req.CustomerID)
	if err != nil {
		return dto.CustomerLedgerResponse{}, fmt.Errorf("failed to list customer contracts: %w", err)
	}

	asOf := dayOr(req.AsOf, uc.clock)
	resp := dto.CustomerLedgerResponse{
		CustomerID:       req.CustomerID,
		AsOf:             asOf,
		Contracts:        make([]dto.CustomerContractLine, 0, len(contracts)),
		TotalBilled:      decimal.Zero,
		TotalOutstanding: decimal.Zero,
		TotalCredit:      decimal.Zero,
	}
	for _, c := range contracts {
		if resp.CustomerName == "" {
			resp.CustomerName = c.CustomerName()
		}
		invoices, err := uc.store.ListInvoices(ctx, c.ID())
		if err != nil {
			return dto.CustomerLedgerResponse{}, fmt.Errorf("failed to list invoices for contract %s: %w", c.ID(), err)
		}
		_, overdue := uc.evaluator.Classify(c, invoices, asOf)
		line := dto.CustomerContractLine{
			Contract:    toContractResponse(c),
			Billed:      uc.evaluator.Billed(invoices, asOf),
			Outstanding: uc.evaluator.Outstanding(invoices, asOf),
			Overdue:     overdue,
		}
		resp.Contracts = append(resp.Contracts, line)
		resp.TotalBilled = resp.TotalBilled.Add(line.Billed)
		resp.TotalOutstanding = resp.TotalOutstanding.Add(line.Outstanding)
		resp.TotalCredit = resp.TotalCredit.Add(c.Credit())
	}
	return resp, nil
}
