package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/internal/domain/port"
	"github.com/hennyhux/changsheng/internal/domain/service"
	"github.com/hennyhux/changsheng/internal/domain/valueobject"
)

// ContractStatement summarizes the billing period that starts in a given
// month: the balance carried in, what the period billed, what was received
// during it and the balance carried out.
type ContractStatement struct {
	store     port.LedgerReader
	evaluator *service.BalanceEvaluator
}

func NewContractStatement(store port.LedgerReader, evaluator *service.BalanceEvaluator) *ContractStatement {
	return &ContractStatement{store: store, evaluator: evaluator}
}

func (uc *ContractStatement) Execute(ctx context.Context, req dto.ContractStatementRequest) (dto.ContractStatementResponse, error) {
	if req.Month < 1 || req.Month > 12 {
		return dto.ContractStatementResponse{}, fmt.Errorf("%w: month %d out of range", model.ErrInvalidInvoice, req.Month)
	}
	c, err := uc.store.GetContract(ctx, req.ContractID)
	if err != nil {
		return dto.ContractStatementResponse{}, fmt.Errorf("failed to get contract: %w", err)
	}
	invoices, err := uc.store.ListInvoices(ctx, c.ID())
	if err != nil {
		return dto.ContractStatementResponse{}, fmt.Errorf("failed to list invoices: %w", err)
	}
	payments, err := uc.store.ListPayments(ctx, c.ID())
	if err != nil {
		return dto.ContractStatementResponse{}, fmt.Errorf("failed to list payments: %w", err)
	}

	period := valueobject.PeriodForMonth(c.BillingDay(), req.Year, req.Month)
	resp := dto.ContractStatementResponse{
		Contract:        toContractResponse(c),
		PeriodStart:     period.Start(),
		PeriodEnd:       period.End(),
		PreviousBalance: uc.evaluator.Outstanding(invoices, period.Start().AddDate(0, 0, -1)),
		Expected:        decimal.Zero,
		PaidInPeriod:    decimal.Zero,
		EndingBalance:   uc.evaluator.Outstanding(invoices, period.End()),
		Credit:          c.Credit(),
	}

	for _, inv := range invoices {
		if inv.PeriodKey() != period.Key() {
			continue
		}
		r := toInvoiceResponse(inv, uc.evaluator.Status(inv, period.End()))
		resp.Invoice = &r
		resp.Expected = inv.Billed()
		break
	}

	model.SortPayments(payments)
	keys := periodKeysOf(invoices)
	for _, p := range payments {
		if !period.Contains(p.ReceivedOn()) {
			continue
		}
		resp.PaidInPeriod = resp.PaidInPeriod.Add(p.Amount())
		resp.Payments = append(resp.Payments, toPaymentResponse(p, keys))
	}
	return resp, nil
}
