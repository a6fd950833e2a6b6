package usecase

import (
	"context"
	"fmt"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/internal/domain/port"
)

// PaymentHistory lists a contract's payments chronologically with allocations.
type PaymentHistory struct {
	store port.LedgerReader
}

func NewPaymentHistory(store port.LedgerReader) *PaymentHistory {
	return &PaymentHistory{store: store}
}

func (uc *PaymentHistory) Execute(ctx context.Context, req dto.PaymentHistoryRequest) ([]dto.PaymentResponse, error) {
	c, err := uc.store.GetContract(ctx, req.ContractID)
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	payments, err := uc.store.ListPayments(ctx, c.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	invoices, err := uc.store.ListInvoices(ctx, c.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	model.SortPayments(payments)
	keys := periodKeysOf(invoices)
	out := make([]dto.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p, keys))
	}
	return out, nil
}
