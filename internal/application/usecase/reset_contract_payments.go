package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/domain/event"
	"github.com/hennyhux/changsheng/internal/domain/port"
)

// ResetContractPayments deletes every payment of a contract, zeroes the paid
// amount of its invoices and clears held credit. Invoices themselves remain.
type ResetContractPayments struct {
	store   port.LedgerStore
	clock   port.Clock
	metrics port.LedgerMetrics
	logger  *slog.Logger
}

func NewResetContractPayments(store port.LedgerStore, clock port.Clock, metrics port.LedgerMetrics, logger *slog.Logger) *ResetContractPayments {
	return &ResetContractPayments{store: store, clock: clock, metrics: metrics, logger: logger}
}

func (uc *ResetContractPayments) Execute(ctx context.Context, req dto.ResetContractPaymentsRequest) (dto.ResetContractPaymentsResponse, error) {
	ctx, span := tracer.Start(ctx, "ResetContractPayments")
	defer span.End()

	now := uc.clock.Now()
	resp := dto.ResetContractPaymentsResponse{ContractID: req.ContractID}
	err := uc.store.WithinTx(ctx, func(tx port.LedgerTx) error {
		c, err := tx.LockContract(ctx, req.ContractID)
		if err != nil {
			return err
		}
		payments, err := tx.ListPayments(ctx, c.ID())
		if err != nil {
			return err
		}
		removedAmount := decimal.Zero
		for _, p := range payments {
			removedAmount = removedAmount.Add(p.Amount())
		}

		removed, err := tx.DeletePayments(ctx, c.ID())
		if err != nil {
			return err
		}
		invoices, err := tx.ListInvoices(ctx, c.ID())
		if err != nil {
			return err
		}
		for _, inv := range invoices {
			if inv.Paid().IsZero() {
				continue
			}
			if err := tx.UpdateInvoicePaidAmount(ctx, inv.ID(), decimal.Zero); err != nil {
				return err
			}
		}

		cleared := c.Credit()
		if !cleared.IsZero() {
			c, err = c.WithCredit(decimal.Zero, now)
			if err != nil {
				return err
			}
			if err := tx.SaveContract(ctx, c); err != nil {
				return err
			}
		}

		resp.RemovedPayments = removed
		resp.RemovedAmount = removedAmount
		resp.ClearedCredit = cleared
		return tx.AppendEvents(ctx, event.NewPaymentsReset(event.PaymentsResetData{
			ContractID:      c.ID(),
			RemovedPayments: removed,
			RemovedAmount:   removedAmount,
			ClearedCredit:   cleared,
		}, now))
	})
	if err != nil {
		observeError(uc.metrics, "reset_payments", err)
		return dto.ResetContractPaymentsResponse{}, fmt.Errorf("failed to reset payments for contract %s: %w", req.ContractID, err)
	}

	uc.metrics.PaymentsReset(resp.RemovedPayments)
	uc.logger.WarnContext(ctx, "contract payments reset",
		"contract_id", req.ContractID,
		"removed_payments", resp.RemovedPayments,
		"removed_amount", resp.RemovedAmount.StringFixed(2),
		"cleared_credit", resp.ClearedCredit.StringFixed(2),
	)
	return resp, nil
}
