package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/domain/event"
	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/internal/domain/port"
	"github.com/hennyhux/changsheng/internal/domain/service"
	"github.com/hennyhux/changsheng/internal/domain/valueobject"
	"github.com/hennyhux/changsheng/pkg/events"
)

// BackfillRate re-bills issued invoices whose period starts on or after From at
// the rate the contract's schedule now gives them. It is the explicit
// exception to rate changes being prospective, and refuses to lower an invoice
// below what was already paid on it. Credit the contract holds is spent on
// the raised invoices in the same transaction.
type BackfillRate struct {
	store     port.LedgerStore
	allocator *service.PaymentAllocator
	evaluator *service.BalanceEvaluator
	clock     port.Clock
	logger    *slog.Logger
}

func NewBackfillRate(
	store port.LedgerStore,
	allocator *service.PaymentAllocator,
	evaluator *service.BalanceEvaluator,
	clock port.Clock,
	logger *slog.Logger,
) *BackfillRate {
	return &BackfillRate{store: store, allocator: allocator, evaluator: evaluator, clock: clock, logger: logger}
}

func (uc *BackfillRate) Execute(ctx context.Context, req dto.BackfillRateRequest) (dto.BackfillRateResponse, error) {
	ctx, span := tracer.Start(ctx, "BackfillRate")
	defer span.End()

	if req.From.IsZero() {
		return dto.BackfillRateResponse{}, fmt.Errorf("%w: backfill start date is required", model.ErrInvalidRateChange)
	}
	from := valueobject.DateOf(req.From)
	now := uc.clock.Now()

	resp := dto.BackfillRateResponse{ContractID: req.ContractID, Delta: decimal.Zero, CreditApplied: decimal.Zero}
	err := uc.store.WithinTx(ctx, func(tx port.LedgerTx) error {
		c, err := tx.LockContract(ctx, req.ContractID)
		if err != nil {
			return err
		}
		invoices, err := tx.ListInvoices(ctx, c.ID())
		if err != nil {
			return err
		}

		var rebilled []model.Invoice
		for _, inv := range invoices {
			if inv.Period().Start().Before(from) {
				continue
			}
			rate := c.RateOn(inv.Period().Start())
			if rate.Equal(inv.Billed()) {
				continue
			}
			updated, err := inv.Rebill(rate)
			if err != nil {
				return err
			}
			if err := tx.UpdateInvoiceBilledAmount(ctx, inv.ID(), updated.Billed()); err != nil {
				return err
			}
			resp.Delta = resp.Delta.Add(updated.Billed().Sub(inv.Billed()))
			rebilled = append(rebilled, updated)
		}
		if len(rebilled) == 0 {
			return nil
		}

		rebilled, c, apps, creditEvents, err := applyHeldCredit(uc.allocator, c, rebilled, now)
		if err != nil {
			return err
		}
		if len(apps) > 0 {
			if err := uc.storeCredit(ctx, tx, c, rebilled, apps); err != nil {
				return err
			}
			resp.CreditApplied = totalApplied(apps)
		}

		today := valueobject.DateOf(now)
		for _, inv := range rebilled {
			resp.Updated = append(resp.Updated, toInvoiceResponse(inv, uc.evaluator.Status(inv, today)))
		}
		evts := append([]events.DomainEvent{event.NewRateBackfilled(event.RateBackfilledData{
			ContractID: c.ID(),
			From:       from.Format(valueobject.DateLayout),
			Invoices:   len(rebilled),
			Delta:      resp.Delta,
		}, now)}, creditEvents...)
		return tx.AppendEvents(ctx, evts...)
	})
	if err != nil {
		return dto.BackfillRateResponse{}, fmt.Errorf("failed to backfill rate for contract %s: %w", req.ContractID, err)
	}

	uc.logger.InfoContext(ctx, "rate backfilled",
		"contract_id", req.ContractID,
		"from", from.Format(valueobject.DateLayout),
		"invoices", len(resp.Updated),
		"delta", resp.Delta.StringFixed(2),
		"credit_applied", resp.CreditApplied.StringFixed(2),
	)
	return resp, nil
}

func (uc *BackfillRate) storeCredit(ctx context.Context, tx port.LedgerTx, c model.Contract, invoices []model.Invoice, apps []model.CreditApplication) error {
	credited := make(map[uuid.UUID]bool, len(apps))
	for _, app := range apps {
		credited[app.InvoiceID] = true
		if err := tx.AppendCreditApplication(ctx, app); err != nil {
			return err
		}
	}
	for _, inv := range invoices {
		if !credited[inv.ID()] {
			continue
		}
		if err := tx.UpdateInvoicePaidAmount(ctx, inv.ID(), inv.Paid()); err != nil {
			return err
		}
	}
	return tx.SaveContract(ctx, c)
}
