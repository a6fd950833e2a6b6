package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/internal/domain/port"
	"github.com/hennyhux/changsheng/internal/domain/valueobject"
)

// UpdateContractRate schedules a rate change. Only periods starting on or after
// the effective date are billed at the new rate; issued invoices keep theirs.
type UpdateContractRate struct {
	store  port.LedgerStore
	clock  port.Clock
	logger *slog.Logger
}

func NewUpdateContractRate(store port.LedgerStore, clock port.Clock, logger *slog.Logger) *UpdateContractRate {
	return &UpdateContractRate{store: store, clock: clock, logger: logger}
}

func (uc *UpdateContractRate) Execute(ctx context.Context, req dto.UpdateContractRateRequest) (dto.ContractResponse, error) {
	ctx, span := tracer.Start(ctx, "UpdateContractRate")
	defer span.End()

	from := dayOr(req.EffectiveFrom, uc.clock)
	var updated model.Contract
	err := uc.store.WithinTx(ctx, func(tx port.LedgerTx) error {
		c, err := tx.LockContract(ctx, req.ContractID)
		if err != nil {
			return err
		}
		updated, err = c.ChangeRate(req.MonthlyRate, from, uc.clock.Now())
		if err != nil {
			return err
		}
		if err := tx.SaveContract(ctx, updated); err != nil {
			return err
		}
		return tx.AppendEvents(ctx, updated.DomainEvents()...)
	})
	if err != nil {
		return dto.ContractResponse{}, fmt.Errorf("failed to change rate: %w", err)
	}

	uc.logger.InfoContext(ctx, "contract rate changed",
		"contract_id", req.ContractID,
		"monthly_rate", req.MonthlyRate.StringFixed(2),
		"effective_from", from.Format(valueobject.DateLayout),
	)
	return toContractResponse(updated), nil
}
