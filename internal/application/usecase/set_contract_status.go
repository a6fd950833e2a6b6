package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/internal/domain/port"
)

// SetContractStatus deactivates a contract on an end date or reactivates it
// from a resume date, recording the stretch in between as a suspension.
type SetContractStatus struct {
	store  port.LedgerStore
	clock  port.Clock
	logger *slog.Logger
}

func NewSetContractStatus(store port.LedgerStore, clock port.Clock, logger *slog.Logger) *SetContractStatus {
	return &SetContractStatus{store: store, clock: clock, logger: logger}
}

func (uc *SetContractStatus) Execute(ctx context.Context, req dto.SetContractStatusRequest) (dto.ContractResponse, error) {
	ctx, span := tracer.Start(ctx, "SetContractStatus")
	defer span.End()

	now := uc.clock.Now()
	var updated model.Contract
	err := uc.store.WithinTx(ctx, func(tx port.LedgerTx) error {
		c, err := tx.LockContract(ctx, req.ContractID)
		if err != nil {
			return err
		}
		if req.Active {
			updated, err = c.Reactivate(dayOr(req.ResumeOn, uc.clock), now)
			if err != nil {
				return err
			}
			if err := ensureTruckFree(ctx, tx, updated); err != nil {
				return err
			}
		} else {
			updated, err = c.Deactivate(dayOr(req.EndDate, uc.clock), now)
			if err != nil {
				return err
			}
		}
		if err := tx.SaveContract(ctx, updated); err != nil {
			return err
		}
		return tx.AppendEvents(ctx, updated.DomainEvents()...)
	})
	if err != nil {
		return dto.ContractResponse{}, fmt.Errorf("failed to change contract status: %w", err)
	}

	uc.logger.InfoContext(ctx, "contract status changed",
		"contract_id", req.ContractID,
		"active", updated.Active(),
	)
	return toContractResponse(updated), nil
}
