package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/internal/domain/port"
)

// CreateContract opens a new lot rental contract.
type CreateContract struct {
	store  port.LedgerStore
	clock  port.Clock
	logger *slog.Logger
}

func NewCreateContract(store port.LedgerStore, clock port.Clock, logger *slog.Logger) *CreateContract {
	return &CreateContract{store: store, clock: clock, logger: logger}
}

func (uc *CreateContract) Execute(ctx context.Context, req dto.CreateContractRequest) (dto.ContractResponse, error) {
	ctx, span := tracer.Start(ctx, "CreateContract")
	defer span.End()

	contract, err := model.NewContract(model.ContractParams{
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		TruckPlate:   req.TruckPlate,
		MonthlyRate:  req.MonthlyRate,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		BillingDay:   req.BillingDay,
	}, uc.clock.Now())
	if err != nil {
		return dto.ContractResponse{}, fmt.Errorf("failed to create contract: %w", err)
	}

	err = uc.store.WithinTx(ctx, func(tx port.LedgerTx) error {
		if err := ensureTruckFree(ctx, tx, contract); err != nil {
			return err
		}
		if err := tx.SaveContract(ctx, contract); err != nil {
			return err
		}
		return tx.AppendEvents(ctx, contract.DomainEvents()...)
	})
	if err != nil {
		return dto.ContractResponse{}, fmt.Errorf("failed to save contract: %w", err)
	}

	uc.logger.InfoContext(ctx, "contract created",
		"contract_id", contract.ID(),
		"customer_id", contract.CustomerID(),
		"truck_plate", contract.TruckPlate(),
		"monthly_rate", contract.MonthlyRate().StringFixed(2),
	)
	return toContractResponse(contract), nil
}

// ensureTruckFree rejects a billable contract whose truck is already under
// another billable contract for an overlapping date range.
func ensureTruckFree(ctx context.Context, tx port.LedgerTx, c model.Contract) error {
	if c.TruckPlate() == "" || !c.Active() {
		return nil
	}
	others, err := tx.ListContractsByTruck(ctx, c.TruckPlate())
	if err != nil {
		return err
	}
	for _, other := range others {
		if other.ID() == c.ID() {
			continue
		}
		if c.Overlaps(other) {
			return fmt.Errorf("%w: plate %s is on contract %s", model.ErrTruckAlreadyContracted, c.TruckPlate(), other.ID())
		}
	}
	return nil
}
