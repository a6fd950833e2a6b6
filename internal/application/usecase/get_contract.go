package usecase

import (
	"context"
	"fmt"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/domain/port"
)

type GetContract struct {
	store port.LedgerReader
}

func NewGetContract(store port.LedgerReader) *GetContract {
	return &GetContract{store: store}
}

func (uc *GetContract) Execute(ctx context.Context, req dto.GetContractRequest) (dto.ContractResponse, error) {
	contract, err := uc.store.GetContract(ctx, req.ContractID)
	if err != nil {
		return dto.ContractResponse{}, fmt.Errorf("failed to get contract: %w", err)
	}
	return toContractResponse(contract), nil
}
