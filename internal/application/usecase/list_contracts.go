package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/internal/domain/port"
)

type ListContracts struct {
	store port.LedgerReader
}

func NewListContracts(store port.LedgerReader) *ListContracts {
	return &ListContracts{store: store}
}

func (uc *ListContracts) Execute(ctx context.Context, req dto.ListContractsRequest) ([]dto.ContractResponse, error) {
	var (
		contracts []model.Contract
		err       error
	)
	if req.CustomerID != uuid.Nil {
		contracts, err = uc.store.ListContractsByCustomer(ctx, req.CustomerID)
	} else {
		contracts, err = uc.store.ListContracts(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}

	out := make([]dto.ContractResponse, 0, len(contracts))
	for _, c := range contracts {
		out = append(out, toContractResponse(c))
	}
	return out, nil
}
