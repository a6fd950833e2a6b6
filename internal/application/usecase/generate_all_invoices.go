package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/internal/domain/port"
	"github.com/hennyhux/changsheng/internal/domain/valueobject"
)

// GenerateAllInvoices runs invoice generation for every billable contract.
// Each contract commits on its own; a contract that cannot be billed is
// reported and skipped, while a storage failure stops the run.
type GenerateAllInvoices struct {
	store    port.LedgerReader
	generate *GenerateInvoices
	clock    port.Clock
	logger   *slog.Logger
}

func NewGenerateAllInvoices(store port.LedgerReader, generate *GenerateInvoices, clock port.Clock, logger *slog.Logger) *GenerateAllInvoices {
	return &GenerateAllInvoices{store: store, generate: generate, clock: clock, logger: logger}
}

func (uc *GenerateAllInvoices) Execute(ctx context.Context, req dto.GenerateAllInvoicesRequest) (dto.GenerateAllInvoicesResponse, error) {
	ctx, span := tracer.Start(ctx, "GenerateAllInvoices")
	defer span.End()

	asOf := dayOr(req.AsOf, uc.clock)
	contracts, err := uc.store.ListContracts(ctx)
	if err != nil {
		return dto.GenerateAllInvoicesResponse{}, fmt.Errorf("failed to list contracts: %w", err)
	}

	resp := dto.GenerateAllInvoicesResponse{AsOf: asOf}
	for _, c := range contracts {
		if !c.Billable() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return resp, err
		}
		resp.Contracts++

		out, err := uc.generate.Execute(ctx, dto.GenerateInvoicesRequest{ContractID: c.ID(), AsOf: asOf})
		if err != nil {
			var storageErr *model.StorageError
			if errors.As(err, &storageErr) {
				return resp, err
			}
			uc.logger.WarnContext(ctx, "contract skipped during invoice run",
				"contract_id", c.ID(),
				"error", err,
			)
			resp.Failures = append(resp.Failures, dto.ContractFailure{ContractID: c.ID(), Error: err.Error()})
			continue
		}
		resp.Created += len(out.Created)
	}

	uc.logger.InfoContext(ctx, "invoice run finished",
		"as_of", asOf.Format(valueobject.DateLayout),
		"contracts", resp.Contracts,
		"created", resp.Created,
		"failures", len(resp.Failures),
	)
	return resp, nil
}
