package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/domain/event"
	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/internal/domain/port"
	"github.com/hennyhux/changsheng/internal/domain/service"
	"github.com/hennyhux/changsheng/internal/domain/valueobject"
	"github.com/hennyhux/changsheng/pkg/events"
)

// GenerateInvoices brings one contract's invoices up to date as of a date.
// Running it again with the same date creates nothing.
type GenerateInvoices struct {
	store     port.LedgerStore
	generator *service.InvoiceGenerator
	allocator *service.PaymentAllocator
	evaluator *service.BalanceEvaluator
	clock     port.Clock
	metrics   port.LedgerMetrics
	logger    *slog.Logger
}

func NewGenerateInvoices(
	store port.LedgerStore,
	generator *service.InvoiceGenerator,
	allocator *service.PaymentAllocator,
	evaluator *service.BalanceEvaluator,
	clock port.Clock,
	metrics port.LedgerMetrics,
	logger *slog.Logger,
) *GenerateInvoices {
	return &GenerateInvoices{
		store:     store,
		generator: generator,
		allocator: allocator,
		evaluator: evaluator,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
	}
}

func (uc *GenerateInvoices) Execute(ctx context.Context, req dto.GenerateInvoicesRequest) (dto.GenerateInvoicesResponse, error) {
	ctx, span := tracer.Start(ctx, "GenerateInvoices", trace.WithAttributes(
		attribute.String("contract.id", req.ContractID.String()),
	))
	defer span.End()

	generator, err := uc.generatorFor(req.GapPolicy)
	if err != nil {
		return dto.GenerateInvoicesResponse{}, err
	}
	asOf := dayOr(req.AsOf, uc.clock)
	now := uc.clock.Now()

	var (
		created []model.Invoice
		all     []model.Invoice
		applied = decimal.Zero
	)
	err = uc.store.WithinTx(ctx, func(tx port.LedgerTx) error {
		c, err := tx.LockContract(ctx, req.ContractID)
		if err != nil {
			return err
		}
		existing, err := tx.ListInvoices(ctx, c.ID())
		if err != nil {
			return err
		}
		planned, err := generator.Plan(c, existing, asOf, now)
		if err != nil {
			return err
		}
		all = existing
		if len(planned) == 0 {
			return nil
		}

		planned, c, apps, creditEvents, err := applyHeldCredit(uc.allocator, c, planned, now)
		if err != nil {
			return err
		}
		for _, inv := range planned {
			if err := tx.AppendInvoice(ctx, inv); err != nil {
				return err
			}
		}
		for _, app := range apps {
			if err := tx.AppendCreditApplication(ctx, app); err != nil {
				return err
			}
		}
		if len(apps) > 0 {
			if err := tx.SaveContract(ctx, c); err != nil {
				return err
			}
		}

		var collector events.EventCollector
		collector.Record(event.NewInvoicesGenerated(event.InvoicesGeneratedData{
			ContractID:  c.ID(),
			AsOf:        asOf.Format(valueobject.DateLayout),
			PeriodKeys:  periodKeys(planned),
			TotalBilled: billedTotal(planned),
		}, now))
		collector.Record(creditEvents...)
		if err := tx.AppendEvents(ctx, collector.Events()...); err != nil {
			return err
		}

		created = planned
		applied = totalApplied(apps)
		all = append(append([]model.Invoice(nil), existing...), planned...)
		return nil
	})
	if err != nil {
		observeError(uc.metrics, "generate_invoices", err)
		span.SetStatus(codes.Error, err.Error())
		return dto.GenerateInvoicesResponse{}, fmt.Errorf("failed to generate invoices for contract %s: %w", req.ContractID, err)
	}

	if len(created) > 0 {
		uc.metrics.InvoicesGenerated(len(created), billedTotal(created))
		uc.logger.InfoContext(ctx, "invoices generated",
			"contract_id", req.ContractID,
			"as_of", asOf.Format(valueobject.DateLayout),
			"count", len(created),
			"credit_applied", applied.StringFixed(2),
		)
	}
	span.SetAttributes(attribute.Int("invoices.created", len(created)))

	return uc.response(req, asOf, created, all, applied), nil
}

// generatorFor resolves a per-run gap policy override. Running strict once
// with backfill or skip is how an operator clears a reported gap.
func (uc *GenerateInvoices) generatorFor(policy string) (*service.InvoiceGenerator, error) {
	if policy == "" {
		return uc.generator, nil
	}
	p, err := valueobject.ParseGapPolicy(policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidGapPolicy, err)
	}
	return uc.generator.WithGapPolicy(p), nil
}

func (uc *GenerateInvoices) response(req dto.GenerateInvoicesRequest, asOf time.Time, created, all []model.Invoice, applied decimal.Decimal) dto.GenerateInvoicesResponse {
	resp := dto.GenerateInvoicesResponse{
		ContractID:    req.ContractID,
		AsOf:          asOf,
		Created:       make([]dto.InvoiceResponse, 0, len(created)),
		CreditApplied: applied,
	}
	for _, inv := range created {
		resp.Created = append(resp.Created, toInvoiceResponse(inv, uc.evaluator.Status(inv, asOf)))
	}
	if anchor, ok := model.AnchorInvoice(all); ok {
		r := toInvoiceResponse(anchor, uc.evaluator.Status(anchor, asOf))
		resp.Anchor = &r
	}
	return resp
}

func periodKeys(invoices []model.Invoice) []string {
	keys := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		keys = append(keys, inv.PeriodKey())
	}
	return keys
}

func billedTotal(invoices []model.Invoice) decimal.Decimal {
	total := decimal.Zero
	for _, inv := range invoices {
		total = total.Add(inv.Billed())
	}
	return total
}
