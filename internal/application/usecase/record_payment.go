package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
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

// RecordPayment stores a received payment and applies it to the contract's
// open invoices, oldest first. Whatever no invoice can absorb becomes contract
// credit; in that case the response is returned together with a
// *model.OverpaymentCreditRecorded.
type RecordPayment struct {
	store     port.LedgerStore
	allocator *service.PaymentAllocator
	clock     port.Clock
	metrics   port.LedgerMetrics
	logger    *slog.Logger
}

func NewRecordPayment(
	store port.LedgerStore,
	allocator *service.PaymentAllocator,
	clock port.Clock,
	metrics port.LedgerMetrics,
	logger *slog.Logger,
) *RecordPayment {
	return &RecordPayment{
		store:     store,
		allocator: allocator,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
	}
}

func (uc *RecordPayment) Execute(ctx context.Context, req dto.RecordPaymentRequest) (dto.PaymentResponse, error) {
	ctx, span := tracer.Start(ctx, "RecordPayment", trace.WithAttributes(
		attribute.String("contract.id", req.ContractID.String()),
	))
	defer span.End()

	if err := model.ValidatePaymentAmount(req.Amount); err != nil {
		return dto.PaymentResponse{}, err
	}
	method, err := valueobject.ParsePaymentMethod(req.Method)
	if err != nil {
		return dto.PaymentResponse{}, fmt.Errorf("%w: %v", model.ErrInvalidPayment, err)
	}
	receivedOn := dayOr(req.ReceivedOn, uc.clock)
	now := uc.clock.Now()

	var (
		payment    model.Payment
		keys       map[uuid.UUID]string
		creditHeld decimal.Decimal
	)
	err = uc.store.WithinTx(ctx, func(tx port.LedgerTx) error {
		c, err := tx.LockContract(ctx, req.ContractID)
		if err != nil {
			return err
		}
		open, err := tx.FindOpenInvoices(ctx, c.ID(), time.Time{})
		if err != nil {
			return err
		}
		keys = periodKeysOf(open)

		result, err := uc.allocator.Allocate(open, req.Amount)
		if err != nil {
			return err
		}
		payment, err = model.NewPayment(c.ID(), req.Amount, receivedOn, method, req.Note, result.Allocations, result.Remaining, now)
		if err != nil {
			return err
		}
		if err := tx.AppendPayment(ctx, payment); err != nil {
			return err
		}
		for _, inv := range result.Updated {
			if err := tx.UpdateInvoicePaidAmount(ctx, inv.ID(), inv.Paid()); err != nil {
				return err
			}
		}

		var collector events.EventCollector
		collector.Record(event.NewPaymentRecorded(event.PaymentRecordedData{
			ContractID:  c.ID(),
			PaymentID:   payment.ID(),
			Amount:      payment.Amount(),
			ReceivedOn:  receivedOn.Format(valueobject.DateLayout),
			Method:      method.String(),
			Allocations: allocationPayloads(payment.Allocations()),
			Credit:      payment.Credit(),
		}, now))

		if payment.Credit().IsPositive() {
			c, err = c.WithCredit(c.Credit().Add(payment.Credit()), now)
			if err != nil {
				return err
			}
			if err := tx.SaveContract(ctx, c); err != nil {
				return err
			}
			collector.Record(event.NewCreditRecorded(event.CreditRecordedData{
				ContractID: c.ID(),
				PaymentID:  payment.ID(),
				Amount:     payment.Credit(),
				Balance:    c.Credit(),
			}, now))
		}
		creditHeld = c.Credit()
		return tx.AppendEvents(ctx, collector.Events()...)
	})
	if err != nil {
		observeError(uc.metrics, "record_payment", err)
		span.SetStatus(codes.Error, err.Error())
		return dto.PaymentResponse{}, fmt.Errorf("failed to record payment for contract %s: %w", req.ContractID, err)
	}

	uc.metrics.PaymentRecorded(method.String(), payment.Amount())
	uc.logger.InfoContext(ctx, "payment recorded",
		"contract_id", req.ContractID,
		"payment_id", payment.ID(),
		"amount", payment.Amount().StringFixed(2),
		"allocations", len(payment.Allocations()),
	)

	resp := toPaymentResponse(payment, keys)
	if payment.Credit().IsPositive() {
		uc.metrics.CreditRecorded(payment.Credit())
		return resp, &model.OverpaymentCreditRecorded{
			ContractID: req.ContractID,
			PaymentID:  payment.ID(),
			Credit:     payment.Credit(),
			Balance:    creditHeld,
		}
	}
	return resp, nil
}

func allocationPayloads(allocs []model.Allocation) []event.AllocationPayload {
	out := make([]event.AllocationPayload, 0, len(allocs))
	for _, a := range allocs {
		out = append(out, event.AllocationPayload{InvoiceID: a.InvoiceID, Amount: a.Amount})
	}
	return out
}
