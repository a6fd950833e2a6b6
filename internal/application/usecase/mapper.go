package usecase

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/internal/domain/port"
	"github.com/hennyhux/changsheng/internal/domain/valueobject"
)

var tracer = otel.Tracer("github.com/hennyhux/changsheng/internal/application/usecase")

// dayOr returns the calendar date of t, or today when t is zero.
func dayOr(t time.Time, clock port.Clock) time.Time {
	if t.IsZero() {
		return valueobject.DateOf(clock.Today())
	}
	return valueobject.DateOf(t)
}

func observeError(metrics port.LedgerMetrics, op string, err error) {
	var storageErr *model.StorageError
	if errors.As(err, &storageErr) {
		metrics.StoreError(op)
	}
}

func toContractResponse(c model.Contract) dto.ContractResponse {
	rates := make([]dto.RateChangeDTO, 0, len(c.Rates()))
	for _, r := range c.Rates() {
		rates = append(rates, dto.RateChangeDTO{EffectiveFrom: r.EffectiveFrom(), MonthlyRate: r.MonthlyRate()})
	}
	var suspensions []dto.SuspensionDTO
	for _, s := range c.Suspensions() {
		suspensions = append(suspensions, dto.SuspensionDTO{From: s.From(), To: s.To()})
	}
	return dto.ContractResponse{
		ID:           c.ID(),
		CustomerID:   c.CustomerID(),
		CustomerName: c.CustomerName(),
		TruckPlate:   c.TruckPlate(),
		MonthlyRate:  c.MonthlyRate(),
		Rates:        rates,
		Suspensions:  suspensions,
		BillingDay:   c.BillingDay().Int(),
		StartDate:    c.StartDate(),
		EndDate:      c.EndDate(),
		Active:       c.Active(),
		Credit:       c.Credit(),
		Version:      c.Version(),
		CreatedAt:    c.CreatedAt(),
		UpdatedAt:    c.UpdatedAt(),
	}
}

func toInvoiceResponse(inv model.Invoice, status valueobject.InvoiceStatus) dto.InvoiceResponse {
	return dto.InvoiceResponse{
		ID:          inv.ID(),
		ContractID:  inv.ContractID(),
		PeriodKey:   inv.PeriodKey(),
		PeriodStart: inv.Period().Start(),
		PeriodEnd:   inv.Period().End(),
		DueDate:     inv.DueDate(),
		Billed:      inv.Billed(),
		Paid:        inv.Paid(),
		Remaining:   inv.Remaining(),
		Status:      status.String(),
	}
}

func toPaymentResponse(p model.Payment, periodKeys map[uuid.UUID]string) dto.PaymentResponse {
	allocs := make([]dto.AllocationDTO, 0, len(p.Allocations()))
	for _, a := range p.Allocations() {
		allocs = append(allocs, dto.AllocationDTO{
			InvoiceID:     a.InvoiceID,
			PeriodKey:     periodKeys[a.InvoiceID],
			Amount:        a.Amount,
			BalanceBefore: a.BalanceBefore,
			BalanceAfter:  a.BalanceAfter,
		})
	}
	return dto.PaymentResponse{
		ID:          p.ID(),
		ContractID:  p.ContractID(),
		Amount:      p.Amount(),
		ReceivedOn:  p.ReceivedOn(),
		Method:      p.Method().String(),
		Note:        p.Note(),
		Allocations: allocs,
		Credit:      p.Credit(),
		RecordedAt:  p.RecordedAt(),
	}
}

func periodKeysOf(invoices []model.Invoice) map[uuid.UUID]string {
	keys := make(map[uuid.UUID]string, len(invoices))
	for _, inv := range invoices {
		keys[inv.ID()] = inv.PeriodKey()
	}
	return keys
}
