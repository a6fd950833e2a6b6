package usecase

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hennyhux/changsheng/internal/domain/event"
	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/internal/domain/service"
	"github.com/hennyhux/changsheng/pkg/events"
)

// applyHeldCredit spends the contract's unallocated credit on freshly planned
// invoices, oldest first, before they are stored as open.
func applyHeldCredit(
	allocator *service.PaymentAllocator,
	c model.Contract,
	invoices []model.Invoice,
	now time.Time,
) ([]model.Invoice, model.Contract, []model.CreditApplication, []events.DomainEvent, error) {
	if !c.Credit().IsPositive() || len(invoices) == 0 {
		return invoices, c, nil, nil, nil
	}

	result, err := allocator.Allocate(invoices, c.Credit())
	if err != nil {
		return nil, model.Contract{}, nil, nil, err
	}
	if len(result.Allocations) == 0 {
		return invoices, c, nil, nil, nil
	}

	updated := make(map[uuid.UUID]model.Invoice, len(result.Updated))
	for _, inv := range result.Updated {
		updated[inv.ID()] = inv
	}
	out := make([]model.Invoice, len(invoices))
	for i, inv := range invoices {
		if u, ok := updated[inv.ID()]; ok {
			inv = u
		}
		out[i] = inv
	}

	balance := c.Credit()
	apps := make([]model.CreditApplication, 0, len(result.Allocations))
	evts := make([]events.DomainEvent, 0, len(result.Allocations))
	for _, a := range result.Allocations {
		balance = balance.Sub(a.Amount)
		apps = append(apps, model.NewCreditApplication(c.ID(), a.InvoiceID, a.Amount, now))
		evts = append(evts, event.NewCreditApplied(event.CreditAppliedData{
			ContractID: c.ID(),
			InvoiceID:  a.InvoiceID,
			Amount:     a.Amount,
			Balance:    balance,
		}, now))
	}

	c, err = c.WithCredit(result.Remaining, now)
	if err != nil {
		return nil, model.Contract{}, nil, nil, err
	}
	return out, c, apps, evts, nil
}

func totalApplied(apps []model.CreditApplication) decimal.Decimal {
	total := decimal.Zero
	for _, a := range apps {
		total = total.Add(a.Amount)
	}
	return total
}
