package service

import (
	"fmt"
	"time"

	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/internal/domain/valueobject"
)

// InvoiceGenerator works out which billing periods a contract owes as of a
// date and builds the invoices missing from its history. It does not persist.
type InvoiceGenerator struct {
	dueRule   valueobject.DueRule
	gapPolicy valueobject.GapPolicy
}

func NewInvoiceGenerator(dueRule valueobject.DueRule, gapPolicy valueobject.GapPolicy) *InvoiceGenerator {
	return &InvoiceGenerator{dueRule: dueRule, gapPolicy: gapPolicy}
}

func (g *InvoiceGenerator) GapPolicy() valueobject.GapPolicy { return g.gapPolicy }

// WithGapPolicy returns a generator that shares the due rule but resolves
// gaps with policy.
func (g *InvoiceGenerator) WithGapPolicy(policy valueobject.GapPolicy) *InvoiceGenerator {
	return &InvoiceGenerator{dueRule: g.dueRule, gapPolicy: policy}
}

// OwedPeriods lists every period from the one containing the contract start
// through the one containing asOf, cut off at the end date when there is one.
func (g *InvoiceGenerator) OwedPeriods(c model.Contract, asOf time.Time) []valueobject.BillingPeriod {
	if !c.Billable() {
		return nil
	}
	first := valueobject.PeriodContaining(c.BillingDay(), c.StartDate())
	last := valueobject.PeriodContaining(c.BillingDay(), asOf)
	if end := c.EndDate(); end != nil {
		if byEnd := valueobject.PeriodContaining(c.BillingDay(), *end); byEnd.Before(last) {
			last = byEnd
		}
	}
	return valueobject.PeriodsBetween(first, last)
}

// Plan returns the invoices to create so the contract is billed through asOf.
// Running it again against the resulting history yields nothing.
//
// A missing period is a gap when it precedes the latest issued invoice or
// lies wholly inside a suspension. Gaps are billed under backfill and dropped
// under skip. Strict drops them too but reports them as a PeriodGapError,
// except for suspended periods that an invoice already follows.
func (g *InvoiceGenerator) Plan(c model.Contract, existing []model.Invoice, asOf time.Time, now time.Time) ([]model.Invoice, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	covered := make(map[string]bool, len(existing))
	var latest valueobject.BillingPeriod
	for _, inv := range existing {
		covered[inv.PeriodKey()] = true
		if latest.IsZero() || latest.Before(inv.Period()) {
			latest = inv.Period()
		}
	}

	var missing []valueobject.BillingPeriod
	var gaps []string
	for _, p := range g.OwedPeriods(c, asOf) {
		if covered[p.Key()] {
			continue
		}
		hole, suspended := !latest.IsZero() && p.Before(latest), c.Suspended(p)
		if hole || suspended {
			// A suspended period behind the latest invoice was already passed
			// over by a skip run.
			if hole != suspended {
				gaps = append(gaps, p.Key())
			}
			if g.gapPolicy != valueobject.GapBackfill {
				continue
			}
		}
		missing = append(missing, p)
	}
	if g.gapPolicy == valueobject.GapStrict && len(gaps) > 0 {
		return nil, &model.PeriodGapError{ContractID: c.ID(), Missing: gaps}
	}

	planned := make([]model.Invoice, 0, len(missing))
	for _, p := range missing {
		inv, err := model.NewInvoice(c.ID(), p, g.dueRule.DueDate(p), c.RateOn(p.Start()), now)
		if err != nil {
			return nil, fmt.Errorf("build invoice for %s: %w", p.Key(), err)
		}
		planned = append(planned, inv)
	}
	return planned, nil
}
