package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hennyhux/changsheng/internal/domain/event"
	"github.com/hennyhux/changsheng/internal/domain/valueobject"
	"github.com/hennyhux/changsheng/pkg/events"
)

// RateChange is one entry of a contract's rate schedule: the monthly rate that
// applies to periods starting on or after EffectiveFrom.
type RateChange struct {
	effectiveFrom time.Time
	monthlyRate   decimal.Decimal
}

func NewRateChange(effectiveFrom time.Time, monthlyRate decimal.Decimal) RateChange {
	return RateChange{effectiveFrom: valueobject.DateOf(effectiveFrom), monthlyRate: monthlyRate}
}

func (r RateChange) EffectiveFrom() time.Time     { return r.effectiveFrom }
func (r RateChange) MonthlyRate() decimal.Decimal { return r.monthlyRate }

// ContractParams carries the terms of a new contract.
type ContractParams struct {
	CustomerID   uuid.UUID
	CustomerName string
	TruckPlate   string
	MonthlyRate  decimal.Decimal
	StartDate    time.Time
	EndDate      *time.Time
	// BillingDay defaults to the start date's day, capped at 28.
	BillingDay int
}

// Contract is the billing relationship for one parking spot. It owns its
// invoices and payments and holds any unallocated credit.
type Contract struct {
	id           uuid.UUID
	customerID   uuid.UUID
	customerName string
	truckPlate   string
	billingDay   valueobject.BillingDay
	startDate    time.Time
	endDate      *time.Time
	active       bool
	rates        []RateChange
	suspensions  []Suspension
	credit       decimal.Decimal
	version      int
	createdAt    time.Time
	updatedAt    time.Time
	domainEvents []events.DomainEvent
}

func NewContract(p ContractParams, now time.Time) (Contract, error) {
	start := valueobject.DateOf(p.StartDate)
	day := p.BillingDay
	if day == 0 {
		day = min(start.Day(), valueobject.MaxBillingDay)
	}
	c := Contract{
		id:           uuid.New(),
		customerID:   p.CustomerID,
		customerName: strings.TrimSpace(p.CustomerName),
		truckPlate:   NormalizePlate(p.TruckPlate),
		billingDay:   valueobject.BillingDay(day),
		startDate:    start,
		endDate:      normalizeDatePtr(p.EndDate),
		active:       true,
		rates:        []RateChange{NewRateChange(start, p.MonthlyRate)},
		credit:       decimal.Zero,
		createdAt:    now,
		updatedAt:    now,
	}
	if p.StartDate.IsZero() {
		return Contract{}, &InvalidContractError{Reason: "start date is required"}
	}
	if err := c.Validate(); err != nil {
		return Contract{}, err
	}
	c.domainEvents = []events.DomainEvent{event.NewContractCreated(event.ContractCreatedData{
		ContractID:  c.id,
		CustomerID:  c.customerID,
		TruckPlate:  c.truckPlate,
		MonthlyRate: p.MonthlyRate,
		StartDate:   start.Format(valueobject.DateLayout),
		BillingDay:  day,
	}, now)}
	return c, nil
}

// ReconstructContract recreates a Contract from persistence (no validation, no events).
func ReconstructContract(
	id, customerID uuid.UUID,
	customerName, truckPlate string,
	billingDay int,
	startDate time.Time,
	endDate *time.Time,
	active bool,
	rates []RateChange,
	suspensions []Suspension,
	credit decimal.Decimal,
	version int,
	createdAt, updatedAt time.Time,
) Contract {
	return Contract{
		id:           id,
		customerID:   customerID,
		customerName: customerName,
		truckPlate:   truckPlate,
		billingDay:   valueobject.BillingDay(billingDay),
		startDate:    valueobject.DateOf(startDate),
		endDate:      normalizeDatePtr(endDate),
		active:       active,
		rates:        rates,
		suspensions:  suspensions,
		credit:       credit,
		version:      version,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

func (c Contract) ID() uuid.UUID                      { return c.id }
func (c Contract) CustomerID() uuid.UUID              { return c.customerID }
func (c Contract) CustomerName() string               { return c.customerName }
func (c Contract) TruckPlate() string                 { return c.truckPlate }
func (c Contract) BillingDay() valueobject.BillingDay { return c.billingDay }
func (c Contract) StartDate() time.Time               { return c.startDate }
func (c Contract) EndDate() *time.Time                { return c.endDate }
func (c Contract) Active() bool                       { return c.active }
func (c Contract) Rates() []RateChange                { return append([]RateChange(nil), c.rates...) }
func (c Contract) Credit() decimal.Decimal            { return c.credit }
func (c Contract) Suspensions() []Suspension          { return append([]Suspension(nil), c.suspensions...) }
func (c Contract) Version() int                       { return c.version }
func (c Contract) CreatedAt() time.Time               { return c.createdAt }
func (c Contract) UpdatedAt() time.Time               { return c.updatedAt }

func (c Contract) DomainEvents() []events.DomainEvent {
	return append([]events.DomainEvent(nil), c.domainEvents...)
}

// Validate checks the invariants the billing engine relies on.
func (c Contract) Validate() error {
	invalid := func(format string, args ...any) error {
		return &InvalidContractError{ContractID: c.id, Reason: fmt.Sprintf(format, args...)}
	}
	if c.customerID == uuid.Nil {
		return invalid("customer is required")
	}
	if _, err := valueobject.NewBillingDay(int(c.billingDay)); err != nil {
		return invalid("%v", err)
	}
	if c.startDate.IsZero() {
		return invalid("start date is required")
	}
	if c.endDate != nil && c.endDate.Before(c.startDate) {
		return invalid("end date %s is before start date %s",
			c.endDate.Format(valueobject.DateLayout), c.startDate.Format(valueobject.DateLayout))
	}
	if len(c.rates) == 0 {
		return invalid("rate schedule is empty")
	}
	for i, r := range c.rates {
		if r.monthlyRate.IsNegative() {
			return invalid("monthly rate %s is negative", r.monthlyRate.String())
		}
		if !isCents(r.monthlyRate) {
			return invalid("monthly rate %s has more than two decimal places", r.monthlyRate.String())
		}
		if i > 0 && !r.effectiveFrom.After(c.rates[i-1].effectiveFrom) {
			return invalid("rate schedule is not in ascending date order")
		}
	}
	if c.credit.IsNegative() {
		return invalid("credit %s is negative", c.credit.String())
	}
	for i, sp := range c.suspensions {
		if sp.to.Before(sp.from) || !sp.from.After(c.startDate) {
			return invalid("suspension %s to %s is out of range",
				sp.from.Format(valueobject.DateLayout), sp.to.Format(valueobject.DateLayout))
		}
		if i > 0 && !sp.from.After(c.suspensions[i-1].to) {
			return invalid("suspensions overlap or are out of order")
		}
	}
	return nil
}

// Suspended reports whether the contract was inactive for the whole period.
func (c Contract) Suspended(p valueobject.BillingPeriod) bool {
	for _, sp := range c.suspensions {
		if sp.Covers(p) {
			return true
		}
	}
	return false
}

// MonthlyRate is the most recently scheduled rate.
func (c Contract) MonthlyRate() decimal.Decimal {
	if len(c.rates) == 0 {
		return decimal.Zero
	}
	return c.rates[len(c.rates)-1].monthlyRate
}

// RateOn returns the monthly rate in effect on date. Dates before the first
// schedule entry use the initial rate.
func (c Contract) RateOn(date time.Time) decimal.Decimal {
	if len(c.rates) == 0 {
		return decimal.Zero
	}
	d := valueobject.DateOf(date)
	rate := c.rates[0].monthlyRate
	for _, r := range c.rates[1:] {
		if r.effectiveFrom.After(d) {
			break
		}
		rate = r.monthlyRate
	}
	return rate
}

// Billable reports whether new invoices may be generated at all. An inactive
// contract without an end date has stopped billing.
func (c Contract) Billable() bool {
	return c.active || c.endDate != nil
}

// ChangeRate schedules a new monthly rate for periods starting on or after
// effectiveFrom. Already issued invoices are not touched.
func (c Contract) ChangeRate(rate decimal.Decimal, effectiveFrom time.Time, now time.Time) (Contract, error) {
	from := valueobject.DateOf(effectiveFrom)
	if rate.IsNegative() || !isCents(rate) {
		return Contract{}, fmt.Errorf("%w: rate %s must be a non-negative amount in cents", ErrInvalidRateChange, rate.String())
	}
	if from.Before(c.startDate) {
		return Contract{}, fmt.Errorf("%w: effective date %s is before contract start", ErrInvalidRateChange, from.Format(valueobject.DateLayout))
	}
	if last := c.rates[len(c.rates)-1]; !from.After(last.effectiveFrom) {
		return Contract{}, fmt.Errorf("%w: effective date must be after %s", ErrInvalidRateChange, last.effectiveFrom.Format(valueobject.DateLayout))
	}

	changed := c
	changed.rates = append(append([]RateChange(nil), c.rates...), NewRateChange(from, rate))
	changed.updatedAt = now
	changed.domainEvents = append(c.DomainEvents(), event.NewContractRateChanged(event.ContractRateChangedData{
		ContractID:    c.id,
		MonthlyRate:   rate,
		EffectiveFrom: from.Format(valueobject.DateLayout),
	}, now))
	return changed, nil
}

// Deactivate ends the contract on endDate. Periods starting after it are never
// billed unless the contract is reactivated.
func (c Contract) Deactivate(endDate time.Time, now time.Time) (Contract, error) {
	end := valueobject.DateOf(endDate)
	if end.Before(c.startDate) {
		return Contract{}, &InvalidContractError{ContractID: c.id, Reason: "end date is before start date"}
	}
	if n := len(c.suspensions); n > 0 && end.Before(c.suspensions[n-1].to) {
		return Contract{}, fmt.Errorf("%w: end date %s falls before the suspension ending %s", ErrInvalidStatusChange,
			end.Format(valueobject.DateLayout), c.suspensions[n-1].to.Format(valueobject.DateLayout))
	}
	changed := c
	changed.active = false
	changed.endDate = &end
	changed.updatedAt = now
	changed.domainEvents = append(c.DomainEvents(), event.NewContractStatusChanged(event.ContractStatusChangedData{
		ContractID: c.id,
		Active:     false,
		EndDate:    end.Format(valueobject.DateLayout),
	}, now))
	return changed, nil
}

// Reactivate resumes open-ended billing from resumeOn. When the contract had
// stopped, the days between its end date and resumeOn are kept as a
// suspension so the generator can treat those periods as gaps.
func (c Contract) Reactivate(resumeOn time.Time, now time.Time) (Contract, error) {
	if c.active && c.endDate == nil {
		return Contract{}, fmt.Errorf("%w: contract %s is already active", ErrInvalidStatusChange, c.id)
	}
	resume := valueobject.DateOf(resumeOn)
	if resume.Before(c.startDate) {
		return Contract{}, fmt.Errorf("%w: resume date %s is before contract start", ErrInvalidStatusChange,
			resume.Format(valueobject.DateLayout))
	}

	changed := c
	data := event.ContractStatusChangedData{
		ContractID: c.id,
		Active:     true,
		ResumeOn:   resume.Format(valueobject.DateLayout),
	}
	if !c.active && c.endDate != nil {
		from, to := c.endDate.AddDate(0, 0, 1), resume.AddDate(0, 0, -1)
		if !to.Before(from) {
			changed.suspensions = append(c.Suspensions(), NewSuspension(from, to))
			data.SuspendedFrom = from.Format(valueobject.DateLayout)
			data.SuspendedTo = to.Format(valueobject.DateLayout)
		}
	}
	changed.active = true
	changed.endDate = nil
	changed.updatedAt = now
	changed.domainEvents = append(c.DomainEvents(), event.NewContractStatusChanged(data, now))
	return changed, nil
}

// WithCredit returns a copy holding credit as its unallocated balance.
func (c Contract) WithCredit(credit decimal.Decimal, now time.Time) (Contract, error) {
	if credit.IsNegative() {
		return Contract{}, fmt.Errorf("credit %s cannot be negative", credit.String())
	}
	changed := c
	changed.credit = credit
	changed.updatedAt = now
	return changed, nil
}

// Overlaps reports whether both contracts bill the same truck over intersecting dates.
func (c Contract) Overlaps(other Contract) bool {
	if c.id == other.id || c.truckPlate == "" || c.truckPlate != other.truckPlate {
		return false
	}
	if !c.active || !other.active {
		return false
	}
	return !endsBefore(c.endDate, other.startDate) && !endsBefore(other.endDate, c.startDate)
}

func endsBefore(end *time.Time, start time.Time) bool {
	return end != nil && end.Before(start)
}

// NormalizePlate canonicalizes a truck plate for comparison.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), ""))
}

func normalizeDatePtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	d := valueobject.DateOf(*t)
	return &d
}
