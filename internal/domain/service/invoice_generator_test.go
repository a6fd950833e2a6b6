package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/internal/domain/service"
	"github.com/hennyhux/changsheng/internal/domain/valueobject"
)

func backfillGenerator() *service.InvoiceGenerator {
	return service.NewInvoiceGenerator(valueobject.DefaultDueRule(), valueobject.GapBackfill)
}

func TestInvoiceGenerator_Plan_FromStartThroughTarget(t *testing.T) {
	c := newContract(t, date(2024, 1, 1), "100.00")

	planned, err := backfillGenerator().Plan(c, nil, date(2024, 3, 15), now)
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-01", "2024-02", "2024-03"}, keys(planned))
	for _, inv := range planned {
		assert.Equal(t, c.ID(), inv.ContractID())
		assert.True(t, dec("100").Equal(inv.Billed()))
		assert.Equal(t, inv.Period().End(), inv.DueDate())
	}
}

func TestInvoiceGenerator_Plan_Idempotent(t *testing.T) {
	gen := backfillGenerator()
	c := newContract(t, date(2024, 1, 1), "100.00")

	first, err := gen.Plan(c, nil, date(2024, 5, 1), now)
	require.NoError(t, err)
	require.Len(t, first, 5)

	second, err := gen.Plan(c, first, date(2024, 5, 1), now)
	require.NoError(t, err)
	assert.Empty(t, second)

	later, err := gen.Plan(c, first, date(2024, 6, 1), now)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06"}, keys(later))
}

func TestInvoiceGenerator_Plan_MidMonthBillingDay(t *testing.T) {
	c := newContract(t, date(2024, 1, 15), "250.00")

	planned, err := backfillGenerator().Plan(c, nil, date(2024, 3, 14), now)
	require.NoError(t, err)

	require.Equal(t, []string{"2024-01", "2024-02"}, keys(planned))
	assert.Equal(t, date(2024, 1, 15), planned[0].Period().Start())
	assert.Equal(t, date(2024, 2, 14), planned[0].Period().End())
}

func TestInvoiceGenerator_Plan_TargetBeforeStart(t *testing.T) {
	c := newContract(t, date(2024, 6, 1), "100.00")
	planned, err := backfillGenerator().Plan(c, nil, date(2024, 5, 31), now)
	require.NoError(t, err)
	assert.Empty(t, planned)
}

func TestInvoiceGenerator_Plan_RateChangeIsProspective(t *testing.T) {
	gen := backfillGenerator()
	c := newContract(t, date(2024, 1, 1), "100.00")

	issued, err := gen.Plan(c, nil, date(2024, 2, 1), now)
	require.NoError(t, err)
	require.Len(t, issued, 2)

	c, err = c.ChangeRate(dec("120.00"), date(2024, 3, 1), now)
	require.NoError(t, err)

	more, err := gen.Plan(c, issued, date(2024, 4, 1), now)
	require.NoError(t, err)
	require.Equal(t, []string{"2024-03", "2024-04"}, keys(more))
	assert.True(t, dec("120").Equal(more[0].Billed()))
	assert.True(t, dec("120").Equal(more[1].Billed()))

	for _, inv := range issued {
		assert.True(t, dec("100").Equal(inv.Billed()), "%s keeps the old rate", inv.PeriodKey())
	}

	// Backfilled gap periods still price at the rate of their own start date.
	fresh, err := gen.Plan(c, nil, date(2024, 4, 1), now)
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(fresh[1].Billed()))
	assert.True(t, dec("120").Equal(fresh[2].Billed()))
}

func TestInvoiceGenerator_Plan_StopsAtEndDate(t *testing.T) {
	c := newContract(t, date(2024, 1, 1), "100.00")
	c, err := c.Deactivate(date(2024, 2, 10), now)
	require.NoError(t, err)

	planned, err := backfillGenerator().Plan(c, nil, date(2024, 12, 1), now)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01", "2024-02"}, keys(planned))
}

func TestInvoiceGenerator_Plan_InactiveWithoutEndBillsNothing(t *testing.T) {
	c := newContract(t, date(2024, 1, 1), "100.00")
	c = model.ReconstructContract(c.ID(), c.CustomerID(), c.CustomerName(), "", 1, c.StartDate(), nil, false,
		c.Rates(), nil, c.Credit(), 1, now, now)

	planned, err := backfillGenerator().Plan(c, nil, date(2024, 12, 1), now)
	require.NoError(t, err)
	assert.Empty(t, planned)
}

func TestInvoiceGenerator_Plan_InvalidContract(t *testing.T) {
	c := newContract(t, date(2024, 1, 1), "100.00")
	end := date(2023, 1, 1)
	broken := model.ReconstructContract(c.ID(), c.CustomerID(), "", "", 1, c.StartDate(), &end, true,
		c.Rates(), nil, c.Credit(), 1, now, now)

	_, err := backfillGenerator().Plan(broken, nil, date(2024, 3, 1), now)
	var invalid *model.InvalidContractError
	assert.True(t, errors.As(err, &invalid))
}

func TestInvoiceGenerator_Plan_GapPolicies(t *testing.T) {
	c := newContract(t, date(2024, 1, 1), "100.00")
	// History has January and April: February and March are a hole.
	history := monthlyInvoices(t, c.ID(), "100", time.January, time.April)

	tests := []struct {
		name     string
		policy   valueobject.GapPolicy
		wantKeys []string
		wantGap  []string
	}{
		{name: "backfill fills the hole", policy: valueobject.GapBackfill, wantKeys: []string{"2024-02", "2024-03", "2024-05"}},
		{name: "skip leaves the hole", policy: valueobject.GapSkip, wantKeys: []string{"2024-05"}},
		{name: "strict reports the hole", policy: valueobject.GapStrict, wantGap: []string{"2024-02", "2024-03"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := service.NewInvoiceGenerator(valueobject.DefaultDueRule(), tt.policy)
			planned, err := gen.Plan(c, history, date(2024, 5, 1), now)
			if tt.wantGap != nil {
				var gap *model.PeriodGapError
				require.True(t, errors.As(err, &gap), "got %v", err)
				assert.Equal(t, tt.wantGap, gap.Missing)
				assert.Nil(t, planned)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKeys, keys(planned))
		})
	}
}

func TestInvoiceGenerator_Plan_SuspendedPeriods(t *testing.T) {
	c := newContract(t, date(2024, 1, 1), "100.00")
	history := monthlyInvoices(t, c.ID(), "100", time.January, time.February, time.March)
	c, err := c.Deactivate(date(2024, 3, 31), now)
	require.NoError(t, err)
	c, err = c.Reactivate(date(2024, 7, 1), now)
	require.NoError(t, err)

	tests := []struct {
		name     string
		policy   valueobject.GapPolicy
		wantKeys []string
		wantGap  []string
	}{
		{name: "backfill bills the suspension", policy: valueobject.GapBackfill, wantKeys: []string{"2024-04", "2024-05", "2024-06", "2024-07"}},
		{name: "skip resumes after the suspension", policy: valueobject.GapSkip, wantKeys: []string{"2024-07"}},
		{name: "strict reports the suspension", policy: valueobject.GapStrict, wantGap: []string{"2024-04", "2024-05", "2024-06"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			planned, err := backfillGenerator().WithGapPolicy(tt.policy).Plan(c, history, date(2024, 7, 10), now)
			if tt.wantGap != nil {
				var gap *model.PeriodGapError
				require.True(t, errors.As(err, &gap), "got %v", err)
				assert.Equal(t, tt.wantGap, gap.Missing)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKeys, keys(planned))
		})
	}
}

func TestInvoiceGenerator_Plan_StrictAcceptsSkippedSuspension(t *testing.T) {
	c := newContract(t, date(2024, 1, 1), "100.00")
	history := monthlyInvoices(t, c.ID(), "100", time.January, time.February, time.March, time.July)
	c, err := c.Deactivate(date(2024, 3, 31), now)
	require.NoError(t, err)
	c, err = c.Reactivate(date(2024, 7, 1), now)
	require.NoError(t, err)

	strict := backfillGenerator().WithGapPolicy(valueobject.GapStrict)
	planned, err := strict.Plan(c, history, date(2024, 8, 10), now)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-08"}, keys(planned))

	planned, err = backfillGenerator().Plan(c, history, date(2024, 8, 10), now)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-04", "2024-05", "2024-06", "2024-08"}, keys(planned), "backfill still fills a skipped suspension")
}

func TestInvoiceGenerator_Plan_PartlySuspendedPeriodIsBilled(t *testing.T) {
	c := newContract(t, date(2024, 1, 1), "100.00")
	c, err := c.Deactivate(date(2024, 2, 15), now)
	require.NoError(t, err)
	c, err = c.Reactivate(date(2024, 4, 10), now)
	require.NoError(t, err)

	planned, err := backfillGenerator().WithGapPolicy(valueobject.GapSkip).Plan(c, nil, date(2024, 4, 10), now)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01", "2024-02", "2024-04"}, keys(planned), "only March was suspended throughout")
}

func TestInvoiceGenerator_Plan_StrictWithoutHole(t *testing.T) {
	c := newContract(t, date(2024, 1, 1), "100.00")
	history := monthlyInvoices(t, c.ID(), "100", time.January, time.February)

	gen := service.NewInvoiceGenerator(valueobject.DefaultDueRule(), valueobject.GapStrict)
	planned, err := gen.Plan(c, history, date(2024, 3, 1), now)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03"}, keys(planned))
}

func TestInvoiceGenerator_Plan_DueRuleOffset(t *testing.T) {
	rule, err := valueobject.NewDueRule("period_start", 9)
	require.NoError(t, err)
	gen := service.NewInvoiceGenerator(rule, valueobject.GapBackfill)
	c := newContract(t, date(2024, 1, 1), "100.00")

	planned, err := gen.Plan(c, nil, date(2024, 1, 1), now)
	require.NoError(t, err)
	require.Len(t, planned, 1)
	assert.Equal(t, date(2024, 1, 10), planned[0].DueDate())
}
