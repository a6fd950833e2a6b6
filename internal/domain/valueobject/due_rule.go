package valueobject

import (
	"fmt"
	"strings"
	"time"
)

// DueAnchor selects the period boundary a due date is measured from.
type DueAnchor string

const (
	DueFromPeriodEnd   DueAnchor = "period_end"
	DueFromPeriodStart DueAnchor = "period_start"
)

// DueRule computes an invoice due date from its billing period.
type DueRule struct {
	anchor     DueAnchor
	offsetDays int
}

func NewDueRule(anchor string, offsetDays int) (DueRule, error) {
	a := DueAnchor(strings.ToLower(strings.TrimSpace(anchor)))
	switch a {
	case "":
		a = DueFromPeriodEnd
	case DueFromPeriodEnd, DueFromPeriodStart:
	default:
		return DueRule{}, fmt.Errorf("invalid due anchor %q", anchor)
	}
	if offsetDays < 0 || offsetDays > 60 {
		return DueRule{}, fmt.Errorf("invalid due offset %d: must be between 0 and 60 days", offsetDays)
	}
	return DueRule{anchor: a, offsetDays: offsetDays}, nil
}

// DefaultDueRule makes an invoice due on the last day of its period.
func DefaultDueRule() DueRule {
	return DueRule{anchor: DueFromPeriodEnd}
}

func (r DueRule) Anchor() DueAnchor { return r.anchor }
func (r DueRule) OffsetDays() int   { return r.offsetDays }

func (r DueRule) DueDate(p BillingPeriod) time.Time {
	base := p.End()
	if r.anchor == DueFromPeriodStart {
		base = p.Start()
	}
	return base.AddDate(0, 0, r.offsetDays)
}
