package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/domain/valueobject"
	"github.com/hennyhux/changsheng/pkg/money"
)

var (
	accent  = lipgloss.Color("#0EA5E9")
	dim     = lipgloss.Color("#6B7280")
	success = lipgloss.Color("#22C55E")
	danger  = lipgloss.Color("#EF4444")
	warning = lipgloss.Color("#F59E0B")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle  = lipgloss.NewStyle().Foreground(dim).Width(16)
	dimStyle    = lipgloss.NewStyle().Foreground(dim)
	okStyle     = lipgloss.NewStyle().Foreground(success)
	alertStyle  = lipgloss.NewStyle().Foreground(danger).Bold(true)
	noticeStyle = lipgloss.NewStyle().Foreground(warning)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)

	statusStyles = map[string]lipgloss.Style{
		valueobject.InvoicePaid.String():    okStyle,
		valueobject.InvoiceOverdue.String(): alertStyle,
		valueobject.InvoiceDue.String():     noticeStyle,
	}
)

type renderer struct {
	w        io.Writer
	currency money.Currency
}

func (r renderer) amount(d decimal.Decimal) string {
	return money.Format(d, r.currency)
}

func (r renderer) title(s string) {
	fmt.Fprintln(r.w, titleStyle.Render(s))
}

func (r renderer) field(label, value string) {
	fmt.Fprintln(r.w, labelStyle.Render(label)+value)
}

func (r renderer) note(s string) {
	fmt.Fprintln(r.w, noticeStyle.Render(s))
}

func (r renderer) table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(r.w, dimStyle.Render("(none)"))
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(r.w, t.Render())
}

func date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(valueobject.DateLayout)
}

func status(s string) string {
	if st, ok := statusStyles[s]; ok {
		return st.Render(s)
	}
	return s
}

func (r renderer) contract(c dto.ContractResponse) {
	r.title("Contract " + c.ID.String())
	r.field("Customer", strings.TrimSpace(c.CustomerName+" "+dimStyle.Render(c.CustomerID.String())))
	if c.TruckPlate != "" {
		r.field("Truck", c.TruckPlate)
	}
	r.field("Monthly rate", r.amount(c.MonthlyRate))
	r.field("Billing day", fmt.Sprintf("%d", c.BillingDay))
	end := "open-ended"
	if c.EndDate != nil {
		end = date(*c.EndDate)
	}
	r.field("Term", date(c.StartDate)+" to "+end)
	if c.Active {
		r.field("Status", okStyle.Render("active"))
	} else {
		r.field("Status", dimStyle.Render("inactive"))
	}
	if c.Credit.IsPositive() {
		r.field("Credit", r.amount(c.Credit))
	}
	if len(c.Rates) > 1 {
		rows := make([][]string, 0, len(c.Rates))
		for _, rc := range c.Rates {
			rows = append(rows, []string{date(rc.EffectiveFrom), r.amount(rc.MonthlyRate)})
		}
		r.table([]string{"Effective", "Rate"}, rows)
	}
	for _, sp := range c.Suspensions {
		r.field("Suspended", date(sp.From)+" to "+date(sp.To))
	}
}

func (r renderer) invoices(invs []dto.InvoiceResponse) {
	rows := make([][]string, 0, len(invs))
	for _, inv := range invs {
		rows = append(rows, []string{
			inv.PeriodKey,
			date(inv.PeriodStart) + " - " + date(inv.PeriodEnd),
			date(inv.DueDate),
			r.amount(inv.Billed),
			r.amount(inv.Paid),
			r.amount(inv.Remaining),
			status(inv.Status),
		})
	}
	r.table([]string{"Period", "Covers", "Due", "Billed", "Paid", "Remaining", "Status"}, rows)
}

func (r renderer) payment(p dto.PaymentResponse) {
	r.title("Payment " + p.ID.String())
	r.field("Received", date(p.ReceivedOn))
	r.field("Amount", r.amount(p.Amount))
	r.field("Method", p.Method)
	if p.Note != "" {
		r.field("Note", p.Note)
	}
	rows := make([][]string, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		rows = append(rows, []string{a.PeriodKey, r.amount(a.BalanceBefore), r.amount(a.Amount), r.amount(a.BalanceAfter)})
	}
	r.table([]string{"Period", "Before", "Applied", "After"}, rows)
	if p.Credit.IsPositive() {
		r.note("Held as credit: " + r.amount(p.Credit))
	}
}

func (r renderer) payments(ps []dto.PaymentResponse) {
	rows := make([][]string, 0, len(ps))
	for _, p := range ps {
		periods := make([]string, 0, len(p.Allocations))
		for _, a := range p.Allocations {
			periods = append(periods, a.PeriodKey)
		}
		rows = append(rows, []string{
			date(p.ReceivedOn),
			r.amount(p.Amount),
			p.Method,
			strings.Join(periods, ", "),
			r.amount(p.Credit),
			p.Note,
		})
	}
	r.table([]string{"Received", "Amount", "Method", "Applied to", "Credit", "Note"}, rows)
}
