package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hennyhux/changsheng/internal/application/dto"
)

func newBalanceCmd(a *app) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "balance <contract-id>",
		Short: "Show what a contract owes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("contract", args[0])
			if err != nil {
				return err
			}
			day, err := parseOptionalDay("as-of", asOf)
			if err != nil {
				return err
			}
			b, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			res, err := b.UseCases.OutstandingBalance.Execute(cmd.Context(), dto.OutstandingBalanceRequest{ContractID: id, AsOf: day})
			if err != nil {
				return err
			}
			r := renderer{w: cmd.OutOrStdout(), currency: b.Currency}
			r.title("Balance as of " + date(res.AsOf))
			r.field("Outstanding", r.amount(res.Outstanding))
			if res.Credit.IsPositive() {
				r.field("Credit", r.amount(res.Credit))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "evaluate as of this date (YYYY-MM-DD)")
	return cmd
}

func newOverdueCmd(a *app) *cobra.Command {
	var today string
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List contracts with overdue invoices, most overdue first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := parseOptionalDay("today", today)
			if err != nil {
				return err
			}
			b, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			res, err := b.UseCases.ListOverdueContracts.Execute(cmd.Context(), dto.ListOverdueContractsRequest{Today: day})
			if err != nil {
				return err
			}
			r := renderer{w: cmd.OutOrStdout(), currency: b.Currency}
			rows := make([][]string, 0, len(res))
			for _, o := range res {
				rows = append(rows, []string{
					o.Contract.ID.String(),
					o.Contract.CustomerName,
					o.Contract.TruckPlate,
					o.OldestUnpaid.PeriodKey,
					fmt.Sprintf("%d", o.DaysLate),
					fmt.Sprintf("%d", o.OverdueCount),
					alertStyle.Render(r.amount(o.OverdueAmount)),
				})
			}
			r.table([]string{"Contract", "Customer", "Truck", "Oldest", "Days late", "Invoices", "Overdue"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&today, "today", "", "evaluate as of this date (YYYY-MM-DD)")
	return cmd
}

func newStatementCmd(a *app) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "statement <contract-id>",
		Short: "Summarize one billing month of a contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("contract", args[0])
			if err != nil {
				return err
			}
			m, err := time.Parse("2006-01", month)
			if err != nil {
				return fmt.Errorf("--month %q: want YYYY-MM", month)
			}
			b, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			res, err := b.UseCases.ContractStatement.Execute(cmd.Context(), dto.ContractStatementRequest{
				ContractID: id,
				Year:       m.Year(),
				Month:      m.Month(),
			})
			if err != nil {
				return err
			}
			r := renderer{w: cmd.OutOrStdout(), currency: b.Currency}
			r.title(fmt.Sprintf("Statement %s to %s", date(res.PeriodStart), date(res.PeriodEnd)))
			r.field("Customer", res.Contract.CustomerName)
			r.field("Previous", r.amount(res.PreviousBalance))
			r.field("Expected", r.amount(res.Expected))
			r.field("Paid", r.amount(res.PaidInPeriod))
			r.field("Ending", r.amount(res.EndingBalance))
			if res.Credit.IsPositive() {
				r.field("Credit", r.amount(res.Credit))
			}
			if res.Invoice != nil {
				r.invoices([]dto.InvoiceResponse{*res.Invoice})
			}
			r.payments(res.Payments)
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "billing month (YYYY-MM)")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func newLedgerCmd(a *app) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "ledger <customer-id>",
		Short: "Show every contract of a customer with totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("customer", args[0])
			if err != nil {
				return err
			}
			day, err := parseOptionalDay("as-of", asOf)
			if err != nil {
				return err
			}
			b, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			res, err := b.UseCases.CustomerLedger.Execute(cmd.Context(), dto.CustomerLedgerRequest{CustomerID: id, AsOf: day})
			if err != nil {
				return err
			}
			r := renderer{w: cmd.OutOrStdout(), currency: b.Currency}
			r.title(fmt.Sprintf("%s as of %s", res.CustomerName, date(res.AsOf)))
			rows := make([][]string, 0, len(res.Contracts))
			for _, line := range res.Contracts {
				flag := ""
				if line.Overdue {
					flag = alertStyle.Render("OVERDUE")
				}
				rows = append(rows, []string{
					line.Contract.ID.String(),
					line.Contract.TruckPlate,
					r.amount(line.Billed),
					r.amount(line.Outstanding),
					flag,
				})
			}
			r.table([]string{"Contract", "Truck", "Billed", "Outstanding", ""}, rows)
			r.field("Total billed", r.amount(res.TotalBilled))
			r.field("Outstanding", r.amount(res.TotalOutstanding))
			if res.TotalCredit.IsPositive() {
				r.field("Credit", r.amount(res.TotalCredit))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "evaluate as of this date (YYYY-MM-DD)")
	return cmd
}

func newBackfillCmd(a *app) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "backfill <contract-id>",
		Short: "Reprice issued invoices from a date at the contract's current rates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("contract", args[0])
			if err != nil {
				return err
			}
			start, err := parseDay("from", from)
			if err != nil {
				return err
			}
			b, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			res, err := b.UseCases.BackfillRate.Execute(cmd.Context(), dto.BackfillRateRequest{ContractID: id, From: start})
			if err != nil {
				return err
			}
			r := renderer{w: cmd.OutOrStdout(), currency: b.Currency}
			r.title(fmt.Sprintf("%d invoice(s) repriced", len(res.Updated)))
			r.invoices(res.Updated)
			r.field("Net change", r.amount(res.Delta))
			if res.CreditApplied.IsPositive() {
				r.note("Credit applied: " + r.amount(res.CreditApplied))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first period start to reprice (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
