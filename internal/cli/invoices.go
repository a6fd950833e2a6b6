package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hennyhux/changsheng/internal/application/dto"
)

func newInvoicesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "Generate and list monthly invoices",
	}
	cmd.AddCommand(newInvoicesGenerateCmd(a))
	cmd.AddCommand(newInvoicesListCmd(a))
	return cmd
}

func newInvoicesGenerateCmd(a *app) *cobra.Command {
	var (
		asOf string
		gaps string
		all  bool
	)
	cmd := &cobra.Command{
		Use:   "generate [contract-id]",
		Short: "Issue every invoice due through a date",
		Long:  "Issue the invoices a contract owes through --as-of (today by default). With --all, every contract is billed.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return errors.New("pass either a contract id or --all")
			}
			if all && gaps != "" {
				return errors.New("--gaps applies to a single contract")
			}
			day, err := parseOptionalDay("as-of", asOf)
			if err != nil {
				return err
			}
			b, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			r := renderer{w: cmd.OutOrStdout(), currency: b.Currency}

			if all {
				res, err := b.UseCases.GenerateAllInvoices.Execute(cmd.Context(), dto.GenerateAllInvoicesRequest{AsOf: day})
				if err != nil {
					return err
				}
				r.title("Billing run through " + date(res.AsOf))
				r.field("Contracts", fmt.Sprintf("%d", res.Contracts))
				r.field("Invoices", fmt.Sprintf("%d", res.Created))
				if len(res.Failures) > 0 {
					rows := make([][]string, 0, len(res.Failures))
					for _, f := range res.Failures {
						rows = append(rows, []string{f.ContractID.String(), f.Error})
					}
					r.table([]string{"Contract", "Error"}, rows)
					return fmt.Errorf("%d of %d contracts failed to bill", len(res.Failures), res.Contracts)
				}
				return nil
			}

			id, err := parseID("contract", args[0])
			if err != nil {
				return err
			}
			res, err := b.UseCases.GenerateInvoices.Execute(cmd.Context(), dto.GenerateInvoicesRequest{
				ContractID: id,
				AsOf:       day,
				GapPolicy:  gaps,
			})
			if err != nil {
				return err
			}
			r.title(fmt.Sprintf("%d invoice(s) issued through %s", len(res.Created), date(res.AsOf)))
			r.invoices(res.Created)
			if res.CreditApplied.IsPositive() {
				r.note("Credit applied: " + r.amount(res.CreditApplied))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "bill through this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&all, "all", false, "bill every contract")
	cmd.Flags().StringVar(&gaps, "gaps", "", "override the gap policy for this run (backfill, skip or strict)")
	return cmd
}

func newInvoicesListCmd(a *app) *cobra.Command {
	var today string
	cmd := &cobra.Command{
		Use:   "list <contract-id>",
		Short: "List a contract's invoices with their status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("contract", args[0])
			if err != nil {
				return err
			}
			day, err := parseOptionalDay("today", today)
			if err != nil {
				return err
			}
			b, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			invs, err := b.UseCases.ListInvoices.Execute(cmd.Context(), dto.ListInvoicesRequest{ContractID: id, Today: day})
			if err != nil {
				return err
			}
			renderer{w: cmd.OutOrStdout(), currency: b.Currency}.invoices(invs)
			return nil
		},
	}
	cmd.Flags().StringVar(&today, "today", "", "evaluate status as of this date")
	return cmd
}
