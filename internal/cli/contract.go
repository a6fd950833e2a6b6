package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/domain/valueobject"
	"github.com/hennyhux/changsheng/pkg/money"
)

func newContractCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contract",
		Short: "Create, inspect and change parking contracts",
	}
	cmd.AddCommand(newContractCreateCmd(a))
	cmd.AddCommand(newContractShowCmd(a))
	cmd.AddCommand(newContractListCmd(a))
	cmd.AddCommand(newContractRateCmd(a))
	cmd.AddCommand(newContractDeactivateCmd(a))
	cmd.AddCommand(newContractActivateCmd(a))
	return cmd
}

func newContractCreateCmd(a *app) *cobra.Command {
	var (
		customer   string
		name       string
		plate      string
		rate       string
		start      string
		end        string
		billingDay int
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a contract for a truck",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := dto.CreateContractRequest{
				CustomerName: name,
				TruckPlate:   plate,
				BillingDay:   billingDay,
			}
			var err error
			if customer == "" {
				req.CustomerID = uuid.New()
			} else if req.CustomerID, err = parseID("customer", customer); err != nil {
				return err
			}
			if req.MonthlyRate, err = parseMoney("rate", rate); err != nil {
				return err
			}
			if req.StartDate, err = parseDay("start", start); err != nil {
				return err
			}
			if end != "" {
				d, err := parseDay("end", end)
				if err != nil {
					return err
				}
				req.EndDate = &d
			}

			b, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			c, err := b.UseCases.CreateContract.Execute(cmd.Context(), req)
			if err != nil {
				return err
			}
			renderer{w: cmd.OutOrStdout(), currency: b.Currency}.contract(c)
			return nil
		},
	}
	cmd.Flags().StringVar(&customer, "customer", "", "customer id (a new one is generated when empty)")
	cmd.Flags().StringVar(&name, "name", "", "customer name")
	cmd.Flags().StringVar(&plate, "plate", "", "truck plate")
	cmd.Flags().StringVar(&rate, "rate", "", "monthly rate, e.g. 350.00")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&billingDay, "billing-day", 0, "day of month periods start on (defaults to the start day)")
	_ = cmd.MarkFlagRequired("rate")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newContractShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <contract-id>",
		Short: "Show a contract and its rate schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("contract", args[0])
			if err != nil {
				return err
			}
			b, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			c, err := b.UseCases.GetContract.Execute(cmd.Context(), dto.GetContractRequest{ContractID: id})
			if err != nil {
				return err
			}
			renderer{w: cmd.OutOrStdout(), currency: b.Currency}.contract(c)
			return nil
		},
	}
}

func newContractListCmd(a *app) *cobra.Command {
	var customer string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contracts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req dto.ListContractsRequest
			if customer != "" {
				id, err := parseID("customer", customer)
				if err != nil {
					return err
				}
				req.CustomerID = id
			}
			b, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			cs, err := b.UseCases.ListContracts.Execute(cmd.Context(), req)
			if err != nil {
				return err
			}
			r := renderer{w: cmd.OutOrStdout(), currency: b.Currency}
			rows := make([][]string, 0, len(cs))
			for _, c := range cs {
				state := "active"
				if !c.Active {
					state = "inactive"
				}
				rows = append(rows, []string{c.ID.String(), c.CustomerName, c.TruckPlate, r.amount(c.MonthlyRate), date(c.StartDate), state})
			}
			r.table([]string{"Contract", "Customer", "Truck", "Rate", "Start", "State"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&customer, "customer", "", "only this customer's contracts")
	return cmd
}

func newContractRateCmd(a *app) *cobra.Command {
	var rate, from string
	cmd := &cobra.Command{
		Use:   "rate <contract-id>",
		Short: "Change the monthly rate from a date onward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("contract", args[0])
			if err != nil {
				return err
			}
			amount, err := parseMoney("rate", rate)
			if err != nil {
				return err
			}
			effective, err := parseDay("from", from)
			if err != nil {
				return err
			}
			b, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			c, err := b.UseCases.UpdateContractRate.Execute(cmd.Context(), dto.UpdateContractRateRequest{
				ContractID:    id,
				MonthlyRate:   amount,
				EffectiveFrom: effective,
			})
			if err != nil {
				return err
			}
			r := renderer{w: cmd.OutOrStdout(), currency: b.Currency}
			r.contract(c)
			r.note("Invoices already issued keep their amounts; use backfill to reprice them.")
			return nil
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "new monthly rate")
	cmd.Flags().StringVar(&from, "from", "", "effective date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("rate")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func newContractDeactivateCmd(a *app) *cobra.Command {
	var end string
	cmd := &cobra.Command{
		Use:   "deactivate <contract-id>",
		Short: "End a contract on a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			endDate, err := parseDay("end", end)
			if err != nil {
				return err
			}
			return setStatus(cmd, a, args[0], dto.SetContractStatusRequest{EndDate: endDate})
		},
	}
	cmd.Flags().StringVar(&end, "end", "", "last day of the contract (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newContractActivateCmd(a *app) *cobra.Command {
	var resume string
	cmd := &cobra.Command{
		Use:   "activate <contract-id>",
		Short: "Reopen a contract and clear its end date",
		Long: "Reopen a contract and clear its end date. The days between the old end date\n" +
			"and the resume date are kept as a suspension; see invoices generate --gaps.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resumeOn, err := parseOptionalDay("resume", resume)
			if err != nil {
				return err
			}
			return setStatus(cmd, a, args[0], dto.SetContractStatusRequest{Active: true, ResumeOn: resumeOn})
		},
	}
	cmd.Flags().StringVar(&resume, "resume", "", "first billable day after the stop (YYYY-MM-DD, default today)")
	return cmd
}

func setStatus(cmd *cobra.Command, a *app, arg string, req dto.SetContractStatusRequest) error {
	id, err := parseID("contract", arg)
	if err != nil {
		return err
	}
	b, err := a.ledger(cmd.Context())
	if err != nil {
		return err
	}
	req.ContractID = id
	c, err := b.UseCases.SetContractStatus.Execute(cmd.Context(), req)
	if err != nil {
		return err
	}
	renderer{w: cmd.OutOrStdout(), currency: b.Currency}.contract(c)
	return nil
}

func parseID(what, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", what, s, err)
	}
	return id, nil
}

func parseMoney(flag, s string) (decimal.Decimal, error) {
	d, err := money.ParseAmount(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s: %w", flag, err)
	}
	return d, nil
}

func parseDay(flag, s string) (time.Time, error) {
	d, err := valueobject.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", flag, err)
	}
	return d, nil
}

// parseOptionalDay returns the zero time when the flag was left empty.
func parseOptionalDay(flag, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return parseDay(flag, s)
}
