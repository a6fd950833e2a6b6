package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/domain/model"
)

func newPaymentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Record, list and reset payments",
	}
	cmd.AddCommand(newPaymentRecordCmd(a))
	cmd.AddCommand(newPaymentHistoryCmd(a))
	cmd.AddCommand(newPaymentResetCmd(a))
	return cmd
}

func newPaymentRecordCmd(a *app) *cobra.Command {
	var amount, on, method, note string
	cmd := &cobra.Command{
		Use:   "record <contract-id>",
		Short: "Record a payment against the oldest open invoices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("contract", args[0])
			if err != nil {
				return err
			}
			value, err := parseMoney("amount", amount)
			if err != nil {
				return err
			}
			received, err := parseOptionalDay("on", on)
			if err != nil {
				return err
			}
			b, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			p, err := b.UseCases.RecordPayment.Execute(cmd.Context(), dto.RecordPaymentRequest{
				ContractID: id,
				Amount:     value,
				ReceivedOn: received,
				Method:     method,
				Note:       note,
			})
			var credit *model.OverpaymentCreditRecorded
			if err != nil && !errors.As(err, &credit) {
				return err
			}
			r := renderer{w: cmd.OutOrStdout(), currency: b.Currency}
			r.payment(p)
			if credit != nil {
				r.note("Contract credit balance: " + r.amount(credit.Balance))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "amount received")
	cmd.Flags().StringVar(&on, "on", "", "date received (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&method, "method", "", "cash, check, transfer or other")
	cmd.Flags().StringVar(&note, "note", "", "free-form note, e.g. a check number")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newPaymentHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <contract-id>",
		Short: "List a contract's payments",
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
			ps, err := b.UseCases.PaymentHistory.Execute(cmd.Context(), dto.PaymentHistoryRequest{ContractID: id})
			if err != nil {
				return err
			}
			renderer{w: cmd.OutOrStdout(), currency: b.Currency}.payments(ps)
			return nil
		},
	}
}

func newPaymentResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset <contract-id>",
		Short: "Delete every payment of a contract and reopen its invoices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("contract", args[0])
			if err != nil {
				return err
			}
			if !yes {
				return errors.New("payment reset deletes every payment on the contract; rerun with --yes to confirm")
			}
			b, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			res, err := b.UseCases.ResetContractPayments.Execute(cmd.Context(), dto.ResetContractPaymentsRequest{ContractID: id})
			if err != nil {
				return err
			}
			r := renderer{w: cmd.OutOrStdout(), currency: b.Currency}
			r.title("Payments reset for " + res.ContractID.String())
			r.field("Removed", fmt.Sprintf("%d payment(s), %s", res.RemovedPayments, r.amount(res.RemovedAmount)))
			r.field("Credit cleared", r.amount(res.ClearedCredit))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
