package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hennyhux/changsheng/internal/application/usecase"
	"github.com/hennyhux/changsheng/internal/infrastructure/clock"
	"github.com/hennyhux/changsheng/internal/infrastructure/config"
	"github.com/hennyhux/changsheng/internal/infrastructure/postgres"
	"github.com/hennyhux/changsheng/pkg/money"
	"github.com/hennyhux/changsheng/pkg/observability"
	pkgpostgres "github.com/hennyhux/changsheng/pkg/postgres"
)

var (
	version = "dev"
	commit  = "none"
)

// Backend is what ledger commands run against.
type Backend struct {
	UseCases *usecase.Set
	Currency money.Currency
	Close    func()
}

// Opener connects a Backend on first use.
type Opener func(ctx context.Context) (*Backend, error)

type app struct {
	open    Opener
	backend *Backend
}

func (a *app) ledger(ctx context.Context) (*Backend, error) {
	if a.backend != nil {
		return a.backend, nil
	}
	b, err := a.open(ctx)
	if err != nil {
		return nil, err
	}
	a.backend = b
	return b, nil
}

func (a *app) close() {
	if a.backend != nil && a.backend.Close != nil {
		a.backend.Close()
	}
	a.backend = nil
}

// NewRootCmd builds billingctl over the given backend.
func NewRootCmd(open Opener) *cobra.Command {
	a := &app{open: open}
	cmd := &cobra.Command{
		Use:           "billingctl",
		Short:         "Operate the truck parking billing ledger",
		Long:          "billingctl manages contracts, invoices and payments directly against the ledger database.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newContractCmd(a))
	cmd.AddCommand(newInvoicesCmd(a))
	cmd.AddCommand(newPaymentCmd(a))
	cmd.AddCommand(newBalanceCmd(a))
	cmd.AddCommand(newOverdueCmd(a))
	cmd.AddCommand(newStatementCmd(a))
	cmd.AddCommand(newLedgerCmd(a))
	cmd.AddCommand(newBackfillCmd(a))
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newCertsCmd())
	return cmd
}

func Execute() error {
	_ = godotenv.Load()
	return NewRootCmd(OpenPostgres).Execute()
}

// OpenPostgres connects to the database described by the environment.
func OpenPostgres(ctx context.Context) (*Backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	currency, err := cfg.Billing.CurrencyCode()
	if err != nil {
		return nil, err
	}
	generator, allocator, evaluator, err := cfg.Billing.Services()
	if err != nil {
		return nil, err
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:   cfg.Telemetry.LogLevel,
		Format:  "text",
		Service: "billingctl",
		Output:  os.Stderr,
	})

	pool, err := pkgpostgres.NewPool(ctx, cfg.Postgres())
	if err != nil {
		return nil, fmt.Errorf("connect ledger database: %w", err)
	}

	set := usecase.NewSet(usecase.Dependencies{
		Store:     postgres.NewLedgerStore(pool),
		Generator: generator,
		Allocator: allocator,
		Evaluator: evaluator,
		Clock:     clock.System{},
		Logger:    logger,
	})
	return &Backend{UseCases: set, Currency: currency, Close: pool.Close}, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show billingctl version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "billingctl %s (%s)\n", version, commit)
			return nil
		},
	}
}
