package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hennyhux/changsheng/internal/infrastructure/config"
	"github.com/hennyhux/changsheng/internal/infrastructure/postgres"
	"github.com/hennyhux/changsheng/pkg/auth"
	"github.com/hennyhux/changsheng/pkg/tlsutil"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the ledger schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			mg, err := postgres.NewMigrator(cfg.Postgres().DSN())
			if err != nil {
				return err
			}
			defer mg.Close()

			if args[0] == "up" {
				err = mg.Up()
			} else {
				err = mg.Down()
			}
			if err != nil {
				return fmt.Errorf("migrate %s: %w", args[0], err)
			}
			v, dirty, err := mg.Version()
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("schema at version %d", v)
			if dirty {
				msg += " (dirty)"
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(msg))
			return nil
		},
	}
	return cmd
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage operator API tokens",
	}
	cmd.AddCommand(newTokenIssueCmd())
	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var (
		operator string
		name     string
		roles    []string
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a bearer token for the billing API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, r := range roles {
				if r != auth.RoleClerk && r != auth.RoleManager && r != auth.RoleAuditor {
					return fmt.Errorf("unknown role %q: want clerk, manager or auditor", r)
				}
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			svc, err := auth.NewJWTService(auth.JWTConfig{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.Issuer})
			if err != nil {
				return err
			}
			token, err := svc.GenerateToken(operator, name, roles)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "", "operator id placed in the token subject")
	cmd.Flags().StringVar(&name, "name", "", "operator display name")
	cmd.Flags().StringSliceVar(&roles, "role", []string{auth.RoleClerk}, "role to grant (repeatable)")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}

func newCertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "certs",
		Short: "Manage TLS material",
	}
	cmd.AddCommand(newCertsDevCmd())
	return cmd
}

func newCertsDevCmd() *cobra.Command {
	var (
		hosts    []string
		operator string
		out      string
	)
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Write a throwaway CA with server and client certificates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bundle, err := tlsutil.WriteDevCertificates(hosts, operator, out)
			if err != nil {
				return err
			}
			r := renderer{w: cmd.OutOrStdout()}
			r.title("Development certificates")
			r.field("CA", bundle.CA)
			r.field("Server cert", bundle.Server.Cert)
			r.field("Server key", bundle.Server.Key)
			r.field("Client cert", bundle.Client.Cert)
			r.field("Client key", bundle.Client.Key)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&hosts, "host", []string{"localhost", "127.0.0.1"}, "server host name or IP (repeatable)")
	cmd.Flags().StringVar(&operator, "operator", "billingctl", "client certificate common name")
	cmd.Flags().StringVar(&out, "out", "certs", "output directory")
	return cmd
}
