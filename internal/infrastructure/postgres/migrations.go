package postgres

import (
	"embed"

	pkgpostgres "github.com/hennyhux/changsheng/pkg/postgres"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// NewMigrator returns a migrator over the ledger schema compiled into the binary.
func NewMigrator(dsn string) (*pkgpostgres.Migrator, error) {
	return pkgpostgres.NewEmbeddedMigrator(dsn, migrationFS, "migrations")
}

// Migrate brings the ledger schema up to date.
func Migrate(dsn string) error {
	mg, err := NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer mg.Close()
	return mg.Up()
}
