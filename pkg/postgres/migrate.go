package postgres

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // register postgres driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // register file source driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrator applies schema migrations from either a file:// URL or an embedded
// filesystem.
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator reads migrations from a source URL such as "file://./migrations".
func NewMigrator(dsn, sourceURL string) (*Migrator, error) {
	m, err := migrate.New(sourceURL, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: create migrator: %w", err)
	}
	return &Migrator{m: m}, nil
}

// NewEmbeddedMigrator reads migrations from dir inside fsys, usually an
// embed.FS compiled into the binary.
func NewEmbeddedMigrator(dsn string, fsys fs.FS, dir string) (*Migrator, error) {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("postgres: open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: create migrator: %w", err)
	}
	return &Migrator{m: m}, nil
}

// Up applies all pending migrations. No pending migrations is not an error.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("postgres: run migrations up: %w", err)
	}
	return nil
}

// Down rolls back every migration.
func (mg *Migrator) Down() error {
	if err := mg.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("postgres: run migrations down: %w", err)
	}
	return nil
}

// Version reports the applied schema version and whether the last migration
// failed halfway.
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("postgres: read migration version: %w", err)
	}
	return v, dirty, nil
}

func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

// RunMigrations applies all pending migrations from a source URL.
func RunMigrations(dsn string, sourceURL string) error {
	mg, err := NewMigrator(dsn, sourceURL)
	if err != nil {
		return err
	}
	defer mg.Close()
	return mg.Up()
}

// RunMigrationsDown rolls back all migrations from a source URL.
func RunMigrationsDown(dsn string, sourceURL string) error {
	mg, err := NewMigrator(dsn, sourceURL)
	if err != nil {
		return err
	}
	defer mg.Close()
	return mg.Down()
}
