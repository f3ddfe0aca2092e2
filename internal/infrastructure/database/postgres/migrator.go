package postgres

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq" // database/sql driver for the migration connection

	"github.com/turtacn/deid-reconcile/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// sqlOpen is a variable to allow replacing the driver in tests.
var sqlOpen = sql.Open

// ─────────────────────────────────────────────────────────────────────────────
// Migrator construction
// ─────────────────────────────────────────────────────────────────────────────

// newMigrator opens a lib/pq connection for dsn and binds it to the embedded
// migration source.  Closing the returned Migrate closes the connection.
func newMigrator(dsn string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSinkMigration, "failed to open embedded migrations")
	}

	db, err := sqlOpen("postgres", dsn)
	if err != nil {
		src.Close()
		return nil, errors.Wrap(err, errors.ErrCodeSinkConnect, "failed to open migration connection")
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{MigrationsTable: "deid_schema_migrations"})
	if err != nil {
		src.Close()
		db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeSinkConnect, "failed to create migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		src.Close()
		driver.Close()
		return nil, errors.Wrap(err, errors.ErrCodeSinkMigration, "failed to create migrate instance")
	}
	return m, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Operations
// ─────────────────────────────────────────────────────────────────────────────

// RunMigrations applies every pending migration.  No pending migration is
// not an error.
func RunMigrations(dsn string) error {
	m, err := newMigrator(dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		version, _, _ := m.Version()
		return errors.Wrap(err, errors.ErrCodeSinkMigration, "failed to run migrations").
			WithDetail(fmt.Sprintf("version=%d", version))
	}
	return nil
}

// RollbackMigration reverts steps migrations.
func RollbackMigration(dsn string, steps int) error {
	if steps <= 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid, "steps must be greater than 0, got %d", steps)
	}

	m, err := newMigrator(dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return errors.New(errors.ErrCodeSinkMigration, "no migrations to roll back")
		}
		return errors.Wrap(err, errors.ErrCodeSinkMigration, "failed to roll back migrations").
			WithDetail(fmt.Sprintf("steps=%d", steps))
	}
	return nil
}

// MigrationStatus returns the applied version and whether the last migration
// left the schema dirty.  A database without migrations reports version 0.
func MigrationStatus(dsn string) (version uint, dirty bool, err error) {
	m, err := newMigrator(dsn)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	version, dirty, err = m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, errors.ErrCodeSinkMigration, "failed to get migration version")
	}
	return version, dirty, nil
}

// MigrationFiles lists the embedded migration file names.
func MigrationFiles() ([]string, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

//Personal.AI order the ending
