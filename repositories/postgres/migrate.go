package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/campusops/gradebook/migrations"
)

// ErrNoMigrationChange is returned by golang-migrate when the schema is
// already at the target version. RunMigrations swallows it; the export lets
// callers recognize it if they drive migrate directly.
var ErrNoMigrationChange = migrate.ErrNoChange

// RunMigrations applies the embedded SQL migrations in the given direction.
// direction must be "up" or "down". ErrNoMigrationChange is treated as
// success so re-running against an up-to-date database is a no-op.
func RunMigrations(dsn string, direction string) error {
	if dsn == "" {
		return errors.New("database DSN is not set; set DB_HOST/DB_NAME or DATABASE_URL")
	}
	if direction != "up" && direction != "down" {
		return fmt.Errorf("direction must be up or down, got %q", direction)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, dsn)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	switch direction {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
	}
	return nil
}
