package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/fatali-fataliyev/student_expense_tracker/config"
	"github.com/fatali-fataliyev/student_expense_tracker/logging"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migrateMysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratePgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migrateSqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations applies the embedded migrations of the driver's dialect.
// It uses its own connection since closing the migrator closes the handle.
func RunMigrations(driver string, dsn string) error {
	d, err := dialectFor(driver)
	if err != nil {
		return err
	}

	migrateDB, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration database: %w", err)
	}
	defer migrateDB.Close()

	var instance database.Driver
	switch driver {
	case config.DriverSQLite:
		instance, err = migrateSqlite.WithInstance(migrateDB, &migrateSqlite.Config{})
	case config.DriverMySQL:
		instance, err = migrateMysql.WithInstance(migrateDB, &migrateMysql.Config{})
	case config.DriverPostgres:
		instance, err = migratePgx.WithInstance(migrateDB, &migratePgx.Config{})
	}
	if err != nil {
		return fmt.Errorf("failed to create %s migration driver: %w", driver, err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driver, instance)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logging.Logger.Info("no new migration")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, _ := m.Version()
	logging.Logger.Infof("migrations applied, schema version: %d", version)
	return nil
}
