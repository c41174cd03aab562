package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator applies pending schema migrations. When Dir is empty the migrations
// embedded in the binary are used.
type Migrator struct {
	DSN    string
	Dir    string
	Logger *logrus.Logger
}

func NewMigrator(dsn, dir string, logger *logrus.Logger) *Migrator {
	return &Migrator{DSN: dsn, Dir: dir, Logger: logger}
}

// Up opens a dedicated database/sql handle for the run and closes it before returning.
// migrate.ErrNoChange is not an error.
func (m *Migrator) Up(ctx context.Context) error {
	db, err := sql.Open("pgx", m.DSN)
	if err != nil {
		return fmt.Errorf("open migration db: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping migration db: %w", err)
	}

	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	mg, err := m.newMigrate(driver)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			mg.GracefulStop <- true
		case <-done:
		}
	}()

	m.logger().Info("running migrations...")
	err = mg.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger().Info("no migrations to run")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	if v, dirty, vErr := mg.Version(); vErr == nil {
		m.logger().WithFields(logrus.Fields{"version": v, "dirty": dirty}).Info("migrations applied")
	}
	return nil
}

func (m *Migrator) newMigrate(driver database.Driver) (*migrate.Migrate, error) {
	if m.Dir != "" {
		mg, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", m.Dir), "postgres", driver)
		if err != nil {
			return nil, fmt.Errorf("migration source %s: %w", m.Dir, err)
		}
		return mg, nil
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("embedded migrations: %w", err)
	}
	mg, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance: %w", err)
	}
	return mg, nil
}

func (m *Migrator) logger() *logrus.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return logrus.StandardLogger()
}
