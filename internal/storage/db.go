package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ErrSlotEmpty is returned by Load when nothing has been saved under the slot name yet.
var ErrSlotEmpty = errors.New("slot is empty")

// DefaultSlot is the slot name used when none is configured.
const DefaultSlot = "sessions"

// Backend is a single named slot holding one serialized blob.
// Save overwrites the whole slot.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Close() error
}

//go:embed migrations
var migrationsFS embed.FS

// Open returns the backend for driver ("sqlite", "postgres" or "memory").
// For sqlite, dsn is a file path; for postgres, a connection string.
// Migrations are applied before the backend is returned.
func Open(ctx context.Context, driver, dsn, slot string) (Backend, error) {
	if slot == "" {
		slot = DefaultSlot
	}
	switch driver {
	case "sqlite":
		return OpenSQLite(dsn, slot)
	case "postgres":
		if err := RunMigrations("postgres", dsn); err != nil {
			return nil, err
		}
		return NewPostgres(ctx, dsn, slot)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// RunMigrations applies all pending migrations for driver against dsn.
func RunMigrations(driver, dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return fmt.Errorf("loading %s migrations: %w", driver, err)
	}

	url := dsn
	if driver == "sqlite" {
		url = "sqlite://" + dsn
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
