package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSlot stores the slot in a PostgreSQL table.
type PostgresSlot struct {
	Pool *pgxpool.Pool
	name string
}

// NewPostgres connects to dsn and returns the slot called name.
// Migrations must already be applied.
func NewPostgres(ctx context.Context, dsn, name string) (*PostgresSlot, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &PostgresSlot{Pool: pool, name: name}, nil
}

// Load returns the stored blob, or ErrSlotEmpty.
func (p *PostgresSlot) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := p.Pool.QueryRow(ctx,
		`SELECT data FROM slots WHERE name = $1`, p.name,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("loading slot %s: %w", p.name, err)
	}
	return data, nil
}

// Save overwrites the slot with data.
func (p *PostgresSlot) Save(ctx context.Context, data []byte) error {
	_, err := p.Pool.Exec(ctx,
		`INSERT INTO slots (name, data, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		p.name, data)
	if err != nil {
		return fmt.Errorf("saving slot %s: %w", p.name, err)
	}
	return nil
}

// Close closes the connection pool.
func (p *PostgresSlot) Close() error {
	p.Pool.Close()
	return nil
}
