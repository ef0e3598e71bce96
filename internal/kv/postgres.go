package kv

import (
	"context"
	"embed"
	"errors"
	"fmt"

	carterrors "github.com/abgdnv/gomarketplace/internal/errors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	getQuery = `SELECT value FROM kv_store WHERE key = $1`
	setQuery = `INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
)

// Postgres implements Storage using a single kv_store table.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres creates a new Postgres storage using a connection pool.
func NewPostgres(dbp *pgxpool.Pool) *Postgres {
	return &Postgres{db: dbp}
}

// Migrate applies the embedded kv_store migrations to the database at databaseURL.
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		_, _ = m.Close()
	}()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Get retrieves the value stored under key.
// Returns ErrKeyNotFound if no row exists for key.
func (p *Postgres) Get(ctx context.Context, key string) (string, error) {
	var value string
	if err := p.db.QueryRow(ctx, getQuery, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", carterrors.ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to get value for key %q: %w", key, err)
	}
	return value, nil
}

// Set upserts value under key.
func (p *Postgres) Set(ctx context.Context, key, value string) error {
	if _, err := p.db.Exec(ctx, setQuery, key, value); err != nil {
		return fmt.Errorf("failed to set value for key %q: %w", key, err)
	}
	return nil
}

// Ping checks the connection to the database.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}
