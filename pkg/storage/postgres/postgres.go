// Package postgres provides a PostgreSQL implementation of
// storage.Persistence. It uses pgx/v5 for connection pooling and keeps the
// realm registry in the realms table.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/lakegate/pkg/debug"
	"github.com/rhuss/lakegate/pkg/storage"
)

// Store is a PostgreSQL-backed persistence handle.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.Persistence at compile time.
var _ storage.Persistence = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// RealmExists reports whether realm has a row in the realms table.
func (s *Store) RealmExists(ctx context.Context, realm string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM realms WHERE id = $1)",
		realm,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("querying realm: %w", err)
	}
	return exists, nil
}

// ListRealms returns all registered realms, sorted by identifier.
func (s *Store) ListRealms(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT id FROM realms ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing realms: %w", err)
	}
	realms, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning realms: %w", err)
	}
	return realms, nil
}

// EnsureRealm inserts realm unless it already exists.
func (s *Store) EnsureRealm(ctx context.Context, realm string) error {
	if err := storage.ValidateRealmID(realm); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		"INSERT INTO realms (id) VALUES ($1) ON CONFLICT (id) DO NOTHING",
		realm,
	)
	if err != nil {
		return fmt.Errorf("inserting realm: %w", err)
	}
	if tag.RowsAffected() > 0 {
		debug.Log("storage", "realm registered", "realm", realm)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
