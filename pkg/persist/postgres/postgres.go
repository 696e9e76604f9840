// Package postgres provides a PostgreSQL implementation of persist.Persister.
// The whole credential store is kept as one JSONB document in a singleton
// row, replaced wholesale on every save. It uses pgx/v5 for connection
// pooling.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/torwart-dev/torwart/pkg/credstore"
	"github.com/torwart-dev/torwart/pkg/persist"
)

// Persister is a PostgreSQL-backed credential store persister.
type Persister struct {
	pool *pgxpool.Pool
}

// Ensure Persister implements persist.Persister at compile time.
var _ persist.Persister = (*Persister)(nil)

// New creates a new PostgreSQL persister with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Persister, error) {
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

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	p := &Persister{pool: pool}

	if cfg.MigrateOnStart {
		if err := p.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return p, nil
}

// Load reads the snapshot row. A missing row yields an empty aggregate.
func (p *Persister) Load(ctx context.Context) (*credstore.Credentials, error) {
	var doc []byte
	err := p.pool.QueryRow(ctx,
		"SELECT document FROM credential_store WHERE id = 1",
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return credstore.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading credential store: %w", err)
	}

	creds := credstore.New()
	if err := json.Unmarshal(doc, creds); err != nil {
		return nil, fmt.Errorf("decoding credential store: %w", err)
	}
	creds.Normalize()
	return creds, nil
}

// Save upserts the snapshot row, replacing the previous document wholesale.
func (p *Persister) Save(ctx context.Context, creds *credstore.Credentials) error {
	doc, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encoding credential store: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO credential_store (id, document, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated_at = now()
	`, doc)
	if err != nil {
		return fmt.Errorf("saving credential store: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *Persister) Close() {
	p.pool.Close()
}
