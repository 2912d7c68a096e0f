package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"buyScope/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS pools (
	chain_id   BIGINT NOT NULL,
	chain_name TEXT NOT NULL DEFAULT '',
	explorer   TEXT NOT NULL DEFAULT '',
	protocol   TEXT NOT NULL,
	address    TEXT NOT NULL,
	pool_id    TEXT NOT NULL DEFAULT '',
	token0     TEXT NOT NULL DEFAULT '',
	token1     TEXT NOT NULL DEFAULT '',
	fee        INTEGER NOT NULL DEFAULT 0,
	tokens     TEXT[] NOT NULL DEFAULT '{}',
	label      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, address, pool_id)
);
CREATE TABLE IF NOT EXISTS backfill_state (
	name                 TEXT PRIMARY KEY,
	last_processed_block BIGINT NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for the pool registry and backfill
// progress.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables used by the store.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// UpsertPools inserts or updates pool descriptors.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolDescriptor) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		tokens := pool.Tokens
		if tokens == nil {
			tokens = []string{}
		}
		batch.Queue(`
			INSERT INTO pools (
				chain_id, chain_name, explorer, protocol, address, pool_id, token0, token1, fee, tokens, label, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
			ON CONFLICT (chain_id, address, pool_id)
			DO UPDATE SET
				chain_name = EXCLUDED.chain_name,
				explorer = EXCLUDED.explorer,
				protocol = EXCLUDED.protocol,
				token0 = EXCLUDED.token0,
				token1 = EXCLUDED.token1,
				fee = EXCLUDED.fee,
				tokens = EXCLUDED.tokens,
				label = EXCLUDED.label,
				updated_at = now()
		`,
			int64(pool.ChainID),
			pool.ChainName,
			pool.Explorer,
			pool.Protocol.String(),
			pool.Address,
			pool.PoolID,
			pool.Token0,
			pool.Token1,
			int64(pool.Fee),
			tokens,
			pool.Label,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadPools returns every stored pool descriptor.
func (s *Store) LoadPools(ctx context.Context) ([]model.PoolDescriptor, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chain_id, chain_name, explorer, protocol, address, pool_id, token0, token1, fee, tokens, label
		FROM pools
		ORDER BY chain_id, label
	`)
	if err != nil {
		return nil, fmt.Errorf("query pools: %w", err)
	}
	defer rows.Close()

	var pools []model.PoolDescriptor
	for rows.Next() {
		var (
			pool     model.PoolDescriptor
			chainID  int64
			protocol string
			fee      int64
		)
		if err := rows.Scan(&chainID, &pool.ChainName, &pool.Explorer, &protocol, &pool.Address, &pool.PoolID,
			&pool.Token0, &pool.Token1, &fee, &pool.Tokens, &pool.Label); err != nil {
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		parsed, err := model.ParseProtocol(protocol)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", pool.Address, err)
		}
		pool.ChainID = uint64(chainID)
		pool.Protocol = parsed
		pool.Fee = uint32(fee)
		pools = append(pools, pool)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pools: %w", err)
	}
	return pools, nil
}

// LoadState returns last_processed_block for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var block int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_block FROM backfill_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(block), true, nil
}

// SaveState upserts last_processed_block for a name.
func (s *Store) SaveState(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO backfill_state (name, last_processed_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_block = EXCLUDED.last_processed_block, updated_at = now()
	`, name, int64(block))
	return err
}

// Checkpoint adapts the state table to a named backfill checkpoint.
type Checkpoint struct {
	store *Store
	name  string
}

// NewCheckpoint returns a checkpoint stored under name.
func NewCheckpoint(store *Store, name string) *Checkpoint {
	return &Checkpoint{store: store, name: name}
}

func (c *Checkpoint) Load(ctx context.Context) (uint64, bool, error) {
	return c.store.LoadState(ctx, c.name)
}

func (c *Checkpoint) Save(ctx context.Context, block uint64) error {
	return c.store.SaveState(ctx, c.name, block)
}
