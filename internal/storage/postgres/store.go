package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"priceScope/internal/model"
)

// Store provides Postgres persistence for tokens, pairs, the bundle,
// and tracked flows.
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

// UpsertTokens inserts or updates token records.
func (s *Store) UpsertTokens(ctx context.Context, tokens []model.Token) error {
	if len(tokens) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, token := range tokens {
		batch.Queue(`
			INSERT INTO tokens (
				address, symbol, name, decimals, derived_base, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (address)
			DO UPDATE SET
				symbol = EXCLUDED.symbol,
				name = EXCLUDED.name,
				decimals = EXCLUDED.decimals,
				derived_base = EXCLUDED.derived_base,
				updated_at = now()
		`,
			token.Address,
			token.Symbol,
			token.Name,
			token.Decimals,
			token.DerivedBase.String(),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range tokens {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertPairs inserts or updates pair records.
func (s *Store) UpsertPairs(ctx context.Context, pairs []model.Pair) error {
	if len(pairs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pair := range pairs {
		batch.Queue(`
			INSERT INTO pairs (
				address, token0, token1, reserve0, reserve1,
				token0_price, token1_price, reserve_base, liquidity_provider_count,
				volume_token0, volume_token1, volume_usd, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now(),now())
			ON CONFLICT (address)
			DO UPDATE SET
				reserve0 = EXCLUDED.reserve0,
				reserve1 = EXCLUDED.reserve1,
				token0_price = EXCLUDED.token0_price,
				token1_price = EXCLUDED.token1_price,
				reserve_base = EXCLUDED.reserve_base,
				liquidity_provider_count = EXCLUDED.liquidity_provider_count,
				volume_token0 = EXCLUDED.volume_token0,
				volume_token1 = EXCLUDED.volume_token1,
				volume_usd = EXCLUDED.volume_usd,
				updated_at = now()
		`,
			pair.Address,
			pair.Token0,
			pair.Token1,
			pair.Reserve0.String(),
			pair.Reserve1.String(),
			pair.Token0Price.String(),
			pair.Token1Price.String(),
			pair.ReserveBase.String(),
			int64(pair.LiquidityProviderCount),
			pair.VolumeToken0.String(),
			pair.VolumeToken1.String(),
			pair.VolumeUSD.String(),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pairs {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertBundle updates the singleton base-asset price record.
func (s *Store) UpsertBundle(ctx context.Context, bundle model.Bundle) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO bundle (id, base_price_usd, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET base_price_usd = EXCLUDED.base_price_usd, updated_at = now()
	`, model.BundleID, bundle.BasePriceUSD.String())
	return err
}

// InsertFlows appends tracked flow records. Re-ingested events replace
// their previous row, keyed by transaction hash and log index.
func (s *Store) InsertFlows(ctx context.Context, flows []model.TrackedFlow) error {
	if len(flows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, flow := range flows {
		batch.Queue(`
			INSERT INTO tracked_flows (
				chain_id, pair_address, event_name, tx_hash, log_index,
				event_ts, amount0, amount1, tracked_usd, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())
			ON CONFLICT (tx_hash, log_index)
			DO UPDATE SET
				tracked_usd = EXCLUDED.tracked_usd,
				amount0 = EXCLUDED.amount0,
				amount1 = EXCLUDED.amount1
		`,
			int64(flow.ChainID),
			flow.PairAddress,
			flow.EventName,
			flow.TxHash,
			int64(flow.LogIndex),
			int64(flow.Timestamp),
			flow.Amount0,
			flow.Amount1,
			flow.TrackedUSD,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range flows {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadToken returns the token record for an address.
func (s *Store) LoadToken(ctx context.Context, address string) (model.Token, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT address, symbol, name, decimals, derived_base
		FROM tokens WHERE address=$1
	`, address)

	var token model.Token
	var derived string
	if err := row.Scan(&token.Address, &token.Symbol, &token.Name, &token.Decimals, &derived); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Token{}, false, nil
		}
		return model.Token{}, false, err
	}

	parsed, err := decimal.NewFromString(derived)
	if err != nil {
		return model.Token{}, false, fmt.Errorf("parse derived_base for %s: %w", address, err)
	}
	token.DerivedBase = parsed
	return token, true, nil
}

// LoadPair returns the pair record for an address.
func (s *Store) LoadPair(ctx context.Context, address string) (model.Pair, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT address, token0, token1, reserve0, reserve1,
			token0_price, token1_price, reserve_base, liquidity_provider_count,
			volume_token0, volume_token1, volume_usd
		FROM pairs WHERE address=$1
	`, address)

	var pair model.Pair
	var providerCount int64
	raw := make([]string, 8)
	if err := row.Scan(
		&pair.Address, &pair.Token0, &pair.Token1, &raw[0], &raw[1],
		&raw[2], &raw[3], &raw[4], &providerCount,
		&raw[5], &raw[6], &raw[7],
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Pair{}, false, nil
		}
		return model.Pair{}, false, err
	}

	fields := []*decimal.Decimal{
		&pair.Reserve0, &pair.Reserve1,
		&pair.Token0Price, &pair.Token1Price, &pair.ReserveBase,
		&pair.VolumeToken0, &pair.VolumeToken1, &pair.VolumeUSD,
	}
	for i, field := range fields {
		parsed, err := decimal.NewFromString(raw[i])
		if err != nil {
			return model.Pair{}, false, fmt.Errorf("parse pair field for %s: %w", address, err)
		}
		*field = parsed
	}
	pair.LiquidityProviderCount = uint64(providerCount)

	return pair, true, nil
}

// LoadBundle returns the singleton base-asset price record.
func (s *Store) LoadBundle(ctx context.Context) (model.Bundle, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT base_price_usd FROM bundle WHERE id=$1`, model.BundleID)

	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Bundle{}, false, nil
		}
		return model.Bundle{}, false, err
	}

	parsed, err := decimal.NewFromString(raw)
	if err != nil {
		return model.Bundle{}, false, fmt.Errorf("parse base_price_usd: %w", err)
	}
	return model.Bundle{BasePriceUSD: parsed}, true, nil
}

// LoadState returns last_processed_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts uint64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM tracker_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return ts, true, nil
}

// SaveState upserts last_processed_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tracker_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, ts)
	return err
}
