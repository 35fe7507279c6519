package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"crypto-price-tracker/internal/market"
)

// ErrNotConfigured indicates the storage pool was not initialised.
var ErrNotConfigured = errors.New("storage: pool not configured")

const (
	insertSnapshotSQL = `INSERT INTO market_prices (
        symbol,
        captured_at,
        coin_id,
        name,
        image,
        current_price,
        change_1h_pct,
        change_24h_pct,
        change_7d_pct,
        total_volume,
        market_cap,
        market_cap_rank,
        circulating_supply,
        max_supply,
        sparkline_7d
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
    )
    ON CONFLICT (symbol, captured_at) DO UPDATE
    SET
        coin_id            = EXCLUDED.coin_id,
        name               = EXCLUDED.name,
        image              = EXCLUDED.image,
        current_price      = EXCLUDED.current_price,
        change_1h_pct      = EXCLUDED.change_1h_pct,
        change_24h_pct     = EXCLUDED.change_24h_pct,
        change_7d_pct      = EXCLUDED.change_7d_pct,
        total_volume       = EXCLUDED.total_volume,
        market_cap         = EXCLUDED.market_cap,
        market_cap_rank    = EXCLUDED.market_cap_rank,
        circulating_supply = EXCLUDED.circulating_supply,
        max_supply         = EXCLUDED.max_supply,
        sparkline_7d       = EXCLUDED.sparkline_7d;`

	snapshotColumns = `symbol,
        captured_at,
        coin_id,
        name,
        image,
        current_price,
        change_1h_pct,
        change_24h_pct,
        change_7d_pct,
        total_volume,
        market_cap,
        market_cap_rank,
        circulating_supply,
        max_supply,
        sparkline_7d`

	latestAllSQL = `SELECT DISTINCT ON (symbol) ` + snapshotColumns + `
    FROM market_prices
    ORDER BY symbol, captured_at DESC;`

	latestBySymbolSQL = `SELECT ` + snapshotColumns + `
    FROM market_prices
    WHERE symbol = $1
    ORDER BY captured_at DESC
    LIMIT 1;`

	historyBySymbolSQL = `SELECT ` + snapshotColumns + `
    FROM market_prices
    WHERE symbol = $1
      AND captured_at >= $2
      AND captured_at < $3
    ORDER BY captured_at;`

	countSnapshotsSQL = `SELECT COUNT(*) FROM market_prices;`

	deleteSnapshotsBeforeSQL = `DELETE FROM market_prices WHERE captured_at < $1;`
)

// Store persists price snapshots in PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool, logger zerolog.Logger) *Store {
	return &Store{pool: pool, logger: logger.With().Str("component", "storage").Logger()}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// AppendSnapshots writes a batch of snapshots. Writes are best-effort per
// record: a single record's failure is logged and skipped. An error is
// returned only when every record of a non-empty batch fails.
func (s *Store) AppendSnapshots(ctx context.Context, snapshots []market.PriceSnapshot) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		return nil
	}

	var stored int
	var lastErr error
	for _, snapshot := range snapshots {
		if execErr := s.insertSnapshot(ctx, pool, snapshot); execErr != nil {
			lastErr = execErr
			s.logger.Error().Err(execErr).Str("symbol", snapshot.Symbol).Msg("failed to store snapshot, skipping record")
			continue
		}
		stored++
	}

	if stored == 0 {
		return fmt.Errorf("%w: append batch: %s", market.ErrStoreUnavailable, lastErr)
	}
	return nil
}

func (s *Store) insertSnapshot(ctx context.Context, pool *pgxpool.Pool, snapshot market.PriceSnapshot) error {
	var circulating, maxSupply interface{}
	if snapshot.CirculatingSupply.Valid {
		circulating = snapshot.CirculatingSupply.Decimal.String()
	}
	if snapshot.MaxSupply.Valid {
		maxSupply = snapshot.MaxSupply.Decimal.String()
	}

	sparkline := snapshot.Sparkline7d
	if len(sparkline) == 0 {
		sparkline = json.RawMessage("[]")
	}

	_, err := pool.Exec(ctx, insertSnapshotSQL,
		market.NormalizeSymbol(snapshot.Symbol),
		snapshot.CapturedAt,
		snapshot.CoinID,
		snapshot.Name,
		snapshot.Image,
		snapshot.CurrentPrice.String(),
		snapshot.Change1hPct.String(),
		snapshot.Change24hPct.String(),
		snapshot.Change7dPct.String(),
		snapshot.TotalVolume.String(),
		snapshot.MarketCap.String(),
		snapshot.MarketCapRank,
		circulating,
		maxSupply,
		[]byte(sparkline),
	)
	return err
}

// LatestAll returns the newest stored snapshot per symbol.
func (s *Store) LatestAll(ctx context.Context) ([]market.PriceSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, latestAllSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("latest all: %w", queryErr)
	}
	defer rows.Close()

	snapshots := make([]market.PriceSnapshot, 0)
	for rows.Next() {
		snapshot, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		snapshots = append(snapshots, snapshot)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snapshots, nil
}

// LatestBySymbol returns the newest snapshot for one symbol. Lookup is
// case-insensitive; a miss is reported through the found flag.
func (s *Store) LatestBySymbol(ctx context.Context, symbol string) (market.PriceSnapshot, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return market.PriceSnapshot{}, false, err
	}

	rows, queryErr := pool.Query(ctx, latestBySymbolSQL, market.NormalizeSymbol(symbol))
	if queryErr != nil {
		return market.PriceSnapshot{}, false, fmt.Errorf("latest by symbol: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Err() != nil {
			return market.PriceSnapshot{}, false, rows.Err()
		}
		return market.PriceSnapshot{}, false, nil
	}

	snapshot, scanErr := scanSnapshot(rows)
	if scanErr != nil {
		return market.PriceSnapshot{}, false, scanErr
	}
	return snapshot, true, nil
}

// HistoryBySymbol lists snapshots for one symbol within [from, to).
func (s *Store) HistoryBySymbol(ctx context.Context, symbol string, from, to time.Time) ([]market.PriceSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, historyBySymbolSQL, market.NormalizeSymbol(symbol), from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("history by symbol: %w", queryErr)
	}
	defer rows.Close()

	snapshots := make([]market.PriceSnapshot, 0)
	for rows.Next() {
		snapshot, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		snapshots = append(snapshots, snapshot)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snapshots, nil
}

// CountSnapshots counts stored snapshots.
func (s *Store) CountSnapshots(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSnapshotsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count snapshots: %w", scanErr)
	}
	return count, nil
}

// DeleteSnapshotsBefore prunes records older than the cutoff.
func (s *Store) DeleteSnapshotsBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	cmdTag, execErr := pool.Exec(ctx, deleteSnapshotsBeforeSQL, olderThan)
	if execErr != nil {
		return 0, fmt.Errorf("delete snapshots before: %w", execErr)
	}
	return cmdTag.RowsAffected(), nil
}

func scanSnapshot(rows pgx.Rows) (market.PriceSnapshot, error) {
	var (
		symbol      string
		capturedAt  time.Time
		coinID      string
		name        string
		image       string
		priceStr    string
		change1h    string
		change24h   string
		change7d    string
		volumeStr   string
		capStr      string
		rank        int
		circulating sql.NullString
		maxSupply   sql.NullString
		sparkline   json.RawMessage
	)

	if err := rows.Scan(
		&symbol,
		&capturedAt,
		&coinID,
		&name,
		&image,
		&priceStr,
		&change1h,
		&change24h,
		&change7d,
		&volumeStr,
		&capStr,
		&rank,
		&circulating,
		&maxSupply,
		&sparkline,
	); err != nil {
		return market.PriceSnapshot{}, err
	}

	snapshot := market.PriceSnapshot{
		Symbol:        symbol,
		CapturedAt:    capturedAt,
		CoinID:        coinID,
		Name:          name,
		Image:         image,
		MarketCapRank: rank,
		Sparkline7d:   sparkline,
	}

	var err error
	if snapshot.CurrentPrice, err = decimal.NewFromString(priceStr); err != nil {
		return market.PriceSnapshot{}, fmt.Errorf("parse current price: %w", err)
	}
	if snapshot.Change1hPct, err = decimal.NewFromString(change1h); err != nil {
		return market.PriceSnapshot{}, fmt.Errorf("parse 1h change: %w", err)
	}
	if snapshot.Change24hPct, err = decimal.NewFromString(change24h); err != nil {
		return market.PriceSnapshot{}, fmt.Errorf("parse 24h change: %w", err)
	}
	if snapshot.Change7dPct, err = decimal.NewFromString(change7d); err != nil {
		return market.PriceSnapshot{}, fmt.Errorf("parse 7d change: %w", err)
	}
	if snapshot.TotalVolume, err = decimal.NewFromString(volumeStr); err != nil {
		return market.PriceSnapshot{}, fmt.Errorf("parse total volume: %w", err)
	}
	if snapshot.MarketCap, err = decimal.NewFromString(capStr); err != nil {
		return market.PriceSnapshot{}, fmt.Errorf("parse market cap: %w", err)
	}

	if circulating.Valid {
		value, convErr := decimal.NewFromString(circulating.String)
		if convErr != nil {
			return market.PriceSnapshot{}, fmt.Errorf("parse circulating supply: %w", convErr)
		}
		snapshot.CirculatingSupply = decimal.NullDecimal{Decimal: value, Valid: true}
	}
	if maxSupply.Valid {
		value, convErr := decimal.NewFromString(maxSupply.String)
		if convErr != nil {
			return market.PriceSnapshot{}, fmt.Errorf("parse max supply: %w", convErr)
		}
		snapshot.MaxSupply = decimal.NullDecimal{Decimal: value, Valid: true}
	}

	return snapshot, nil
}

var (
	_ SnapshotStore = (*Store)(nil)
	_ Pruner        = (*Store)(nil)
)
