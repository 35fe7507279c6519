package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"crypto-price-tracker/internal/config"
	"crypto-price-tracker/internal/market"
)

// SnapshotStore defines operations over the append-only price time series.
//
// Read operations report "no data" through empty results and found flags, not
// errors; an error from any method signals a backend problem and is expected
// to be logged and swallowed at the call site.
type SnapshotStore interface {
	AppendSnapshots(ctx context.Context, snapshots []market.PriceSnapshot) error
	LatestAll(ctx context.Context) ([]market.PriceSnapshot, error)
	LatestBySymbol(ctx context.Context, symbol string) (market.PriceSnapshot, bool, error)
	HistoryBySymbol(ctx context.Context, symbol string, from, to time.Time) ([]market.PriceSnapshot, error)
	CountSnapshots(ctx context.Context) (int64, error)
}

// Pruner removes records older than a cutoff. The housekeeping cycle invokes
// it only when retention is configured.
type Pruner interface {
	DeleteSnapshotsBefore(ctx context.Context, olderThan time.Time) (int64, error)
}

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}
