package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"crypto-price-tracker/internal/market"
)

// Redis implements LatestCache on a Redis instance. Each symbol's newest
// snapshot is stored as JSON at key "latest:{SYMBOL}".
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{rdb: rdb, ttl: ttl}, nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

func latestKey(symbol string) string {
	return "latest:" + market.NormalizeSymbol(symbol)
}

// SetLatest stores the snapshot as the newest value for its symbol.
func (r *Redis) SetLatest(ctx context.Context, snapshot market.PriceSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot %s: %w", snapshot.Symbol, err)
	}
	if err := r.rdb.Set(ctx, latestKey(snapshot.Symbol), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set latest %s: %w", snapshot.Symbol, err)
	}
	return nil
}

// GetLatest retrieves the newest cached snapshot for a symbol. It returns
// market.ErrNotFound on a miss.
func (r *Redis) GetLatest(ctx context.Context, symbol string) (market.PriceSnapshot, error) {
	payload, err := r.rdb.Get(ctx, latestKey(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return market.PriceSnapshot{}, market.ErrNotFound
	}
	if err != nil {
		return market.PriceSnapshot{}, fmt.Errorf("redis: get latest %s: %w", symbol, err)
	}

	var snapshot market.PriceSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return market.PriceSnapshot{}, fmt.Errorf("redis: decode latest %s: %w", symbol, err)
	}
	return snapshot, nil
}

var _ LatestCache = (*Redis)(nil)
