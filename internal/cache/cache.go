// Package cache offers an optional latest-snapshot cache in front of the
// time-series store for single-symbol lookups.
package cache

import (
	"context"

	"crypto-price-tracker/internal/market"
)

// LatestCache keeps the newest snapshot per symbol. Implementations report a
// miss through market.ErrNotFound.
type LatestCache interface {
	SetLatest(ctx context.Context, snapshot market.PriceSnapshot) error
	GetLatest(ctx context.Context, symbol string) (market.PriceSnapshot, error)
}

// Nop is the cache used when Redis is not configured: writes vanish and
// reads always miss, pushing callers to the store.
type Nop struct{}

// NewNop constructs a no-op cache.
func NewNop() *Nop { return &Nop{} }

// SetLatest discards the snapshot.
func (n *Nop) SetLatest(context.Context, market.PriceSnapshot) error { return nil }

// GetLatest always misses.
func (n *Nop) GetLatest(context.Context, string) (market.PriceSnapshot, error) {
	return market.PriceSnapshot{}, market.ErrNotFound
}

var _ LatestCache = (*Nop)(nil)
