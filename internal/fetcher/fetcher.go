package fetcher

import (
	"context"

	"crypto-price-tracker/internal/market"
)

// Provider retrieves one normalized batch of price snapshots per call.
type Provider interface {
	FetchSnapshots(ctx context.Context) ([]market.PriceSnapshot, error)
}
