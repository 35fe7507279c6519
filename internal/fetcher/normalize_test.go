package fetcher

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"crypto-price-tracker/internal/market"
)

func TestNormalizeFullBatch(t *testing.T) {
	payload := []byte(`[
		{
			"id": "bitcoin",
			"symbol": "btc",
			"name": "Bitcoin",
			"image": "https://example.com/btc.png",
			"current_price": 64250.12,
			"price_change_percentage_1h_in_currency": 0.25,
			"price_change_percentage_24h_in_currency": -1.5,
			"price_change_percentage_7d_in_currency": 3.1,
			"total_volume": 35000000000,
			"market_cap": 1260000000000,
			"market_cap_rank": 1,
			"circulating_supply": 19700000,
			"max_supply": 21000000,
			"sparkline_in_7d": {"price": [64000.1, 64100.2]}
		},
		{
			"id": "ethereum",
			"symbol": "eth",
			"name": "Ethereum",
			"current_price": 3120.5,
			"total_volume": 18000000000,
			"market_cap": 375000000000,
			"market_cap_rank": 2
		}
	]`)

	capturedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	snapshots, err := Normalize(payload, capturedAt)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if len(snapshots) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snapshots))
	}

	btc := snapshots[0]
	if btc.Symbol != "BTC" {
		t.Fatalf("symbol should be upper-cased, got %q", btc.Symbol)
	}
	if !btc.CurrentPrice.Equal(decimal.RequireFromString("64250.12")) {
		t.Fatalf("unexpected price %s", btc.CurrentPrice)
	}
	if !btc.Change24hPct.Equal(decimal.RequireFromString("-1.5")) {
		t.Fatalf("unexpected 24h change %s", btc.Change24hPct)
	}
	if !btc.MaxSupply.Valid || !btc.MaxSupply.Decimal.Equal(decimal.NewFromInt(21000000)) {
		t.Fatalf("unexpected max supply %+v", btc.MaxSupply)
	}
	if string(btc.Sparkline7d) != "[64000.1, 64100.2]" {
		t.Fatalf("unexpected sparkline %s", btc.Sparkline7d)
	}

	eth := snapshots[1]
	if !eth.Change1hPct.IsZero() || !eth.Change24hPct.IsZero() || !eth.Change7dPct.IsZero() {
		t.Fatalf("absent percentage fields should default to zero, got %s/%s/%s",
			eth.Change1hPct, eth.Change24hPct, eth.Change7dPct)
	}
	if eth.CirculatingSupply.Valid || eth.MaxSupply.Valid {
		t.Fatalf("absent supply fields should stay null")
	}
	if string(eth.Sparkline7d) != "[]" {
		t.Fatalf("absent sparkline should default to [], got %s", eth.Sparkline7d)
	}

	for _, snapshot := range snapshots {
		if !snapshot.CapturedAt.Equal(capturedAt) {
			t.Fatalf("all snapshots must share the batch capture timestamp")
		}
	}
}

func TestNormalize24hFallback(t *testing.T) {
	payload := []byte(`[{
		"id": "solana",
		"symbol": "sol",
		"name": "Solana",
		"current_price": 150,
		"price_change_percentage_24h": 2.75,
		"total_volume": 2000000000,
		"market_cap": 70000000000,
		"market_cap_rank": 5
	}]`)

	snapshots, err := Normalize(payload, time.Now().UTC())
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if !snapshots[0].Change24hPct.Equal(decimal.RequireFromString("2.75")) {
		t.Fatalf("expected fallback to plain 24h field, got %s", snapshots[0].Change24hPct)
	}
}

func TestNormalizeMissingMandatoryFailsWholeBatch(t *testing.T) {
	payload := []byte(`[
		{"id": "bitcoin", "symbol": "btc", "name": "Bitcoin", "current_price": 64000, "total_volume": 1, "market_cap": 2, "market_cap_rank": 1},
		{"id": "broken", "symbol": "brk", "name": "Broken", "current_price": null, "total_volume": 1, "market_cap": 2, "market_cap_rank": 9}
	]`)

	snapshots, err := Normalize(payload, time.Now().UTC())
	if !errors.Is(err, market.ErrMalformedData) {
		t.Fatalf("expected ErrMalformedData, got %v", err)
	}
	if snapshots != nil {
		t.Fatalf("no partial batch may be returned on failure")
	}
}

func TestNormalizeNonNumericMandatory(t *testing.T) {
	payload := []byte(`[{"id": "x", "symbol": "x", "name": "X", "current_price": "nope", "total_volume": 1, "market_cap": 2, "market_cap_rank": 3}]`)

	if _, err := Normalize(payload, time.Now().UTC()); !errors.Is(err, market.ErrMalformedData) {
		t.Fatalf("expected ErrMalformedData, got %v", err)
	}
}

func TestNormalizeNegativePrice(t *testing.T) {
	payload := []byte(`[{"id": "x", "symbol": "x", "name": "X", "current_price": -1, "total_volume": 1, "market_cap": 2, "market_cap_rank": 3}]`)

	if _, err := Normalize(payload, time.Now().UTC()); !errors.Is(err, market.ErrMalformedData) {
		t.Fatalf("negative price should be malformed, got %v", err)
	}
}

func TestNormalizeNegativeVolume(t *testing.T) {
	payload := []byte(`[{"id": "x", "symbol": "x", "name": "X", "current_price": 1, "total_volume": -1, "market_cap": 2, "market_cap_rank": 3}]`)

	if _, err := Normalize(payload, time.Now().UTC()); !errors.Is(err, market.ErrMalformedData) {
		t.Fatalf("negative volume should be malformed, got %v", err)
	}
}
