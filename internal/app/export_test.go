package app

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"crypto-price-tracker/internal/market"
)

func snapshotSeries(n int) []market.PriceSnapshot {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make([]market.PriceSnapshot, n)
	for i := range series {
		series[i] = market.PriceSnapshot{
			Symbol:       "BTC",
			CurrentPrice: decimal.NewFromInt(int64(i)),
			CapturedAt:   base.Add(time.Duration(i) * time.Minute),
		}
	}
	return series
}

func TestDownsampleKeepsSmallSeries(t *testing.T) {
	series := snapshotSeries(5)

	got := downsampleSnapshots(series, 10)
	if len(got) != 5 {
		t.Fatalf("series within limit must pass through, got %d", len(got))
	}
	got = downsampleSnapshots(series, 0)
	if len(got) != 5 {
		t.Fatalf("non-positive limit must pass through, got %d", len(got))
	}
}

func TestDownsampleToSinglePoint(t *testing.T) {
	series := snapshotSeries(4)

	got := downsampleSnapshots(series, 1)
	if len(got) != 1 {
		t.Fatalf("expected a single point, got %d", len(got))
	}
	if !got[0].CurrentPrice.Equal(series[3].CurrentPrice) {
		t.Fatalf("single-point downsample must keep the newest snapshot, got price %s", got[0].CurrentPrice)
	}
}

func TestDownsampleKeepsEndpoints(t *testing.T) {
	series := snapshotSeries(100)

	got := downsampleSnapshots(series, 10)
	if len(got) != 10 {
		t.Fatalf("expected 10 points, got %d", len(got))
	}
	if !got[0].CurrentPrice.Equal(series[0].CurrentPrice) {
		t.Fatalf("first point must survive, got %s", got[0].CurrentPrice)
	}
	if !got[9].CurrentPrice.Equal(series[99].CurrentPrice) {
		t.Fatalf("last point must survive, got %s", got[9].CurrentPrice)
	}
}
