package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"crypto-price-tracker/internal/market"
)

func snapshotAt(symbol string, price int64, at time.Time) market.PriceSnapshot {
	return market.PriceSnapshot{
		Symbol:       market.NormalizeSymbol(symbol),
		CurrentPrice: decimal.NewFromInt(price),
		CapturedAt:   at,
	}
}

func TestMemoryLatestAllEmpty(t *testing.T) {
	store := NewMemory()

	latest, err := store.LatestAll(context.Background())
	if err != nil {
		t.Fatalf("empty store must not error: %v", err)
	}
	if len(latest) != 0 {
		t.Fatalf("expected empty result, got %d records", len(latest))
	}
}

func TestMemoryLatestBySymbolCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	now := time.Now().UTC()

	if err := store.AppendSnapshots(ctx, []market.PriceSnapshot{snapshotAt("btc", 100, now)}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	for _, lookup := range []string{"btc", "BTC", "Btc"} {
		snapshot, found, err := store.LatestBySymbol(ctx, lookup)
		if err != nil || !found {
			t.Fatalf("lookup %q should find the record: found=%v err=%v", lookup, found, err)
		}
		if !snapshot.CurrentPrice.Equal(decimal.NewFromInt(100)) {
			t.Fatalf("unexpected price %s", snapshot.CurrentPrice)
		}
	}

	if _, found, _ := store.LatestBySymbol(ctx, "ETH"); found {
		t.Fatal("unknown symbol must report found=false")
	}
}

func TestMemoryDuplicateAppendIsHarmless(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	now := time.Now().UTC()

	batch := []market.PriceSnapshot{
		snapshotAt("BTC", 100, now),
		snapshotAt("ETH", 50, now),
	}
	if err := store.AppendSnapshots(ctx, batch); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := store.AppendSnapshots(ctx, batch[:1]); err != nil {
		t.Fatalf("duplicate append failed: %v", err)
	}

	eth, found, err := store.LatestBySymbol(ctx, "ETH")
	if err != nil || !found {
		t.Fatalf("ETH should be unaffected by duplicate BTC write: found=%v err=%v", found, err)
	}
	if !eth.CurrentPrice.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected ETH price %s", eth.CurrentPrice)
	}

	count, _ := store.CountSnapshots(ctx)
	if count != 2 {
		t.Fatalf("duplicate (symbol, timestamp) write must not add a record, count=%d", count)
	}
}

func TestMemoryLatestPicksNewest(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	base := time.Now().UTC()

	_ = store.AppendSnapshots(ctx, []market.PriceSnapshot{snapshotAt("BTC", 100, base)})
	_ = store.AppendSnapshots(ctx, []market.PriceSnapshot{snapshotAt("BTC", 110, base.Add(30*time.Second))})

	snapshot, found, _ := store.LatestBySymbol(ctx, "BTC")
	if !found || !snapshot.CurrentPrice.Equal(decimal.NewFromInt(110)) {
		t.Fatalf("expected newest record, got %+v found=%v", snapshot, found)
	}
}

func TestMemoryHistoryWindow(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		_ = store.AppendSnapshots(ctx, []market.PriceSnapshot{snapshotAt("BTC", int64(100+i), base.Add(time.Duration(i)*time.Minute))})
	}

	history, err := store.HistoryBySymbol(ctx, "btc", base.Add(time.Minute), base.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected half-open window of 2 records, got %d", len(history))
	}
	if !history[0].CapturedAt.Before(history[1].CapturedAt) {
		t.Fatal("history must be ordered by capture time")
	}
}

func TestMemoryPrune(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	_ = store.AppendSnapshots(ctx, []market.PriceSnapshot{
		snapshotAt("BTC", 100, base),
		snapshotAt("BTC", 101, base.Add(time.Hour)),
	})

	deleted, err := store.DeleteSnapshotsBefore(ctx, base.Add(time.Minute))
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 pruned record, got %d", deleted)
	}

	count, _ := store.CountSnapshots(ctx)
	if count != 1 {
		t.Fatalf("expected 1 remaining record, got %d", count)
	}
}
