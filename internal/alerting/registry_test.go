package alerting

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRegistrySetGetRemove(t *testing.T) {
	registry := NewRegistry()

	registry.Set("btc", decimal.NewFromInt(100))

	threshold, ok := registry.Get("BTC")
	if !ok || !threshold.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("case-insensitive lookup failed: ok=%v threshold=%s", ok, threshold)
	}

	// Last write wins, no error on duplicate.
	registry.Set("BTC", decimal.NewFromInt(200))
	threshold, _ = registry.Get("btc")
	if !threshold.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("overwrite should win, got %s", threshold)
	}

	registry.Remove("Btc")
	if _, ok := registry.Get("BTC"); ok {
		t.Fatal("threshold should be gone after remove")
	}
}

func TestRegistryGetAllReturnsCopy(t *testing.T) {
	registry := NewRegistry()
	registry.Set("BTC", decimal.NewFromInt(100))

	before := registry.GetAll()

	registry.Set("ETH", decimal.NewFromInt(50))
	registry.Remove("BTC")

	if len(before) != 1 {
		t.Fatalf("earlier GetAll result must not change, got %v", before)
	}
	if _, ok := before["BTC"]; !ok {
		t.Fatalf("earlier GetAll result lost its entry: %v", before)
	}

	after := registry.GetAll()
	if len(after) != 1 {
		t.Fatalf("unexpected current state: %v", after)
	}
	if _, ok := after["ETH"]; !ok {
		t.Fatalf("current state should contain ETH: %v", after)
	}
}
