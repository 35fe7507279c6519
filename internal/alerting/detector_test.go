package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"crypto-price-tracker/internal/market"
)

type captureNotifier struct {
	events []Event
}

func (c *captureNotifier) Notify(_ context.Context, event Event) error {
	c.events = append(c.events, event)
	return nil
}

type recordingSink struct {
	published map[string]int
}

func (r *recordingSink) Publish(name string, _ float64, _ string) {
	if r.published == nil {
		r.published = make(map[string]int)
	}
	r.published[name]++
}

func priced(symbol string, price string) market.PriceSnapshot {
	return market.PriceSnapshot{
		Symbol:       symbol,
		CurrentPrice: decimal.RequireFromString(price),
		CapturedAt:   time.Now().UTC(),
	}
}

func TestDetectorCrossingSequence(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()
	notifier := &captureNotifier{}
	sink := &recordingSink{}
	detector := NewDetector(registry, notifier, sink, zerolog.Nop())

	// Establish the baseline before the threshold exists; no event may fire,
	// but the price must be remembered.
	if event := detector.Observe(ctx, priced("ABC", "105")); event != nil {
		t.Fatalf("no threshold registered, got unexpected event %+v", event)
	}

	registry.Set("ABC", decimal.RequireFromString("100"))

	var events []Event
	for _, price := range []string{"95", "98", "101"} {
		if event := detector.Observe(ctx, priced("ABC", price)); event != nil {
			events = append(events, *event)
		}
	}

	if len(events) != 2 {
		t.Fatalf("expected exactly 2 events, got %d: %+v", len(events), events)
	}
	if events[0].Direction != DirectionBelow || !events[0].Price.Equal(decimal.RequireFromString("95")) {
		t.Fatalf("first event should be BELOW at 95, got %+v", events[0])
	}
	if events[1].Direction != DirectionAbove || !events[1].Price.Equal(decimal.RequireFromString("101")) {
		t.Fatalf("second event should be ABOVE at 101, got %+v", events[1])
	}

	if len(notifier.events) != 2 {
		t.Fatalf("notifier should receive every event, got %d", len(notifier.events))
	}
	if sink.published["PriceAlert"] != 2 {
		t.Fatalf("expected 2 PriceAlert metrics, got %d", sink.published["PriceAlert"])
	}
}

func TestDetectorNoThresholdNeverFires(t *testing.T) {
	ctx := context.Background()
	detector := NewDetector(NewRegistry(), &captureNotifier{}, nil, zerolog.Nop())

	for _, price := range []string{"10", "200", "1"} {
		if event := detector.Observe(ctx, priced("XYZ", price)); event != nil {
			t.Fatalf("symbol without threshold must never emit, got %+v", event)
		}
	}
}

func TestDetectorMemoryUpdatedWithoutThreshold(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()
	detector := NewDetector(registry, &captureNotifier{}, nil, zerolog.Nop())

	// 120 is observed while no threshold exists. Once a threshold of 100 is
	// registered, the first check must use 120 as prev: 95 is a genuine
	// crossing from above.
	detector.Observe(ctx, priced("ETH", "120"))
	registry.Set("ETH", decimal.RequireFromString("100"))

	event := detector.Observe(ctx, priced("ETH", "95"))
	if event == nil || event.Direction != DirectionBelow {
		t.Fatalf("expected BELOW crossing using remembered prev, got %+v", event)
	}
}

func TestDetectorFirstObservationExactlyAtThreshold(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()
	notifier := &captureNotifier{}
	detector := NewDetector(registry, notifier, nil, zerolog.Nop())

	registry.Set("XYZ", decimal.RequireFromString("50"))

	// Both crossing rules hold here; the detector resolves the tie in favour
	// of BELOW and fires exactly once.
	event := detector.Observe(ctx, priced("XYZ", "50"))
	if event == nil {
		t.Fatal("expected an event for first observation at the threshold")
	}
	if event.Direction != DirectionBelow {
		t.Fatalf("tie must resolve to BELOW, got %s", event.Direction)
	}
	if len(notifier.events) != 1 {
		t.Fatalf("exactly one event must be delivered, got %d", len(notifier.events))
	}
}

func TestDetectorNoRefireWithinRegion(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()
	detector := NewDetector(registry, &captureNotifier{}, nil, zerolog.Nop())

	registry.Set("BTC", decimal.RequireFromString("100"))

	detector.Observe(ctx, priced("BTC", "95"))
	if event := detector.Observe(ctx, priced("BTC", "90")); event != nil {
		t.Fatalf("staying below the threshold must not refire, got %+v", event)
	}
}

func TestDetectorSymbolCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()
	detector := NewDetector(registry, &captureNotifier{}, nil, zerolog.Nop())

	registry.Set("btc", decimal.RequireFromString("100"))
	detector.Observe(ctx, priced("BTC", "105"))

	event := detector.Observe(ctx, priced("btc", "99"))
	if event == nil || event.Symbol != "BTC" {
		t.Fatalf("detector must normalize symbols, got %+v", event)
	}
}
