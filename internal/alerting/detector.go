package alerting

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"crypto-price-tracker/internal/market"
	"crypto-price-tracker/internal/metrics"
)

// Direction names the side of the threshold a price crossed onto.
type Direction string

const (
	DirectionBelow Direction = "BELOW"
	DirectionAbove Direction = "ABOVE"
)

// Event is one threshold-crossing observation.
type Event struct {
	Symbol    string
	Direction Direction
	Price     decimal.Decimal
	Threshold decimal.Decimal
	At        time.Time
}

// Detector tracks the last observed price per symbol and emits a crossing
// event when a new snapshot lands on the other side of its registered
// threshold. The last-price memory lives for the process lifetime: the first
// observation after a restart only establishes the baseline unless it already
// sits on the alerting side of the threshold.
type Detector struct {
	registry *Registry
	notifier Notifier
	metrics  metrics.Sink
	logger   zerolog.Logger

	mu         sync.Mutex
	lastPrices map[string]decimal.Decimal
}

// NewDetector wires the registry and the side-effect sinks into a detector.
func NewDetector(registry *Registry, notifier Notifier, sink metrics.Sink, logger zerolog.Logger) *Detector {
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	if sink == nil {
		sink = metrics.NewNopSink()
	}
	return &Detector{
		registry:   registry,
		notifier:   notifier,
		metrics:    sink,
		logger:     logger.With().Str("component", "alert_detector").Logger(),
		lastPrices: make(map[string]decimal.Decimal),
	}
}

// Observe feeds one snapshot through the crossing check and returns the
// emitted event, if any. The last-price memory is updated unconditionally,
// threshold or not.
//
// When the first observation of a symbol lands exactly on its threshold,
// both crossing rules hold; BELOW is evaluated first and wins, so at most
// one event ever fires per observation.
func (d *Detector) Observe(ctx context.Context, snapshot market.PriceSnapshot) *Event {
	symbol := market.NormalizeSymbol(snapshot.Symbol)
	curr := snapshot.CurrentPrice

	d.mu.Lock()
	prev, hasPrev := d.lastPrices[symbol]
	d.lastPrices[symbol] = curr
	d.mu.Unlock()

	threshold, hasThreshold := d.registry.Get(symbol)
	if !hasThreshold {
		return nil
	}

	var direction Direction
	switch {
	case curr.LessThanOrEqual(threshold) && (!hasPrev || prev.GreaterThan(threshold)):
		direction = DirectionBelow
	case curr.GreaterThanOrEqual(threshold) && (!hasPrev || prev.LessThan(threshold)):
		direction = DirectionAbove
	default:
		return nil
	}

	event := &Event{
		Symbol:    symbol,
		Direction: direction,
		Price:     curr,
		Threshold: threshold,
		At:        snapshot.CapturedAt,
	}
	d.emit(ctx, event)
	return event
}

// emit hands the event to the notification sink and publishes the alert
// metric. Delivery is fire-and-forget: a failed sink write is logged, never
// escalated.
func (d *Detector) emit(ctx context.Context, event *Event) {
	d.logger.Warn().
		Str("symbol", event.Symbol).
		Str("direction", string(event.Direction)).
		Str("price", event.Price.String()).
		Str("threshold", event.Threshold.String()).
		Msg("price threshold crossed")

	d.metrics.Publish("PriceAlert", 1, "Count")

	if err := d.notifier.Notify(ctx, *event); err != nil {
		d.logger.Error().Err(err).Str("symbol", event.Symbol).Msg("failed to dispatch alert")
	}
}
