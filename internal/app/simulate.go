package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"crypto-price-tracker/internal/alerting"
	"crypto-price-tracker/internal/market"
	"crypto-price-tracker/internal/metrics"
)

// SimulateAlert feeds a sequence of prices for one symbol through the
// crossing detector and prints every event it produces. The configured
// notifier is used, so with Telegram enabled this sends real messages.
func (a *App) SimulateAlert(ctx context.Context, symbol string, threshold decimal.Decimal, prices []decimal.Decimal) error {
	if len(prices) == 0 {
		return errors.New("at least one price is required")
	}
	if threshold.IsZero() {
		configured, ok := a.newRegistry().Get(symbol)
		if !ok {
			return fmt.Errorf("no threshold configured for %s and none given", market.NormalizeSymbol(symbol))
		}
		threshold = configured
	}

	registry := alerting.NewRegistry()
	registry.Set(symbol, threshold)
	detector := alerting.NewDetector(registry, a.newNotifier(), metrics.NewNopSink(), a.Logger)

	symbol = market.NormalizeSymbol(symbol)
	at := time.Now().UTC()
	fired := 0

	for i, price := range prices {
		snapshot := market.PriceSnapshot{
			Symbol:       symbol,
			CurrentPrice: price,
			CapturedAt:   at.Add(time.Duration(i) * time.Second),
		}
		event := detector.Observe(ctx, snapshot)
		if event == nil {
			fmt.Fprintf(os.Stdout, "%s @ %s: no crossing\n", symbol, price.StringFixed(2))
			continue
		}
		fired++
		fmt.Fprintf(os.Stdout, "%s @ %s: %s threshold %s\n", symbol, price.StringFixed(2), event.Direction, event.Threshold.StringFixed(2))
	}

	fmt.Fprintf(os.Stdout, "%d price(s) observed, %d alert(s) fired\n", len(prices), fired)
	return nil
}
