package market

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot is one normalized price observation for one asset. Snapshots
// are immutable once built; the store keys them by (Symbol, CapturedAt).
type PriceSnapshot struct {
	CoinID            string
	Symbol            string
	Name              string
	Image             string
	CurrentPrice      decimal.Decimal
	Change1hPct       decimal.Decimal
	Change24hPct      decimal.Decimal
	Change7dPct       decimal.Decimal
	TotalVolume       decimal.Decimal
	MarketCap         decimal.Decimal
	MarketCapRank     int
	CirculatingSupply decimal.NullDecimal
	MaxSupply         decimal.NullDecimal
	Sparkline7d       json.RawMessage
	CapturedAt        time.Time
}

// NormalizeSymbol maps a symbol to its canonical upper-case lookup key.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
