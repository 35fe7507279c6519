package fetcher

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"crypto-price-tracker/internal/market"
)

// providerCoin mirrors one record of the provider's markets payload. Numeric
// fields are pointers so that absent and null values are distinguishable from
// zero before defaulting is applied.
type providerCoin struct {
	ID                string       `json:"id"`
	Symbol            string       `json:"symbol"`
	Name              string       `json:"name"`
	Image             string       `json:"image"`
	CurrentPrice      *json.Number `json:"current_price"`
	Change1h          *json.Number `json:"price_change_percentage_1h_in_currency"`
	Change24hCurrency *json.Number `json:"price_change_percentage_24h_in_currency"`
	Change24h         *json.Number `json:"price_change_percentage_24h"`
	Change7d          *json.Number `json:"price_change_percentage_7d_in_currency"`
	TotalVolume       *json.Number `json:"total_volume"`
	MarketCap         *json.Number `json:"market_cap"`
	MarketCapRank     *int         `json:"market_cap_rank"`
	CirculatingSupply *json.Number `json:"circulating_supply"`
	MaxSupply         *json.Number `json:"max_supply"`
	Sparkline         *struct {
		Price json.RawMessage `json:"price"`
	} `json:"sparkline_in_7d"`
}

// Normalize converts a raw markets payload into a batch of snapshots sharing
// one capture timestamp. The contract is all-or-nothing: any record with a
// missing or non-numeric mandatory field fails the whole call with
// market.ErrMalformedData and no partial batch is returned.
func Normalize(payload []byte, capturedAt time.Time) ([]market.PriceSnapshot, error) {
	var coins []providerCoin
	if err := json.Unmarshal(payload, &coins); err != nil {
		return nil, fmt.Errorf("decode markets payload: %w", market.ErrMalformedData)
	}

	snapshots := make([]market.PriceSnapshot, 0, len(coins))
	for _, coin := range coins {
		snapshot, err := normalizeCoin(coin, capturedAt)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

func normalizeCoin(coin providerCoin, capturedAt time.Time) (market.PriceSnapshot, error) {
	price, err := mandatoryDecimal(coin.ID, "current_price", coin.CurrentPrice)
	if err != nil {
		return market.PriceSnapshot{}, err
	}
	volume, err := mandatoryDecimal(coin.ID, "total_volume", coin.TotalVolume)
	if err != nil {
		return market.PriceSnapshot{}, err
	}
	marketCap, err := mandatoryDecimal(coin.ID, "market_cap", coin.MarketCap)
	if err != nil {
		return market.PriceSnapshot{}, err
	}
	if coin.MarketCapRank == nil {
		return market.PriceSnapshot{}, malformedField(coin.ID, "market_cap_rank")
	}
	if price.IsNegative() || volume.IsNegative() {
		return market.PriceSnapshot{}, fmt.Errorf("coin %q: negative price or volume: %w", coin.ID, market.ErrMalformedData)
	}

	snapshot := market.PriceSnapshot{
		CoinID:        coin.ID,
		Symbol:        market.NormalizeSymbol(coin.Symbol),
		Name:          coin.Name,
		Image:         coin.Image,
		CurrentPrice:  price,
		Change1hPct:   optionalDecimal(coin.Change1h),
		Change24hPct:  change24h(coin),
		Change7dPct:   optionalDecimal(coin.Change7d),
		TotalVolume:   volume,
		MarketCap:     marketCap,
		MarketCapRank: *coin.MarketCapRank,
		Sparkline7d:   json.RawMessage("[]"),
		CapturedAt:    capturedAt,
	}

	if supply := optionalNullDecimal(coin.CirculatingSupply); supply.Valid {
		snapshot.CirculatingSupply = supply
	}
	if supply := optionalNullDecimal(coin.MaxSupply); supply.Valid {
		snapshot.MaxSupply = supply
	}
	if coin.Sparkline != nil && len(coin.Sparkline.Price) > 0 {
		snapshot.Sparkline7d = coin.Sparkline.Price
	}

	return snapshot, nil
}

// change24h prefers the vs-currency variant and falls back to the plain 24h
// field before defaulting to zero.
func change24h(coin providerCoin) decimal.Decimal {
	if coin.Change24hCurrency != nil {
		return optionalDecimal(coin.Change24hCurrency)
	}
	return optionalDecimal(coin.Change24h)
}

func mandatoryDecimal(coinID, field string, num *json.Number) (decimal.Decimal, error) {
	if num == nil {
		return decimal.Decimal{}, malformedField(coinID, field)
	}
	value, err := decimal.NewFromString(num.String())
	if err != nil {
		return decimal.Decimal{}, malformedField(coinID, field)
	}
	return value, nil
}

func optionalDecimal(num *json.Number) decimal.Decimal {
	if num == nil {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(num.String())
	if err != nil {
		return decimal.Zero
	}
	return value
}

func optionalNullDecimal(num *json.Number) decimal.NullDecimal {
	if num == nil {
		return decimal.NullDecimal{}
	}
	value, err := decimal.NewFromString(num.String())
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: value, Valid: true}
}

func malformedField(coinID, field string) error {
	return fmt.Errorf("coin %q: missing or invalid %s: %w", coinID, field, market.ErrMalformedData)
}
