package market

import "errors"

var (
	// ErrProviderUnavailable indicates the market data provider could not be reached.
	ErrProviderUnavailable = errors.New("market data provider unavailable")
	// ErrMalformedData indicates a provider response violated the expected schema.
	ErrMalformedData = errors.New("malformed provider data")
	// ErrStoreUnavailable indicates the persistence backend could not be reached.
	ErrStoreUnavailable = errors.New("price store unavailable")
	// ErrNotFound represents an absent value on lookup. Callers treat it as
	// "no data yet", not as a failure.
	ErrNotFound = errors.New("not found")
)
