package alerting

import (
	"sync"

	"github.com/shopspring/decimal"

	"crypto-price-tracker/internal/market"
)

// Registry holds at most one active price threshold per symbol. It is safe
// for concurrent use by the scheduler loop and request-handling goroutines.
type Registry struct {
	mu         sync.RWMutex
	thresholds map[string]decimal.Decimal
}

// NewRegistry constructs an empty threshold registry.
func NewRegistry() *Registry {
	return &Registry{thresholds: make(map[string]decimal.Decimal)}
}

// Set registers or silently overwrites the threshold for a symbol.
func (r *Registry) Set(symbol string, threshold decimal.Decimal) {
	key := market.NormalizeSymbol(symbol)
	r.mu.Lock()
	r.thresholds[key] = threshold
	r.mu.Unlock()
}

// Remove deletes the threshold for a symbol, if any.
func (r *Registry) Remove(symbol string) {
	key := market.NormalizeSymbol(symbol)
	r.mu.Lock()
	delete(r.thresholds, key)
	r.mu.Unlock()
}

// Get looks up the threshold for a symbol, case-insensitively.
func (r *Registry) Get(symbol string) (decimal.Decimal, bool) {
	key := market.NormalizeSymbol(symbol)
	r.mu.RLock()
	threshold, ok := r.thresholds[key]
	r.mu.RUnlock()
	return threshold, ok
}

// GetAll returns a snapshot copy of the registry. Later mutations do not
// affect the returned map.
func (r *Registry) GetAll() map[string]decimal.Decimal {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make(map[string]decimal.Decimal, len(r.thresholds))
	for symbol, threshold := range r.thresholds {
		all[symbol] = threshold
	}
	return all
}
