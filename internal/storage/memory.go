package storage

import (
	"context"
	"sync"
	"time"

	"crypto-price-tracker/internal/market"
)

// Memory is an in-process SnapshotStore used when no database is configured
// and throughout the test suite. Records are kept per symbol in capture
// order; writes with an already-stored (symbol, timestamp) pair replace the
// existing record, mirroring the database upsert.
type Memory struct {
	mu      sync.RWMutex
	records map[string][]market.PriceSnapshot
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string][]market.PriceSnapshot)}
}

// AppendSnapshots stores a batch. The in-memory backend has no per-record
// failure mode, so the whole batch always succeeds.
func (m *Memory) AppendSnapshots(_ context.Context, snapshots []market.PriceSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, snapshot := range snapshots {
		key := market.NormalizeSymbol(snapshot.Symbol)
		series := m.records[key]

		replaced := false
		for i := range series {
			if series[i].CapturedAt.Equal(snapshot.CapturedAt) {
				series[i] = snapshot
				replaced = true
				break
			}
		}
		if !replaced {
			series = append(series, snapshot)
		}
		m.records[key] = series
	}
	return nil
}

// LatestAll returns the newest record per symbol; empty when nothing stored.
func (m *Memory) LatestAll(_ context.Context) ([]market.PriceSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latest := make([]market.PriceSnapshot, 0, len(m.records))
	for _, series := range m.records {
		latest = append(latest, newestOf(series))
	}
	return latest, nil
}

// LatestBySymbol returns the newest record for a symbol, case-insensitively.
func (m *Memory) LatestBySymbol(_ context.Context, symbol string) (market.PriceSnapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	series, ok := m.records[market.NormalizeSymbol(symbol)]
	if !ok || len(series) == 0 {
		return market.PriceSnapshot{}, false, nil
	}
	return newestOf(series), true, nil
}

// HistoryBySymbol lists a symbol's records within [from, to) in capture order.
func (m *Memory) HistoryBySymbol(_ context.Context, symbol string, from, to time.Time) ([]market.PriceSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := make([]market.PriceSnapshot, 0)
	for _, snapshot := range m.records[market.NormalizeSymbol(symbol)] {
		if snapshot.CapturedAt.Before(from) || !snapshot.CapturedAt.Before(to) {
			continue
		}
		history = append(history, snapshot)
	}
	return history, nil
}

// CountSnapshots counts stored records across all symbols.
func (m *Memory) CountSnapshots(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, series := range m.records {
		count += int64(len(series))
	}
	return count, nil
}

// DeleteSnapshotsBefore prunes records older than the cutoff.
func (m *Memory) DeleteSnapshotsBefore(_ context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for key, series := range m.records {
		kept := series[:0]
		for _, snapshot := range series {
			if snapshot.CapturedAt.Before(olderThan) {
				deleted++
				continue
			}
			kept = append(kept, snapshot)
		}
		if len(kept) == 0 {
			delete(m.records, key)
			continue
		}
		m.records[key] = kept
	}
	return deleted, nil
}

func newestOf(series []market.PriceSnapshot) market.PriceSnapshot {
	newest := series[0]
	for _, snapshot := range series[1:] {
		if snapshot.CapturedAt.After(newest.CapturedAt) {
			newest = snapshot
		}
	}
	return newest
}

var (
	_ SnapshotStore = (*Memory)(nil)
	_ Pruner        = (*Memory)(nil)
)
