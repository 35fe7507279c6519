package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"crypto-price-tracker/internal/market"
	"crypto-price-tracker/internal/storage"
)

// Show prints the latest stored snapshot per symbol, or a single symbol when
// one is requested. Single-symbol lookups consult the cache first and fall
// back to the store on a miss.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, _, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.Symbol != "" {
		return a.showSymbol(ctx, store, opts.Symbol)
	}

	snapshots, err := store.LatestAll(ctx)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		fmt.Fprintln(os.Stdout, "no snapshots found")
		return nil
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].MarketCapRank != snapshots[j].MarketCapRank {
			return snapshots[i].MarketCapRank < snapshots[j].MarketCapRank
		}
		return snapshots[i].Symbol < snapshots[j].Symbol
	})

	printSnapshotTable(snapshots)
	return nil
}

func (a *App) showSymbol(ctx context.Context, store storage.SnapshotStore, symbol string) error {
	latest, closeCache := a.openCache(ctx)
	if closeCache != nil {
		defer closeCache()
	}

	snapshot, err := latest.GetLatest(ctx, symbol)
	if err == nil {
		printSnapshotTable([]market.PriceSnapshot{snapshot})
		return nil
	}
	if !errors.Is(err, market.ErrNotFound) {
		a.Logger.Warn().Err(err).Str("symbol", symbol).Msg("cache lookup failed, falling back to store")
	}

	snapshot, found, err := store.LatestBySymbol(ctx, symbol)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintf(os.Stdout, "no snapshots found for %s\n", market.NormalizeSymbol(symbol))
		return nil
	}

	printSnapshotTable([]market.PriceSnapshot{snapshot})
	return nil
}

func printSnapshotTable(snapshots []market.PriceSnapshot) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Rank\tSymbol\tName\tPrice (USD)\t1h%\t24h%\t7d%\tMarket Cap\tUpdated (UTC)")

	for _, snapshot := range snapshots {
		fmt.Fprintf(
			writer,
			"%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			snapshot.MarketCapRank,
			snapshot.Symbol,
			snapshot.Name,
			formatDecimal(snapshot.CurrentPrice, 2),
			formatDecimal(snapshot.Change1hPct, 2),
			formatDecimal(snapshot.Change24hPct, 2),
			formatDecimal(snapshot.Change7dPct, 2),
			formatDecimal(snapshot.MarketCap, 0),
			snapshot.CapturedAt.UTC().Format(time.RFC3339),
		)
	}

	writer.Flush()
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
