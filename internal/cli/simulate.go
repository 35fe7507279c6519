package cli

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateSymbol    string
	simulateThreshold float64
	simulatePrices    []string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Replay a price sequence through the crossing detector",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateSymbol == "" {
			return errors.New("--symbol is required")
		}
		if len(simulatePrices) == 0 {
			return errors.New("--prices is required")
		}

		prices := make([]decimal.Decimal, 0, len(simulatePrices))
		for _, raw := range simulatePrices {
			price, err := decimal.NewFromString(raw)
			if err != nil {
				return fmt.Errorf("invalid price %q: %w", raw, err)
			}
			prices = append(prices, price)
		}

		threshold := decimal.NewFromFloat(simulateThreshold)
		return getApp().SimulateAlert(cmd.Context(), simulateSymbol, threshold, prices)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateSymbol, "symbol", "", "Symbol to simulate")
	simulateCmd.Flags().Float64Var(&simulateThreshold, "threshold", 0, "Threshold price (defaults to the configured one)")
	simulateCmd.Flags().StringSliceVar(&simulatePrices, "prices", nil, "Comma-separated price sequence")
}
