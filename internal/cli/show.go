package cli

import (
	"github.com/spf13/cobra"

	"crypto-price-tracker/internal/app"
)

var (
	showSymbol string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the latest snapshot per tracked cryptocurrency",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ShowOptions{
			Symbol: showSymbol,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showSymbol, "symbol", "", "Limit output to a single symbol")
}
