package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pairtrade",
	Short: "A pairs-trading backtest and paper-trading simulator",
	Long: `Pairtrade simulates a z-score mean-reversion strategy on the price
ratio of two symbols.

It provides tools for:
  - Backtesting against historical prices replayed from a SQLite store
  - Paper trading against the latest collected prices
  - Seeding the price store from CSV files
  - Generating and validating configuration files`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
