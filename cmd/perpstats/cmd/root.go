package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "perpstats",
	Short: "Reconstruct attributed PnL ledgers for margined perpetual accounts",
	Long: `Perpstats rebuilds a per-fill PnL ledger for a derivatives account from
its execution history and current position snapshot.

It provides tools for:
  - Reconstructing position, average cost and realized PnL per fill
  - Trade statistics: profit factor, win/loss streaks, max drawdown
  - Journaling reconstructed ledgers to CSV or SQLite
  - Downloading public trade archives and resampling them into candles`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
