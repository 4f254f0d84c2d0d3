package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/perpstats/perpstats/bybit"
	"github.com/perpstats/perpstats/config"
	"github.com/perpstats/perpstats/pricing"
	"github.com/perpstats/perpstats/render"
	"github.com/perpstats/perpstats/timefmt"
)

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "Download public trade archives and print OHLCV candles",
	Long: `Download the venue's public trade archive for the configured window,
resample the trades into candles of the given period, and print them.

Example:
  perpstats trades -f perpstats.yaml --period 1h`,
	RunE: runTrades,
}

var (
	tradesConfigPath string
	tradesPeriod     time.Duration
	tradesCoarse     time.Duration
)

func init() {
	rootCmd.AddCommand(tradesCmd)

	tradesCmd.Flags().StringVarP(&tradesConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	tradesCmd.Flags().DurationVar(&tradesPeriod, "period", time.Hour, "candle period")
	tradesCmd.Flags().DurationVar(&tradesCoarse, "downsample", 0, "optional coarser period to aggregate the candles into")
	tradesCmd.MarkFlagRequired("config")
}

func runTrades(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(tradesConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg.Log)

	start, _ := cfg.WindowStart()
	end, _ := cfg.WindowEnd()
	if end.IsZero() {
		end = time.Now().UTC()
	}

	client := bybit.NewClient(cfg.API.Key, cfg.API.Secret, cfg.API.Testnet, log)
	trades, err := client.GetPublicTrades(cmd.Context(), cfg.Account.Symbol, start, end)
	if err != nil {
		return fmt.Errorf("download trades: %w", err)
	}
	if len(trades) == 0 {
		return fmt.Errorf("no public trades for %s in window", cfg.Account.Symbol)
	}

	candles, err := pricing.Resample(trades, tradesPeriod)
	if err != nil {
		return fmt.Errorf("resample: %w", err)
	}
	if tradesCoarse > 0 {
		candles, err = pricing.Downsample(candles, tradesCoarse)
		if err != nil {
			return fmt.Errorf("downsample: %w", err)
		}
	}

	log.Info().Int("trades", len(trades)).Int("candles", len(candles)).Msg("resampled archive")

	render.NewReporter(os.Stdout, timefmt.DateTime).Candles(candles)
	return nil
}
