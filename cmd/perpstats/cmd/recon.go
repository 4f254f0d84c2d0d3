package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/perpstats/perpstats/bybit"
	"github.com/perpstats/perpstats/config"
	"github.com/perpstats/perpstats/fills"
	"github.com/perpstats/perpstats/journal"
	"github.com/perpstats/perpstats/ledger"
	"github.com/perpstats/perpstats/recon"
	"github.com/perpstats/perpstats/render"
	"github.com/perpstats/perpstats/timefmt"
)

var reconCmd = &cobra.Command{
	Use:   "recon",
	Short: "Reconstruct the PnL ledger for a window of account history",
	Long: `Fetch the account's execution history and position snapshot, rebuild the
per-fill PnL ledger for the configured window, print the report, and
record the run in the configured journal.

Example:
  perpstats recon -f perpstats.yaml`,
	RunE: runRecon,
}

var (
	reconConfigPath string
	reconTail       int
)

func init() {
	rootCmd.AddCommand(reconCmd)

	reconCmd.Flags().StringVarP(&reconConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	reconCmd.Flags().IntVarP(&reconTail, "tail", "n", 20, "ledger entries to print (0 for all)")
	reconCmd.MarkFlagRequired("config")
}

func runRecon(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(reconConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg.Log)

	start, _ := cfg.WindowStart()
	end, _ := cfg.WindowEnd()
	lookback, _ := cfg.Lookback()

	ctx := cmd.Context()
	client := bybit.NewClient(cfg.API.Key, cfg.API.Secret, cfg.API.Testnet, log)

	fs, err := loadFills(ctx, client, cfg, start.Add(-lookback), end, log)
	if err != nil {
		return fmt.Errorf("fetch executions: %w", err)
	}

	snap, err := client.GetPosition(ctx, cfg.Account.Symbol)
	if err != nil {
		return fmt.Errorf("fetch position: %w", err)
	}

	res, err := recon.Run(fs, snap, recon.Options{
		WindowStart:  start,
		WindowEnd:    end,
		Lookback:     lookback,
		AssumeFlat:   cfg.Window.AssumeFlat,
		StartBalance: cfg.Account.StartBalance,
	})
	if err != nil {
		var fatal *ledger.FatalLedgerError
		if res == nil || !errors.As(err, &fatal) {
			return fmt.Errorf("reconstruct: %w", err)
		}
		log.Warn().
			Str("fill_id", fatal.FillID).
			Int("index", fatal.Index).
			Str("reason", fatal.Reason).
			Msg("ledger stopped at malformed fill; results are partial")
	}
	logAnchor(log, res)

	if err := record(cfg, res); err != nil {
		return fmt.Errorf("journal: %w", err)
	}

	r := render.NewReporter(os.Stdout, timefmt.DateTime)
	if reconTail != 0 {
		r.Ledger(res.Entries, reconTail)
	}
	return r.Report(cfg.Account.Symbol, res.Report)
}

func logAnchor(log zerolog.Logger, res *recon.Result) {
	ev := log.Info().
		Str("kind", string(res.Anchor.Kind)).
		Int("index", res.Anchor.Index).
		Float64("start_balance", res.StartBalance)
	if res.AssumedFlat {
		ev = ev.Bool("assumed_flat", true)
	}
	ev.Msg("anchored reconstruction")
}

// loadFills reuses the configured fill cache when it covers the request
// and refetches otherwise.
func loadFills(ctx context.Context, client *bybit.Client, cfg *config.Config, from, to time.Time, log zerolog.Logger) ([]fills.Fill, error) {
	cache := cfg.Journal.FillCache
	if cache != "" {
		if to.IsZero() {
			to = time.Now().UTC()
		}
		fs, err := journal.ReadFills(cache, from, to)
		if err == nil {
			log.Debug().Int("fills", len(fs)).Str("path", cache).Msg("using cached fills")
			return fs, nil
		}
		if !errors.Is(err, journal.ErrCacheMiss) {
			return nil, err
		}
	}

	fs, err := client.GetExecutions(ctx, bybit.ExecutionsRequest{
		Symbol: cfg.Account.Symbol,
		From:   from,
	})
	if err != nil {
		return nil, err
	}

	if cache != "" {
		if err := journal.WriteFills(cache, fills.Normalize(fs)); err != nil {
			log.Warn().Err(err).Str("path", cache).Msg("could not write fill cache")
		}
	}
	return fs, nil
}

func record(cfg *config.Config, res *recon.Result) error {
	j, err := openJournal(cfg)
	if err != nil || j == nil {
		return err
	}
	defer j.Close()

	for _, e := range res.Entries {
		if err := j.RecordEntry(cfg.Account.Symbol, e); err != nil {
			return err
		}
	}
	return j.RecordReport(cfg.Account.Symbol, res.Report)
}

func openJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "csv":
		return journal.NewCSV(cfg.Journal.EntriesFile, cfg.Journal.ReportsFile)
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath)
	default:
		return nil, nil
	}
}
