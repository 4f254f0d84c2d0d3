package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/perpstats/perpstats/config"
	"github.com/perpstats/perpstats/journal"
	"github.com/perpstats/perpstats/render"
	"github.com/perpstats/perpstats/stats"
	"github.com/perpstats/perpstats/timefmt"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Recompute statistics from a journaled ledger",
	Long: `Read previously journaled ledger entries for the configured window from
the SQLite journal and recompute the statistics report, without touching
the venue API.

Example:
  perpstats stats -f perpstats.yaml --sections fee,max-risk`,
	RunE: runStats,
}

var (
	statsConfigPath string
	statsSections   []string
)

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVarP(&statsConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	statsCmd.Flags().StringSliceVar(&statsSections, "sections", nil, "report sections to print (default all)")
	statsCmd.MarkFlagRequired("config")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(statsConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Journal.Type != "sqlite" {
		return fmt.Errorf("stats requires a sqlite journal, got %q", cfg.Journal.Type)
	}

	j, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	start, _ := cfg.WindowStart()
	end, _ := cfg.WindowEnd()
	if end.IsZero() {
		end = start.AddDate(100, 0, 0)
	}

	entries, err := j.ListEntriesBetween(cfg.Account.Symbol, start, end)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("no journaled entries for %s in window", cfg.Account.Symbol)
	}

	sections := make([]render.Section, len(statsSections))
	for i, s := range statsSections {
		sections[i] = render.Section(s)
	}

	r := render.NewReporter(os.Stdout, timefmt.DateTime)
	return r.Report(cfg.Account.Symbol, stats.Compute(entries), sections...)
}
