// Package render prints reconstruction reports and ledger tails as
// console tables.
package render

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/perpstats/perpstats/ledger"
	"github.com/perpstats/perpstats/pricing"
	"github.com/perpstats/perpstats/stats"
	"github.com/perpstats/perpstats/timefmt"
)

// Section selects one block of the report. The set is closed; unknown
// sections are an error rather than silently skipped.
type Section string

const (
	SectionTotal   Section = "total"
	SectionProfit  Section = "profit"
	SectionLoss    Section = "loss"
	SectionFee     Section = "fee"
	SectionMaxRisk Section = "max-risk"
)

// AllSections lists every section in display order.
func AllSections() []Section {
	return []Section{SectionTotal, SectionProfit, SectionLoss, SectionFee, SectionMaxRisk}
}

// Reporter writes tables to a single destination using one date layout.
type Reporter struct {
	out    io.Writer
	layout timefmt.Layout
}

func NewReporter(out io.Writer, layout timefmt.Layout) *Reporter {
	return &Reporter{out: out, layout: layout}
}

// Report prints the requested sections of a statistics report. With no
// sections given, every section is printed.
func (r *Reporter) Report(symbol string, rep stats.Report, sections ...Section) error {
	if len(sections) == 0 {
		sections = AllSections()
	}

	fmt.Fprintf(r.out, "\n[%s]  PF:%.2f  Balance: %.4f -> %.4f\n",
		symbol, rep.Trades.ProfitFactor, rep.StartBalance, rep.EndBalance)

	table := tablewriter.NewWriter(r.out)
	table.Header("Section", "Count", "Sum", "Mean", "Best", "Streak")

	var footers []string
	for _, s := range sections {
		switch s {
		case SectionTotal:
			table.Append(
				"Total",
				fmt.Sprintf("%d (qty %.0f)", rep.Trades.Count, rep.Trades.Quantity),
				fmt.Sprintf("%+.4f", rep.Trades.Sum),
				fmt.Sprintf("%+.4f", rep.Trades.Mean),
				"", "",
			)
		case SectionProfit:
			table.Append(runCells("Profit", rep.Profit)...)
		case SectionLoss:
			table.Append(runCells("Loss", rep.Loss)...)
		case SectionFee:
			footers = append(footers, fmt.Sprintf(
				"  Fee: trade %+.4f  funding %+.4f",
				rep.Fees.Trade, rep.Fees.Funding))
		case SectionMaxRisk:
			footers = append(footers, fmt.Sprintf(
				"  Max risk: drawdown %.2f%% (%+.4f) at %s",
				rep.Risk.Ratio*100, rep.Risk.Amount, r.layout.Format(rep.Risk.Time)))
		default:
			return fmt.Errorf("render: unknown section %q", s)
		}
	}

	table.Render()
	for _, line := range footers {
		fmt.Fprintln(r.out, line)
	}
	return nil
}

func runCells(label string, rs stats.RunSummary) []any {
	return []any{
		label,
		fmt.Sprintf("%d (%.2f%%)", rs.Count, rs.Ratio*100),
		fmt.Sprintf("%+.4f", rs.Sum),
		fmt.Sprintf("%+.4f", rs.Mean),
		fmt.Sprintf("%+.4f", rs.Best),
		fmt.Sprintf("%d (%+.4f)", rs.RunLen, rs.RunSum),
	}
}

// Ledger prints the last n ledger entries, oldest first. n <= 0 prints
// the whole ledger.
func (r *Reporter) Ledger(entries []ledger.Entry, n int) {
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}

	table := tablewriter.NewWriter(r.out)
	table.Header("Time", "Kind", "Side", "Price", "Qty", "Position", "AvgCost", "PnL", "CumPnL", "Balance")

	for _, e := range entries {
		table.Append(
			r.layout.Format(e.Fill.Time),
			string(e.Fill.Kind),
			string(e.Fill.Side),
			fmt.Sprintf("%.2f", e.Fill.Price),
			fmt.Sprintf("%.4f", e.Fill.Quantity),
			fmt.Sprintf("%+.4f", e.Position),
			fmt.Sprintf("%.2f", e.AvgCost),
			fmt.Sprintf("%+.6f", e.PnL),
			fmt.Sprintf("%+.6f", e.CumPnL),
			fmt.Sprintf("%.6f", e.Balance),
		)
	}

	table.Render()
}

// Candles prints OHLCV rows, for the trades command.
func (r *Reporter) Candles(candles []pricing.Candle) {
	table := tablewriter.NewWriter(r.out)
	table.Header("Time", "Open", "High", "Low", "Close", "Volume")
	for _, c := range candles {
		table.Append(
			r.layout.Format(c.Time),
			fmt.Sprintf("%.2f", c.Open),
			fmt.Sprintf("%.2f", c.High),
			fmt.Sprintf("%.2f", c.Low),
			fmt.Sprintf("%.2f", c.Close),
			fmt.Sprintf("%.4f", c.Volume),
		)
	}
	table.Render()
}
