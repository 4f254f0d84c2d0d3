// Package recon wires the reconstruction pipeline: normalize the raw fill
// history, locate a trustworthy anchor, fold the ledger forward and derive
// the performance report. Data flows strictly one way; no stage calls back
// upstream and the whole run is a pure function of its inputs.
package recon

import (
	"errors"
	"time"

	"github.com/perpstats/perpstats/fills"
	"github.com/perpstats/perpstats/ledger"
	"github.com/perpstats/perpstats/stats"
)

// Options bound a reconstruction run.
type Options struct {
	// WindowStart and WindowEnd restrict the returned ledger. A zero
	// WindowEnd means "up to the last fill".
	WindowStart time.Time
	WindowEnd   time.Time

	// Lookback is how far before WindowStart the anchor search may scan.
	// It must be finite and positive; the search never goes further back.
	Lookback time.Duration

	// AssumeFlat proceeds with a flat baseline at the earliest available
	// fill when no anchor is found, instead of failing. The result records
	// the approximation.
	AssumeFlat bool

	// StartBalance optionally overrides the derived starting balance.
	StartBalance *float64
}

// Result is a finished reconstruction: the windowed ledger entries, the
// report over them, and metadata about how the run was anchored.
type Result struct {
	Entries      []ledger.Entry
	Report       stats.Report
	Anchor       ledger.Anchor
	AssumedFlat  bool
	StartBalance float64
	// Incomplete is set when the fold stopped at a malformed fill and only
	// partial results are present.
	Incomplete bool
}

// Run reconstructs the attributed PnL ledger for one account/symbol from
// its raw fill history and a position snapshot taken after the history
// ends.
//
// On a malformed fill Run returns the partial result alongside the
// *ledger.FatalLedgerError for inspection. On a missing anchor it returns
// *ledger.AnchorNotFoundError unless Options.AssumeFlat is set.
func Run(raw []fills.Fill, snap ledger.PositionSnapshot, opts Options) (*Result, error) {
	fs := fills.Normalize(raw)

	anchor, err := ledger.FindAnchor(fs, snap, opts.WindowStart, opts.Lookback)
	assumed := false
	if err != nil {
		var anf *ledger.AnchorNotFoundError
		if !errors.As(err, &anf) || !opts.AssumeFlat {
			return nil, err
		}
		anchor = ledger.AssumedFlatAnchor()
		assumed = true
	}

	led, buildErr := ledger.Build(fs, anchor, snap, ledger.Options{StartBalance: opts.StartBalance})

	entries := window(led.Entries, opts.WindowStart, opts.WindowEnd)
	res := &Result{
		Entries:      entries,
		Report:       stats.Compute(entries),
		Anchor:       anchor,
		AssumedFlat:  assumed,
		StartBalance: led.StartBalance,
		Incomplete:   led.Incomplete,
	}
	return res, buildErr
}

// window restricts entries to [start, end]; cumulative columns keep their
// anchor-relative values so the series stays consistent with the snapshot.
func window(entries []ledger.Entry, start, end time.Time) []ledger.Entry {
	lo := 0
	for lo < len(entries) && entries[lo].Fill.Time.Before(start) {
		lo++
	}
	hi := len(entries)
	if !end.IsZero() {
		for hi > lo && entries[hi-1].Fill.Time.After(end) {
			hi--
		}
	}
	return entries[lo:hi]
}
