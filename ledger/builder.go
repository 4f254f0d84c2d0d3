package ledger

import (
	"math"

	"github.com/perpstats/perpstats/fills"
)

// Options tunes the ledger build.
type Options struct {
	// StartBalance overrides the derived starting balance. When nil the
	// start balance is snapshot balance minus the ledger's total PnL, so
	// the reconstructed series ends exactly at the known present state.
	StartBalance *float64
}

// Build walks forward from the anchor applying average-cost accounting and
// produces one ledger entry per fill. Fills must be normalized (strictly
// non-decreasing timestamps, unique IDs); violating that is a normalizer
// contract failure, not checked here.
//
// The fold carries two states: flat (size == 0, cost basis undefined) and
// positioned. Trade fills move between them; funding fills only charge PnL.
// A fill with a malformed price, quantity or fee stops the build with
// *FatalLedgerError; the returned ledger holds the entries folded so far
// and is marked Incomplete.
func Build(fs []fills.Fill, anchor Anchor, snap PositionSnapshot, opts Options) (*Ledger, error) {
	led := &Ledger{Anchor: anchor}
	if anchor.Index < 0 || anchor.Index > len(fs) {
		return led, &FatalLedgerError{Index: anchor.Index, Reason: "anchor index out of range"}
	}

	size := anchor.Size
	avg := anchor.AvgCost
	var cumPnL, cumFee float64

	fold := fs[anchor.Index:]
	led.Entries = make([]Entry, 0, len(fold))

	for i, f := range fold {
		if reason := checkFill(f); reason != "" {
			led.Incomplete = true
			finishBalances(led, snap, opts)
			return led, &FatalLedgerError{FillID: f.ID, Index: anchor.Index + i, Reason: reason}
		}

		var tradePnL float64

		if f.Kind == fills.Trade {
			increasing := size == 0 ||
				(size > 0 && f.Side == fills.Buy) ||
				(size < 0 && f.Side == fills.Sell)

			if increasing {
				// Notional-weighted average cost over the grown position.
				value := avg * size
				if f.Side == fills.Buy {
					value += f.Value
				} else {
					value -= f.Value
				}
				size += f.SignedQuantity()
				avg = math.Abs(value / size)
			} else {
				// The fill opposes the open position: the portion up to
				// |size| closes exposure at the fill's per-unit cost.
				cost := f.Value / f.Quantity
				perUnit := cost - avg
				if size < 0 {
					perUnit = avg - cost
				}
				closed := math.Min(f.Quantity, math.Abs(size))
				tradePnL = perUnit * closed

				size += f.SignedQuantity()
				switch {
				case size == 0:
					avg = 0
				case (size > 0 && f.Side == fills.Buy) || (size < 0 && f.Side == fills.Sell):
					// Sign flipped: the overshoot opened a new position at
					// this fill's price, the old basis is gone.
					avg = cost
				}
			}
		}

		fee := -f.Fee
		pnl := tradePnL + fee
		cumPnL += pnl
		cumFee += fee

		led.Entries = append(led.Entries, Entry{
			Fill:     f,
			Position: size,
			AvgCost:  avg,
			TradePnL: tradePnL,
			Fee:      fee,
			PnL:      pnl,
			CumPnL:   cumPnL,
			CumFee:   cumFee,
		})
	}

	finishBalances(led, snap, opts)
	return led, nil
}

// finishBalances derives the starting balance and backfills the running
// balance column once the total PnL is known.
func finishBalances(led *Ledger, snap PositionSnapshot, opts Options) {
	var total float64
	if n := len(led.Entries); n > 0 {
		total = led.Entries[n-1].CumPnL
	}
	if opts.StartBalance != nil {
		led.StartBalance = *opts.StartBalance
	} else {
		led.StartBalance = snap.Balance - total
	}
	for i := range led.Entries {
		led.Entries[i].Balance = led.StartBalance + led.Entries[i].CumPnL
	}
}

func checkFill(f fills.Fill) string {
	if !isFinite(f.Fee) {
		return "non-numeric fee"
	}
	if f.Kind != fills.Trade {
		return ""
	}
	if f.Side != fills.Buy && f.Side != fills.Sell {
		return "trade fill without side"
	}
	if !isFinite(f.Quantity) || f.Quantity <= 0 {
		return "missing or non-numeric quantity"
	}
	if !isFinite(f.Price) || f.Price <= 0 {
		return "missing or non-numeric price"
	}
	if !isFinite(f.Value) || f.Value <= 0 {
		return "missing or non-numeric value"
	}
	return ""
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
