package ledger

import (
	"fmt"

	"github.com/perpstats/perpstats/fills"
)

// Entry is one row of the reconstructed ledger: the state of the position
// and account immediately after the fill was applied. Entries are produced
// exactly once per fill, in fill order, and are immutable after creation.
//
// AvgCost is defined only while Position != 0 and must not be read when the
// position is flat.
type Entry struct {
	Fill     fills.Fill
	Position float64 // signed running position size after this fill
	AvgCost  float64 // notional-weighted average cost basis of the open position
	TradePnL float64 // price PnL realized by this fill, before fees
	Fee      float64 // this fill's fee as a negative PnL contribution
	PnL      float64 // total realized PnL of this fill: TradePnL + Fee
	CumPnL   float64 // running sum of PnL since the anchor
	CumFee   float64 // running sum of Fee since the anchor
	Balance  float64 // StartBalance + CumPnL
}

// Ledger is the finished, ordered sequence of entries together with the
// state that makes it self-consistent. Once built it is read-only;
// analytics passes over it share no mutable state.
type Ledger struct {
	Entries      []Entry
	Anchor       Anchor
	StartBalance float64
	// Incomplete is set when the fold stopped at a malformed fill. The
	// entries up to that fill are valid but the ledger does not cover the
	// full input.
	Incomplete bool
}

// FatalLedgerError reports a fill that cannot be folded. Every running
// value after a malformed price or quantity would be wrong, so the build
// stops at the offending fill and returns the partial ledger alongside this
// error.
type FatalLedgerError struct {
	FillID string
	Index  int
	Reason string
}

func (e *FatalLedgerError) Error() string {
	return fmt.Sprintf("ledger: fill %s at index %d: %s", e.FillID, e.Index, e.Reason)
}
