package ledger

import "time"

// PositionSnapshot is the account state observed at or after the end of the
// fill history: the current signed position size and wallet balance. The
// reconstruction anchors itself to this known present state and never
// mutates it.
type PositionSnapshot struct {
	Size    float64 // signed: positive long, negative short, zero flat
	Balance float64
	Time    time.Time
}
