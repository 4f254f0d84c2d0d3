package ledger

import (
	"fmt"
	"time"

	"github.com/perpstats/perpstats/fills"
)

// AnchorKind says how the reconstruction starting point was established.
type AnchorKind string

const (
	// AnchorFlat marks a point where the position was exactly zero.
	AnchorFlat AnchorKind = "flat"
	// AnchorFlip marks a point just after the position reversed sign, so
	// the cost basis is the flipping fill's execution price and nothing
	// earlier matters.
	AnchorFlip AnchorKind = "flip"
	// AnchorAssumedFlat is the caller-selected fallback when no flat or
	// flip point exists inside the lookback buffer: reconstruction starts
	// at the earliest available fill pretending the position was flat.
	// Results carry this flag because it is an approximation.
	AnchorAssumedFlat AnchorKind = "assumed-flat"
)

// Anchor is a point in the fill sequence where position size and cost basis
// are known with certainty. The forward fold starts at Index with the given
// pre-fill state.
type Anchor struct {
	Index   int
	Kind    AnchorKind
	Size    float64 // signed position just before fills[Index]
	AvgCost float64 // meaningful only when Size != 0
}

// AnchorNotFoundError reports that no flat or flip point exists within the
// lookback buffer before the window start.
type AnchorNotFoundError struct {
	WindowStart time.Time
	Lookback    time.Duration
}

func (e *AnchorNotFoundError) Error() string {
	return fmt.Sprintf("ledger: no flat or flip anchor within %s before %s",
		e.Lookback, e.WindowStart.Format(time.RFC3339))
}

// BackwardPositions reconstructs the signed position held just before each
// fill by starting from the known current size and undoing every trade
// fill's contribution in reverse chronological order. Funding fills do not
// move the position. The fill sequence must already be normalized.
func BackwardPositions(fs []fills.Fill, currentSize float64) []float64 {
	pos := make([]float64, len(fs))
	run := currentSize
	for i := len(fs) - 1; i >= 0; i-- {
		run -= fs[i].SignedQuantity()
		pos[i] = run
	}
	return pos
}

// FindAnchor locates the latest trustworthy reconstruction starting point at
// or before windowStart. It scans the backward-reconstructed position
// series from the last fill at or before windowStart toward older fills,
// stopping at the first index where the position was flat, or where the
// sign differs from the previous index (the prior fill flipped the
// position). The scan never visits fills older than windowStart minus
// lookback; if no anchor exists inside that buffer it returns
// *AnchorNotFoundError.
func FindAnchor(fs []fills.Fill, snap PositionSnapshot, windowStart time.Time, lookback time.Duration) (Anchor, error) {
	notFound := &AnchorNotFoundError{WindowStart: windowStart, Lookback: lookback}
	if len(fs) == 0 {
		return Anchor{}, notFound
	}

	pos := BackwardPositions(fs, snap.Size)

	// Last fill at or before the window start; if every fill is later,
	// scan from the first one.
	start := 0
	for i := len(fs) - 1; i >= 0; i-- {
		if !fs[i].Time.After(windowStart) {
			start = i
			break
		}
	}

	horizon := windowStart.Add(-lookback)
	for i := start; i >= 0; i-- {
		if fs[i].Time.Before(horizon) {
			break
		}
		if pos[i] == 0 {
			return Anchor{Index: i, Kind: AnchorFlat}, nil
		}
		if i > 0 && pos[i]*pos[i-1] < 0 {
			// fills[i-1] reversed the position: the remainder opened at
			// its execution price.
			return Anchor{
				Index:   i,
				Kind:    AnchorFlip,
				Size:    pos[i],
				AvgCost: fs[i-1].Price,
			}, nil
		}
	}
	return Anchor{}, notFound
}

// AssumedFlatAnchor is the documented approximation used when FindAnchor
// fails and the caller chooses to proceed anyway: start at the earliest
// available fill with a flat baseline.
func AssumedFlatAnchor() Anchor {
	return Anchor{Index: 0, Kind: AnchorAssumedFlat}
}
