package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/perpstats/perpstats/fills"
	"github.com/perpstats/perpstats/ledger"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// tradeEntries builds a minimal trade-kind entry series from per-fill PnL
// values, with running balance starting at start.
func tradeEntries(start float64, pnls ...float64) []ledger.Entry {
	entries := make([]ledger.Entry, len(pnls))
	bal := start
	var cum float64
	for i, p := range pnls {
		bal += p
		cum += p
		entries[i] = ledger.Entry{
			Fill: fills.Fill{
				ID:   string(rune('a' + i)),
				Time: t0.Add(time.Duration(i) * time.Minute),
				Kind: fills.Trade,
				Side: fills.Buy,
			},
			PnL:     p,
			CumPnL:  cum,
			Balance: bal,
		}
	}
	return entries
}

// balanceEntries builds entries whose running balances follow the given
// series exactly.
func balanceEntries(balances ...float64) []ledger.Entry {
	entries := make([]ledger.Entry, len(balances))
	prev := balances[0]
	for i, b := range balances {
		p := b - prev
		if i == 0 {
			p = 0
		}
		entries[i] = ledger.Entry{
			Fill: fills.Fill{
				Time: t0.Add(time.Duration(i) * time.Minute),
				Kind: fills.Trade,
			},
			PnL:     p,
			Balance: b,
		}
		prev = b
	}
	return entries
}

func TestComputeProfitFactor(t *testing.T) {
	t.Parallel()

	r := Compute(tradeEntries(1000, 100, 200, -150))
	assert.InDelta(t, 2.0, r.Trades.ProfitFactor, 1e-9)
	assert.InDelta(t, 300.0, r.Profit.Sum, 1e-9)
	assert.InDelta(t, -150.0, r.Loss.Sum, 1e-9)
}

func TestComputeProfitFactorZeroLoss(t *testing.T) {
	t.Parallel()

	// No losing fill: PF is defined as 0, not an error.
	r := Compute(tradeEntries(1000, 100, 200))
	assert.Equal(t, 0.0, r.Trades.ProfitFactor)
	assert.Equal(t, 0, r.Loss.Count)
	assert.Equal(t, 0.0, r.Loss.Mean)
}

func TestComputeDrawdown(t *testing.T) {
	t.Parallel()

	r := Compute(balanceEntries(100, 120, 90, 130))

	assert.InDelta(t, -30.0, r.Risk.Amount, 1e-9)
	assert.InDelta(t, -30.0/90.0, r.Risk.Ratio, 1e-9)
	assert.Equal(t, t0.Add(2*time.Minute), r.Risk.Time)
}

func TestComputeDrawdownFlatSeries(t *testing.T) {
	t.Parallel()

	r := Compute(balanceEntries(100, 100, 100))
	assert.Equal(t, 0.0, r.Risk.Amount)
	assert.Equal(t, 0.0, r.Risk.Ratio)
}

func TestComputeStreaks(t *testing.T) {
	t.Parallel()

	r := Compute(tradeEntries(1000, 5, -2, 3, 4, -1, 6, 7))

	// Two winning runs of length 2 ([3,4] and [6,7]); the first one wins.
	assert.Equal(t, 2, r.Profit.RunLen)
	assert.InDelta(t, 7.0, r.Profit.RunSum, 1e-9)

	assert.Equal(t, 1, r.Loss.RunLen)
	assert.InDelta(t, -2.0, r.Loss.RunSum, 1e-9)
}

func TestComputeStreaksSpanBreakEvens(t *testing.T) {
	t.Parallel()

	// Zero-PnL fills do not interrupt a run.
	r := Compute(tradeEntries(1000, 1, 0, 2, 0, 3, -1))
	assert.Equal(t, 3, r.Profit.RunLen)
	assert.InDelta(t, 6.0, r.Profit.RunSum, 1e-9)
}

func TestComputeSubsetFields(t *testing.T) {
	t.Parallel()

	r := Compute(tradeEntries(1000, 10, -4, 25, -6))

	assert.Equal(t, 2, r.Profit.Count)
	assert.InDelta(t, 25.0, r.Profit.Best, 1e-9)
	assert.InDelta(t, 17.5, r.Profit.Mean, 1e-9)
	assert.InDelta(t, 0.5, r.Profit.Ratio, 1e-9)

	assert.Equal(t, 2, r.Loss.Count)
	assert.InDelta(t, -6.0, r.Loss.Best, 1e-9)
	assert.InDelta(t, -5.0, r.Loss.Mean, 1e-9)

	assert.Equal(t, 4, r.Trades.Count)
	assert.InDelta(t, 25.0, r.Trades.Sum, 1e-9)
	assert.InDelta(t, 6.25, r.Trades.Mean, 1e-9)
}

func TestComputeFeeSplit(t *testing.T) {
	t.Parallel()

	entries := []ledger.Entry{
		{Fill: fills.Fill{Time: t0, Kind: fills.Trade, Side: fills.Buy, Quantity: 10}, Fee: -0.2},
		{Fill: fills.Fill{Time: t0.Add(time.Minute), Kind: fills.Funding}, Fee: -0.1, PnL: -0.1},
		{Fill: fills.Fill{Time: t0.Add(2 * time.Minute), Kind: fills.Funding}, Fee: 0.05, PnL: 0.05},
	}

	r := Compute(entries)
	assert.InDelta(t, -0.2, r.Fees.Trade, 1e-9)
	assert.InDelta(t, -0.05, r.Fees.Funding, 1e-9)
	// Funding entries stay out of the trade aggregates.
	assert.Equal(t, 1, r.Trades.Count)
	assert.InDelta(t, 10.0, r.Trades.Quantity, 1e-9)
}

func TestComputeEmptyLedger(t *testing.T) {
	t.Parallel()

	r := Compute(nil)
	assert.Equal(t, Report{}, r)
}
