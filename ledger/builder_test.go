package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpstats/perpstats/fills"
)

func tradeFee(id string, min int, side fills.Side, price, qty, fee float64) fills.Fill {
	f := trade(id, min, side, price, qty)
	f.Fee = fee
	return f
}

func flatAnchor() Anchor { return Anchor{Index: 0, Kind: AnchorFlat} }

func TestBuildFlatRoundTrip(t *testing.T) {
	t.Parallel()

	fs := []fills.Fill{
		trade("1", 0, fills.Buy, 100, 10),
		trade("2", 10, fills.Sell, 110, 10),
	}

	led, err := Build(fs, flatAnchor(), PositionSnapshot{Size: 0, Balance: 600}, Options{})
	require.NoError(t, err)
	require.Len(t, led.Entries, 2)

	assert.Equal(t, 0.0, led.Entries[0].PnL)
	assert.Equal(t, 100.0, led.Entries[1].PnL)
	assert.Equal(t, 10.0, led.Entries[0].Position)
	assert.Equal(t, 100.0, led.Entries[0].AvgCost)
	assert.Equal(t, 0.0, led.Entries[1].Position)

	assert.Equal(t, 500.0, led.StartBalance)
	assert.Equal(t, 600.0, led.Entries[1].Balance)
}

func TestBuildFlipResetsCostBasis(t *testing.T) {
	t.Parallel()

	fs := []fills.Fill{
		trade("1", 0, fills.Buy, 100, 10),
		tradeFee("2", 10, fills.Sell, 110, 15, 0.5),
	}

	led, err := Build(fs, flatAnchor(), PositionSnapshot{Size: -5, Balance: 1000}, Options{})
	require.NoError(t, err)
	require.Len(t, led.Entries, 2)

	flip := led.Entries[1]
	assert.Equal(t, -5.0, flip.Position)
	// The overshoot opened a fresh short at the flipping fill's price.
	assert.Equal(t, 110.0, flip.AvgCost)
	// 10 units closed at (110-100), minus the fee.
	assert.Equal(t, 100.0, flip.TradePnL)
	assert.InDelta(t, 99.5, flip.PnL, 1e-9)
}

func TestBuildAveragesCostOnIncrease(t *testing.T) {
	t.Parallel()

	fs := []fills.Fill{
		trade("1", 0, fills.Buy, 100, 10),
		trade("2", 10, fills.Buy, 120, 10),
		trade("3", 20, fills.Sell, 115, 20),
	}

	led, err := Build(fs, flatAnchor(), PositionSnapshot{Balance: 0}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 110.0, led.Entries[1].AvgCost)
	assert.Equal(t, 0.0, led.Entries[1].PnL) // no PnL realized while increasing
	assert.InDelta(t, (115.0-110.0)*20, led.Entries[2].PnL, 1e-9)
	assert.Equal(t, 0.0, led.Entries[2].Position)
}

func TestBuildShortSide(t *testing.T) {
	t.Parallel()

	fs := []fills.Fill{
		trade("1", 0, fills.Sell, 200, 8),
		trade("2", 10, fills.Buy, 190, 8),
	}

	led, err := Build(fs, flatAnchor(), PositionSnapshot{Balance: 0}, Options{})
	require.NoError(t, err)

	assert.Equal(t, -8.0, led.Entries[0].Position)
	assert.Equal(t, 200.0, led.Entries[0].AvgCost)
	// short: avg_cost - fill_price, per unit.
	assert.InDelta(t, (200.0-190.0)*8, led.Entries[1].PnL, 1e-9)
}

func TestBuildPartialReduceKeepsBasis(t *testing.T) {
	t.Parallel()

	fs := []fills.Fill{
		trade("1", 0, fills.Buy, 100, 10),
		trade("2", 10, fills.Sell, 105, 4),
	}

	led, err := Build(fs, flatAnchor(), PositionSnapshot{Balance: 0}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 6.0, led.Entries[1].Position)
	assert.Equal(t, 100.0, led.Entries[1].AvgCost)
	assert.InDelta(t, 20.0, led.Entries[1].PnL, 1e-9)
}

func TestBuildFundingPassThrough(t *testing.T) {
	t.Parallel()

	fs := []fills.Fill{
		trade("1", 0, fills.Buy, 100, 10),
		funding("2", 10, 0.25),
		funding("3", 20, -0.10), // funding received
	}

	led, err := Build(fs, flatAnchor(), PositionSnapshot{Balance: 0}, Options{})
	require.NoError(t, err)

	assert.Equal(t, -0.25, led.Entries[1].PnL)
	assert.Equal(t, 10.0, led.Entries[1].Position) // unchanged
	assert.Equal(t, 0.10, led.Entries[2].PnL)
	assert.InDelta(t, -0.15, led.Entries[2].CumFee, 1e-9)
}

func TestBuildFromFlipAnchor(t *testing.T) {
	t.Parallel()

	// Start already short 5 at 110 (just flipped), then cover.
	fs := []fills.Fill{
		trade("3", 20, fills.Buy, 104, 5),
	}
	anchor := Anchor{Index: 0, Kind: AnchorFlip, Size: -5, AvgCost: 110}

	led, err := Build(fs, anchor, PositionSnapshot{Balance: 0}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 0.0, led.Entries[0].Position)
	assert.InDelta(t, (110.0-104.0)*5, led.Entries[0].PnL, 1e-9)
}

func TestBuildConservation(t *testing.T) {
	t.Parallel()

	fs := []fills.Fill{
		tradeFee("1", 0, fills.Buy, 100, 10, 0.2),
		funding("2", 5, 0.1),
		tradeFee("3", 10, fills.Sell, 108, 6, 0.3),
		tradeFee("4", 20, fills.Sell, 95, 8, 0.1), // flips to short 4
		tradeFee("5", 30, fills.Buy, 90, 4, 0.4),
	}

	led, err := Build(fs, flatAnchor(), PositionSnapshot{Size: 0, Balance: 1234.5}, Options{})
	require.NoError(t, err)
	require.Len(t, led.Entries, len(fs))

	// Running PnL equals the sum of per-entry PnL at every index.
	var sum float64
	for _, e := range led.Entries {
		sum += e.PnL
		assert.InDelta(t, sum, e.CumPnL, 1e-9)
		assert.InDelta(t, led.StartBalance+e.CumPnL, e.Balance, 1e-9)
	}

	last := led.Entries[len(led.Entries)-1]
	assert.InDelta(t, last.Balance-led.StartBalance, last.CumPnL, 1e-9)
	assert.InDelta(t, 1234.5, last.Balance, 1e-9)
}

func TestBuildStartBalanceOverride(t *testing.T) {
	t.Parallel()

	fs := []fills.Fill{
		trade("1", 0, fills.Buy, 100, 10),
		trade("2", 10, fills.Sell, 110, 10),
	}
	start := 50.0

	led, err := Build(fs, flatAnchor(), PositionSnapshot{Balance: 9999}, Options{StartBalance: &start})
	require.NoError(t, err)

	assert.Equal(t, 50.0, led.StartBalance)
	assert.Equal(t, 150.0, led.Entries[1].Balance)
}

func TestBuildStopsAtMalformedFill(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		bad  fills.Fill
	}{
		{"nan_price", fills.Fill{ID: "bad", Time: at(10), Kind: fills.Trade, Side: fills.Buy, Price: math.NaN(), Quantity: 1, Value: 100}},
		{"zero_quantity", fills.Fill{ID: "bad", Time: at(10), Kind: fills.Trade, Side: fills.Buy, Price: 100, Quantity: 0, Value: 100}},
		{"inf_fee", fills.Fill{ID: "bad", Time: at(10), Kind: fills.Funding, Fee: math.Inf(1)}},
		{"no_side", fills.Fill{ID: "bad", Time: at(10), Kind: fills.Trade, Price: 100, Quantity: 1, Value: 100}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fs := []fills.Fill{
				trade("ok", 0, fills.Buy, 100, 10),
				tt.bad,
				trade("after", 20, fills.Sell, 110, 10),
			}

			led, err := Build(fs, flatAnchor(), PositionSnapshot{}, Options{})

			var fatal *FatalLedgerError
			require.ErrorAs(t, err, &fatal)
			assert.Equal(t, "bad", fatal.FillID)
			assert.Equal(t, 1, fatal.Index)

			// Partial results up to the bad entry, clearly marked.
			assert.True(t, led.Incomplete)
			assert.Len(t, led.Entries, 1)
			assert.Equal(t, "ok", led.Entries[0].Fill.ID)
		})
	}
}

func TestBuildEmptyInput(t *testing.T) {
	t.Parallel()

	led, err := Build(nil, flatAnchor(), PositionSnapshot{Balance: 42}, Options{})
	require.NoError(t, err)

	assert.Empty(t, led.Entries)
	assert.Equal(t, 42.0, led.StartBalance)
}
