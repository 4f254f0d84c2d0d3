package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpstats/perpstats/fills"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func tick(sec int, price, size float64) fills.Fill {
	return fills.Fill{
		Time:     t0.Add(time.Duration(sec) * time.Second),
		Kind:     fills.Trade,
		Side:     fills.Buy,
		Price:    price,
		Quantity: size,
	}
}

func TestResample(t *testing.T) {
	t.Parallel()

	trades := []fills.Fill{
		tick(0, 100, 1),
		tick(10, 105, 2),
		tick(40, 95, 1),
		tick(70, 98, 3), // second minute
	}

	candles, err := Resample(trades, time.Minute)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, t0, candles[0].Time)
	assert.Equal(t, 100.0, candles[0].Open)
	assert.Equal(t, 105.0, candles[0].High)
	assert.Equal(t, 95.0, candles[0].Low)
	assert.Equal(t, 95.0, candles[0].Close)
	assert.Equal(t, 4.0, candles[0].Volume)

	assert.Equal(t, t0.Add(time.Minute), candles[1].Time)
	assert.Equal(t, 98.0, candles[1].Open)
	assert.Equal(t, 3.0, candles[1].Volume)
}

func TestResampleFillsGaps(t *testing.T) {
	t.Parallel()

	trades := []fills.Fill{
		tick(0, 100, 1),
		tick(3*60, 110, 1), // two empty minutes in between
	}

	candles, err := Resample(trades, time.Minute)
	require.NoError(t, err)
	require.Len(t, candles, 4)

	for _, c := range candles[1:3] {
		assert.Equal(t, 100.0, c.Open)
		assert.Equal(t, 100.0, c.Close)
		assert.Equal(t, 0.0, c.Volume)
	}
	assert.Equal(t, 110.0, candles[3].Close)
}

func TestResampleNewBucketStartsFresh(t *testing.T) {
	t.Parallel()

	trades := []fills.Fill{
		tick(0, 100, 2),
		tick(2*60, 90, 1), // one empty minute, then a lower open
	}

	candles, err := Resample(trades, time.Minute)
	require.NoError(t, err)
	require.Len(t, candles, 3)

	// The bucket after the gap is seeded entirely from its own first
	// trade; nothing carries over from the previous bucket but the
	// gap-filled close.
	got := candles[2]
	assert.Equal(t, t0.Add(2*time.Minute), got.Time)
	assert.Equal(t, 90.0, got.Open)
	assert.Equal(t, 90.0, got.High)
	assert.Equal(t, 90.0, got.Low)
	assert.Equal(t, 90.0, got.Close)
	assert.Equal(t, 1.0, got.Volume)
}

func TestResampleRejectsUnsortedInput(t *testing.T) {
	t.Parallel()

	trades := []fills.Fill{tick(10, 100, 1), tick(0, 99, 1)}
	_, err := Resample(trades, time.Minute)
	assert.Error(t, err)
}

func TestResampleEmpty(t *testing.T) {
	t.Parallel()

	candles, err := Resample(nil, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, candles)
}

func TestDownsample(t *testing.T) {
	t.Parallel()

	minute := []Candle{
		{Time: t0, Open: 100, High: 106, Low: 99, Close: 105, Volume: 4},
		{Time: t0.Add(time.Minute), Open: 105, High: 108, Low: 104, Close: 107, Volume: 2},
		{Time: t0.Add(5 * time.Minute), Open: 107, High: 110, Low: 103, Close: 104, Volume: 5},
	}

	hourly, err := Downsample(minute, 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, hourly, 2)

	assert.Equal(t, 100.0, hourly[0].Open)
	assert.Equal(t, 108.0, hourly[0].High)
	assert.Equal(t, 99.0, hourly[0].Low)
	assert.Equal(t, 107.0, hourly[0].Close)
	assert.Equal(t, 6.0, hourly[0].Volume)

	assert.Equal(t, 104.0, hourly[1].Close)
}
