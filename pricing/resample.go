package pricing

import (
	"fmt"
	"time"

	"github.com/perpstats/perpstats/fills"
)

// Resample buckets chronologically sorted market trades into OHLCV candles
// of the given period. Buckets with no trades are carried forward: OHLC all
// equal the previous close and volume is zero, so the series has one candle
// per period with no gaps.
func Resample(trades []fills.Fill, period time.Duration) ([]Candle, error) {
	if period <= 0 {
		return nil, fmt.Errorf("pricing: period must be positive")
	}
	if len(trades) == 0 {
		return nil, nil
	}

	var out []Candle
	var cur Candle
	open := false

	flush := func(next time.Time) {
		out = append(out, cur)
		// Fill the gap up to next with carried-forward candles.
		for t := cur.Time.Add(period); t.Before(next); t = t.Add(period) {
			out = append(out, Candle{
				Time:  t,
				Open:  cur.Close,
				High:  cur.Close,
				Low:   cur.Close,
				Close: cur.Close,
			})
		}
	}

	for i, tr := range trades {
		if i > 0 && tr.Time.Before(trades[i-1].Time) {
			return nil, fmt.Errorf("pricing: trades out of order at index %d", i)
		}

		bucket := tr.Time.Truncate(period)
		if open && bucket.After(cur.Time) {
			flush(bucket)
			open = false
		}

		if !open {
			cur = Candle{Time: bucket, Open: tr.Price, High: tr.Price, Low: tr.Price}
			open = true
		}
		if tr.Price > cur.High {
			cur.High = tr.Price
		}
		if tr.Price < cur.Low {
			cur.Low = tr.Price
		}
		cur.Close = tr.Price
		cur.Volume += tr.Quantity
	}
	out = append(out, cur)
	return out, nil
}

// Downsample aggregates candles into a coarser period: first open, max
// high, min low, last close, summed volume. The target period should be a
// multiple of the input period.
func Downsample(candles []Candle, period time.Duration) ([]Candle, error) {
	if period <= 0 {
		return nil, fmt.Errorf("pricing: period must be positive")
	}
	if len(candles) == 0 {
		return nil, nil
	}

	var out []Candle
	var cur Candle
	open := false

	for _, c := range candles {
		bucket := c.Time.Truncate(period)
		if open && bucket.After(cur.Time) {
			out = append(out, cur)
			open = false
		}
		if !open {
			cur = Candle{Time: bucket, Open: c.Open, High: c.High, Low: c.Low}
			open = true
		}
		if c.High > cur.High {
			cur.High = c.High
		}
		if c.Low < cur.Low {
			cur.Low = c.Low
		}
		cur.Close = c.Close
		cur.Volume += c.Volume
	}
	out = append(out, cur)
	return out, nil
}
