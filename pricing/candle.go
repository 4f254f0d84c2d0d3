package pricing

import "time"

// Candle is one OHLCV bucket of market trades.
type Candle struct {
	Time time.Time

	Open  float64
	High  float64
	Low   float64
	Close float64

	Volume float64
}
