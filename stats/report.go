package stats

import (
	"time"

	"github.com/perpstats/perpstats/fills"
	"github.com/perpstats/perpstats/ledger"
)

// TradeSummary aggregates realized PnL across all trade fills in the
// ledger. ProfitFactor is |profit sum / loss sum| and is 0 when the loss
// sum is exactly zero.
type TradeSummary struct {
	Count        int
	Quantity     float64 // total traded quantity
	Sum          float64
	Mean         float64
	ProfitFactor float64
}

// RunSummary describes one side of the PnL distribution: the profitable
// entries or the losing ones. Best is the single largest profit, or the
// single worst (most negative) loss. RunLen/RunSum describe the longest
// consecutive run of same-sign entries; when several runs tie on length
// the first occurrence wins.
type RunSummary struct {
	Count  int
	Ratio  float64 // share of decided (non-zero PnL) trades
	Sum    float64
	Mean   float64
	Best   float64
	RunLen int
	RunSum float64
}

// FeeSummary splits total fee PnL contribution by fill kind.
type FeeSummary struct {
	Trade   float64
	Funding float64
}

// DrawdownPoint is the single worst decline of the running balance below
// its historical maximum: the "maximum risk" point.
type DrawdownPoint struct {
	Amount float64 // balance minus running maximum, <= 0
	Ratio  float64 // Amount relative to the drawn-down balance
	Time   time.Time
}

// Report is the aggregate view over a finished ledger.
type Report struct {
	Trades       TradeSummary
	Profit       RunSummary
	Loss         RunSummary
	Fees         FeeSummary
	Risk         DrawdownPoint
	StartBalance float64
	EndBalance   float64
}

// Compute derives a Report from a finished, immutable ledger slice. Each
// aggregate is an independent read-only pass; degenerate inputs (no trades,
// no losses, flat balances) yield zero values rather than faults.
func Compute(entries []ledger.Entry) Report {
	var r Report
	if len(entries) == 0 {
		return r
	}

	r.StartBalance = entries[0].Balance - entries[0].PnL
	r.EndBalance = entries[len(entries)-1].Balance

	var (
		pnls     []float64
		balances []float64
		times    []time.Time
	)
	for _, e := range entries {
		if e.Fill.Kind == fills.Funding {
			r.Fees.Funding += e.Fee
			continue
		}
		r.Fees.Trade += e.Fee
		r.Trades.Count++
		r.Trades.Quantity += e.Fill.Quantity
		r.Trades.Sum += e.PnL
		pnls = append(pnls, e.PnL)
		balances = append(balances, e.Balance)
		times = append(times, e.Fill.Time)
	}
	if r.Trades.Count > 0 {
		r.Trades.Mean = r.Trades.Sum / float64(r.Trades.Count)
	}

	r.Profit, r.Loss = sideSummaries(pnls)
	if r.Loss.Sum != 0 {
		pf := r.Profit.Sum / r.Loss.Sum
		if pf < 0 {
			pf = -pf
		}
		r.Trades.ProfitFactor = pf
	}

	r.Risk = maxDrawdown(balances, times)
	return r
}

// sideSummaries splits the per-fill PnL series into its profitable and
// losing sides and finds the longest winning and losing streaks. Zero-PnL
// entries are skipped, so a streak survives break-even fills in between.
func sideSummaries(pnls []float64) (profit, loss RunSummary) {
	var runLen int
	var runSum float64
	var runWin bool

	flush := func() {
		if runLen == 0 {
			return
		}
		s := &loss
		if runWin {
			s = &profit
		}
		if runLen > s.RunLen {
			s.RunLen = runLen
			s.RunSum = runSum
		}
	}

	for _, p := range pnls {
		switch {
		case p > 0:
			profit.Count++
			profit.Sum += p
			if p > profit.Best {
				profit.Best = p
			}
			if runLen > 0 && !runWin {
				flush()
				runLen, runSum = 0, 0
			}
			runWin = true
			runLen++
			runSum += p
		case p < 0:
			loss.Count++
			loss.Sum += p
			if p < loss.Best {
				loss.Best = p
			}
			if runLen > 0 && runWin {
				flush()
				runLen, runSum = 0, 0
			}
			runWin = false
			runLen++
			runSum += p
		}
	}
	flush()

	if profit.Count > 0 {
		profit.Mean = profit.Sum / float64(profit.Count)
	}
	if loss.Count > 0 {
		loss.Mean = loss.Sum / float64(loss.Count)
	}
	if decided := profit.Count + loss.Count; decided > 0 {
		profit.Ratio = float64(profit.Count) / float64(decided)
		loss.Ratio = float64(loss.Count) / float64(decided)
	}
	return profit, loss
}

// maxDrawdown scans the running-balance series for the most negative
// drawdown ratio. Drawdown at each sample is balance minus the running
// maximum; the ratio relates that decline to the drawn-down balance. An
// all-flat series reports zeros at the first sample.
func maxDrawdown(balances []float64, times []time.Time) DrawdownPoint {
	var dp DrawdownPoint
	if len(balances) == 0 {
		return dp
	}

	runMax := balances[0]
	best := 0
	bestRatio := 0.0
	bestAmount := 0.0
	for i, b := range balances {
		if b > runMax {
			runMax = b
		}
		dd := b - runMax
		var ratio float64
		if b != 0 {
			ratio = dd / b
		}
		if ratio < bestRatio {
			bestRatio = ratio
			bestAmount = dd
			best = i
		}
	}

	dp.Amount = bestAmount
	dp.Ratio = bestRatio
	dp.Time = times[best]
	return dp
}
