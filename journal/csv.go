// journal/csv.go
package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/perpstats/perpstats/ledger"
	"github.com/perpstats/perpstats/stats"
)

type CSVJournal struct {
	entries *csv.Writer
	reports *csv.Writer
	ef, rf  *os.File
}

func NewCSV(entriesPath, reportsPath string) (*CSVJournal, error) {
	ef, err := os.Create(entriesPath)
	if err != nil {
		return nil, err
	}
	rf, err := os.Create(reportsPath)
	if err != nil {
		return nil, err
	}

	ew := csv.NewWriter(ef)
	rw := csv.NewWriter(rf)

	if err := ew.Write([]string{
		"fill_id", "symbol", "time", "kind", "side", "price", "quantity", "value",
		"position", "avg_cost", "trade_pnl", "fee", "pnl", "cum_pnl", "cum_fee", "balance",
	}); err != nil {
		return nil, err
	}
	if err := rw.Write([]string{
		"symbol", "created", "trade_count", "trade_quantity", "pnl_sum", "pnl_mean",
		"profit_factor", "profit_count", "profit_sum", "loss_count", "loss_sum",
		"fee_trade", "fee_funding", "maxdd", "maxdd_ratio", "maxdd_time",
		"start_balance", "end_balance",
	}); err != nil {
		return nil, err
	}

	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}
	rw.Flush()
	if err := rw.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{ew, rw, ef, rf}, nil
}

func (j *CSVJournal) RecordEntry(symbol string, e ledger.Entry) error {
	err := j.entries.Write([]string{
		e.Fill.ID,
		symbol,
		e.Fill.Time.Format(time.RFC3339Nano),
		string(e.Fill.Kind),
		string(e.Fill.Side),
		f(e.Fill.Price),
		f(e.Fill.Quantity),
		f(e.Fill.Value),
		f(e.Position),
		f(e.AvgCost),
		f(e.TradePnL),
		f(e.Fee),
		f(e.PnL),
		f(e.CumPnL),
		f(e.CumFee),
		f(e.Balance),
	})
	if err != nil {
		return err
	}
	j.entries.Flush()
	return j.entries.Error()
}

func (j *CSVJournal) RecordReport(symbol string, r stats.Report) error {
	err := j.reports.Write([]string{
		symbol,
		time.Now().UTC().Format(time.RFC3339),
		strconv.Itoa(r.Trades.Count),
		f(r.Trades.Quantity),
		f(r.Trades.Sum),
		f(r.Trades.Mean),
		f(r.Trades.ProfitFactor),
		strconv.Itoa(r.Profit.Count),
		f(r.Profit.Sum),
		strconv.Itoa(r.Loss.Count),
		f(r.Loss.Sum),
		f(r.Fees.Trade),
		f(r.Fees.Funding),
		f(r.Risk.Amount),
		f(r.Risk.Ratio),
		r.Risk.Time.Format(time.RFC3339Nano),
		f(r.StartBalance),
		f(r.EndBalance),
	})
	if err != nil {
		return err
	}
	j.reports.Flush()
	return j.reports.Error()
}

func (j *CSVJournal) Close() error {
	j.entries.Flush()
	j.reports.Flush()
	flushErr := j.entries.Error()
	if flushErr == nil {
		flushErr = j.reports.Error()
	}

	if err := j.ef.Close(); err != nil && flushErr == nil {
		flushErr = err
	}
	if err := j.rf.Close(); err != nil && flushErr == nil {
		flushErr = err
	}
	return flushErr
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
