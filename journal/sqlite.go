package journal

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/perpstats/perpstats/fills"
	"github.com/perpstats/perpstats/ledger"
	"github.com/perpstats/perpstats/stats"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

// RecordEntry upserts an entry; re-running a reconstruction over an
// overlapping window must not duplicate rows.
func (j *SQLiteJournal) RecordEntry(symbol string, e ledger.Entry) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO entries
		(fill_id, symbol, time, kind, side, price, quantity, value,
		 position, avg_cost, trade_pnl, fee, pnl, cum_pnl, cum_fee, balance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Fill.ID, symbol, e.Fill.Time, string(e.Fill.Kind), string(e.Fill.Side),
		e.Fill.Price, e.Fill.Quantity, e.Fill.Value,
		e.Position, e.AvgCost, e.TradePnL, e.Fee, e.PnL, e.CumPnL, e.CumFee, e.Balance,
	)
	return err
}

func (j *SQLiteJournal) RecordReport(symbol string, r stats.Report) error {
	_, err := j.db.Exec(`
		INSERT INTO reports
		(symbol, created, trade_count, trade_quantity, pnl_sum, pnl_mean,
		 profit_factor, profit_count, profit_sum, loss_count, loss_sum,
		 fee_trade, fee_funding, maxdd, maxdd_ratio, maxdd_time,
		 start_balance, end_balance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		symbol, time.Now().UTC(),
		r.Trades.Count, r.Trades.Quantity, r.Trades.Sum, r.Trades.Mean,
		r.Trades.ProfitFactor, r.Profit.Count, r.Profit.Sum,
		r.Loss.Count, r.Loss.Sum,
		r.Fees.Trade, r.Fees.Funding,
		r.Risk.Amount, r.Risk.Ratio, r.Risk.Time,
		r.StartBalance, r.EndBalance,
	)
	return err
}

// ListEntriesBetween returns the stored entries for a symbol in [start,
// end], in time order, rebuilt into ledger entries so analytics can run
// over them offline.
func (j *SQLiteJournal) ListEntriesBetween(symbol string, start, end time.Time) ([]ledger.Entry, error) {
	rows, err := j.db.Query(`
		SELECT fill_id, time, kind, side, price, quantity, value,
		       position, avg_cost, trade_pnl, fee, pnl, cum_pnl, cum_fee, balance
		FROM entries
		WHERE symbol = ? AND time >= ? AND time <= ?
		ORDER BY time`,
		symbol, start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		var kind, side string
		if err := rows.Scan(
			&e.Fill.ID, &e.Fill.Time, &kind, &side,
			&e.Fill.Price, &e.Fill.Quantity, &e.Fill.Value,
			&e.Position, &e.AvgCost, &e.TradePnL, &e.Fee, &e.PnL,
			&e.CumPnL, &e.CumFee, &e.Balance,
		); err != nil {
			return nil, err
		}
		e.Fill.Kind = fills.Kind(kind)
		e.Fill.Side = fills.Side(side)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
