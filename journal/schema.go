// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS entries (
	fill_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	time DATETIME NOT NULL,
	kind TEXT NOT NULL,
	side TEXT NOT NULL,
	price REAL NOT NULL,
	quantity REAL NOT NULL,
	value REAL NOT NULL,
	position REAL NOT NULL,
	avg_cost REAL NOT NULL,
	trade_pnl REAL NOT NULL,
	fee REAL NOT NULL,
	pnl REAL NOT NULL,
	cum_pnl REAL NOT NULL,
	cum_fee REAL NOT NULL,
	balance REAL NOT NULL,
	PRIMARY KEY (symbol, fill_id)
);

CREATE INDEX IF NOT EXISTS idx_entries_time ON entries(symbol, time);

CREATE TABLE IF NOT EXISTS reports (
	symbol TEXT NOT NULL,
	created DATETIME NOT NULL,
	trade_count INTEGER NOT NULL,
	trade_quantity REAL NOT NULL,
	pnl_sum REAL NOT NULL,
	pnl_mean REAL NOT NULL,
	profit_factor REAL NOT NULL,
	profit_count INTEGER NOT NULL,
	profit_sum REAL NOT NULL,
	loss_count INTEGER NOT NULL,
	loss_sum REAL NOT NULL,
	fee_trade REAL NOT NULL,
	fee_funding REAL NOT NULL,
	maxdd REAL NOT NULL,
	maxdd_ratio REAL NOT NULL,
	maxdd_time DATETIME NOT NULL,
	start_balance REAL NOT NULL,
	end_balance REAL NOT NULL
);
`
