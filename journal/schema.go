package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	date DATETIME NOT NULL,
	shares INTEGER NOT NULL,
	price REAL NOT NULL,
	commission REAL NOT NULL,
	tax REAL NOT NULL,
	profit REAL NOT NULL,
	holding_days INTEGER NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);

CREATE TABLE IF NOT EXISTS portfolio_values (
	run_id TEXT NOT NULL,
	date DATETIME NOT NULL,
	cash REAL NOT NULL,
	positions_value REAL NOT NULL,
	total REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_values_run_date ON portfolio_values(run_id, date);

CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	params TEXT NOT NULL,
	final_value REAL NOT NULL,
	total_return_pct REAL NOT NULL,
	annual_return_pct REAL NOT NULL,
	max_drawdown_pct REAL NOT NULL,
	sharpe REAL NOT NULL,
	trades INTEGER NOT NULL,
	win_rate_pct REAL NOT NULL
);
`
