package journal

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
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
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, run_id, instrument, side, date, shares, price, commission, tax, profit, holding_days, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.RunID, t.Instrument, t.Side, t.Date, t.Shares,
		t.Price, t.Commission, t.Tax, t.Profit, t.HoldingDays, t.Reason,
	)
	return err
}

func (j *SQLiteJournal) RecordValue(v ValueRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO portfolio_values
		(run_id, date, cash, positions_value, total)
		VALUES (?, ?, ?, ?, ?)`,
		v.RunID, v.Date, v.Cash, v.PositionsValue, v.Total,
	)
	return err
}

func (j *SQLiteJournal) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, created, params, final_value, total_return_pct, annual_return_pct, max_drawdown_pct, sharpe, trades, win_rate_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Params, r.FinalValue, r.TotalReturnPct,
		r.AnnualReturnPct, r.MaxDrawdownPct, r.Sharpe, r.Trades, r.WinRatePct,
	)
	return err
}

// ListTradesByRun returns a run's fills ordered by date.
func (j *SQLiteJournal) ListTradesByRun(runID string) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, run_id, instrument, side, date, shares, price, commission, tax, profit, holding_days, reason
		FROM trades WHERE run_id = ? ORDER BY date`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		var date time.Time
		if err := rows.Scan(&t.TradeID, &t.RunID, &t.Instrument, &t.Side, &date,
			&t.Shares, &t.Price, &t.Commission, &t.Tax, &t.Profit, &t.HoldingDays, &t.Reason); err != nil {
			return nil, err
		}
		t.Date = date
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListRuns returns run summaries ordered by Sharpe descending.
func (j *SQLiteJournal) ListRuns() ([]RunRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, created, params, final_value, total_return_pct, annual_return_pct, max_drawdown_pct, sharpe, trades, win_rate_pct
		FROM runs ORDER BY sharpe DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.RunID, &r.Created, &r.Params, &r.FinalValue,
			&r.TotalReturnPct, &r.AnnualReturnPct, &r.MaxDrawdownPct,
			&r.Sharpe, &r.Trades, &r.WinRatePct); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
