// Package journal records simulated fills, daily portfolio values and
// run summaries. It is a pure observer: nothing the engine computes
// depends on what the journal does with a record.
package journal

import "time"

// TradeRecord is one simulated fill.
type TradeRecord struct {
	RunID       string
	TradeID     string
	Instrument  string
	Side        string // "BUY" or "SELL"
	Date        time.Time
	Shares      int64
	Price       float64
	Commission  float64
	Tax         float64
	Profit      float64 // sells only
	HoldingDays int     // sells only
	Reason      string  // exit reason, "entry" for buys
}

// ValueRecord is one day of the portfolio-value series.
type ValueRecord struct {
	RunID          string
	Date           time.Time
	Cash           float64
	PositionsValue float64
	Total          float64
}

// RunRecord summarizes one completed backtest or sweep combination.
type RunRecord struct {
	RunID   string
	Created time.Time
	Params  string // human-readable parameter digest

	FinalValue      float64
	TotalReturnPct  float64
	AnnualReturnPct float64
	MaxDrawdownPct  float64
	Sharpe          float64
	Trades          int
	WinRatePct      float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordValue(ValueRecord) error
	RecordRun(RunRecord) error
	Close() error
}
