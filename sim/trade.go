package sim

import "time"

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Trade is one simulated fill, append-only once recorded.
type Trade struct {
	ID         string
	Instrument string
	Side       Side
	Date       time.Time
	Shares     int64
	Price      float64 // execution price after slippage
	Commission float64
	Tax        float64

	// Sell-side only.
	Profit      float64 // realized, net of all costs
	HoldingDays int
	Reason      string // exit reason; "entry" for buys
}

// Snapshot is one day of the portfolio-value series.
type Snapshot struct {
	Date           time.Time
	Cash           float64
	PositionsValue float64
	Total          float64
}
