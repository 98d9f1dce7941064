package market

import "time"

// Bar is one instrument-day of merged market data: OHLCV plus the derived
// fields the scoring pipeline attaches before the dataset reaches us.
// Bars are immutable once loaded.
type Bar struct {
	Instrument string
	Date       time.Time

	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64

	// Derived fields, forward/backward-filled upstream. Zero means the
	// upstream pipeline had nothing for that instrument.
	Score      float64 // composite entry-ranking score
	Momentum   float64 // momentum sub-score, signed
	Quality    float64 // quality sub-score
	RSI        float64
	MA20       float64
	Volatility float64 // trailing annualized volatility, e.g. 0.25
}

// DateKey collapses a timestamp to its trading date (UTC midnight), the
// granularity every dataset lookup uses.
func DateKey(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
