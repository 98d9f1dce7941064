package risk

// Position is the monitor's view of one open position: prices, trigger
// levels and trailing bookkeeping. The simulator embeds it; a live
// risk check builds it from broker state.
type Position struct {
	Instrument string
	Shares     int64

	EntryPrice   float64
	CurrentPrice float64
	HighestPrice float64

	StopLoss     float64
	TakeProfit   float64
	TrailingStop float64

	// EntryScore is the composite score at entry, kept for the
	// deterioration exit.
	EntryScore float64
}

// UpdatePrice refreshes the mark and the trailing bookkeeping. The
// trailing stop only ever ratchets up: a new high raises it, a lower
// recomputation never lowers it.
func (p *Position) UpdatePrice(price, trailingPct float64) {
	p.CurrentPrice = price
	if price > p.HighestPrice {
		p.HighestPrice = price
	}
	if trailingPct > 0 {
		if ts := p.HighestPrice * (1 - trailingPct); ts > p.TrailingStop {
			p.TrailingStop = ts
		}
	}
}

// UnrealizedPL is the mark-to-market profit in account currency.
func (p *Position) UnrealizedPL() float64 {
	return float64(p.Shares) * (p.CurrentPrice - p.EntryPrice)
}

// Value is the position's current market value.
func (p *Position) Value() float64 {
	return float64(p.Shares) * p.CurrentPrice
}
