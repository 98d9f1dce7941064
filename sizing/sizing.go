// Package sizing converts portfolio value and trade risk into a share
// count under one of a closed set of sizing methods.
package sizing

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRisk is returned when entry and stop coincide: risk per
// share would be zero and every method would divide by it.
var ErrInvalidRisk = errors.New("sizing: stop price equals entry price")

// Method is the closed set of sizing methods. Dispatch happens in one
// switch so a new method can't be added without handling it.
type Method int

const (
	FixedFraction Method = iota
	FixedRisk
	Kelly
	HalfKelly
	QuarterKelly
	VolScaled
)

var methodNames = map[Method]string{
	FixedFraction: "fixed_fraction",
	FixedRisk:     "fixed_risk",
	Kelly:         "kelly",
	HalfKelly:     "half_kelly",
	QuarterKelly:  "quarter_kelly",
	VolScaled:     "vol_scaled",
}

func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod maps a config string to a Method.
func ParseMethod(s string) (Method, error) {
	for m, name := range methodNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("sizing: unknown method %q", s)
}

// kellyMultiplier returns the fraction of full Kelly a method bets.
func (m Method) kellyMultiplier() float64 {
	switch m {
	case HalfKelly:
		return 0.5
	case QuarterKelly:
		return 0.25
	default:
		return 1.0
	}
}

// TradeStats summarizes closed-trade history for Kelly sizing. AvgWinPct
// and AvgLossPct are magnitudes relative to cost basis (both positive).
type TradeStats struct {
	WinRate    float64
	AvgWinPct  float64
	AvgLossPct float64
}

// KellyFraction computes f* = (p·b − q)/b with b = avgWin/avgLoss.
// Undefined or negative-expectancy inputs clamp to 0, which callers
// treat as "fall back to fixed-risk".
func (s TradeStats) KellyFraction() float64 {
	if s.AvgLossPct <= 0 || s.WinRate <= 0 || s.WinRate >= 1 {
		return 0
	}
	b := s.AvgWinPct / s.AvgLossPct
	if b <= 0 {
		return 0
	}
	f := (s.WinRate*b - (1 - s.WinRate)) / b
	if f < 0 {
		return 0
	}
	return f
}

// Sizer holds the per-run sizing policy.
type Sizer struct {
	Method   Method
	Fraction float64 // fixed-fraction: fraction of portfolio per position

	// RiskFraction is the fraction of portfolio put at risk per trade
	// for fixed-risk sizing; it is also the fallback when Kelly
	// degrades on missing or negative-expectancy stats.
	RiskFraction float64

	MaxPositionFrac float64

	// Volatility-scaled anchor: a RefVolatility instrument gets
	// RefFraction of the portfolio; higher vol gets proportionally
	// less, clamped to [MinVolFraction, MaxPositionFrac].
	RefVolatility  float64
	RefFraction    float64
	MinVolFraction float64
}

// Input is one sizing request.
type Input struct {
	PortfolioValue float64
	EntryPrice     float64
	StopPrice      float64
	Volatility     float64     // vol-scaled only; trailing annualized
	Stats          *TradeStats // Kelly family only; nil degrades
}

// Result reports the sized position. Capped is set whenever the
// max-position-fraction policy reduced the raw size, so callers can see
// the cap instead of silently getting a smaller position.
type Result struct {
	Shares   int64
	Value    float64
	Fraction float64
	Capped   bool
	Note     string
}

// Size computes a share count for the request. Entry must differ from
// stop (ErrInvalidRisk otherwise); entry and portfolio must be positive.
func (s Sizer) Size(in Input) (Result, error) {
	if in.PortfolioValue <= 0 {
		return Result{}, fmt.Errorf("sizing: portfolio value must be positive, got %v", in.PortfolioValue)
	}
	if in.EntryPrice <= 0 {
		return Result{}, fmt.Errorf("sizing: entry price must be positive, got %v", in.EntryPrice)
	}
	if in.StopPrice == in.EntryPrice {
		return Result{}, ErrInvalidRisk
	}

	var (
		shares int64
		note   string
	)

	switch s.Method {
	case FixedFraction:
		shares = int64(math.Floor(in.PortfolioValue * s.Fraction / in.EntryPrice))

	case FixedRisk:
		shares = s.fixedRiskShares(in)

	case Kelly, HalfKelly, QuarterKelly:
		var f float64
		if in.Stats != nil {
			f = in.Stats.KellyFraction()
		}
		if f <= 0 {
			// Missing stats or negative expectancy: degrade to
			// fixed-risk rather than betting on a losing edge.
			shares = s.fixedRiskShares(in)
			note = "kelly degraded to fixed_risk"
			break
		}
		f *= s.Method.kellyMultiplier()
		shares = int64(math.Floor(in.PortfolioValue * f / in.EntryPrice))

	case VolScaled:
		frac := s.RefFraction
		if in.Volatility > 0 && s.RefVolatility > 0 {
			frac = s.RefFraction * s.RefVolatility / in.Volatility
		}
		lo := s.MinVolFraction
		if lo <= 0 {
			lo = 0.01
		}
		frac = math.Min(math.Max(frac, lo), s.MaxPositionFrac)
		shares = int64(math.Floor(in.PortfolioValue * frac / in.EntryPrice))

	default:
		return Result{}, fmt.Errorf("sizing: unknown method %v", s.Method)
	}

	res := Result{Shares: shares, Note: note}

	// Final cap: position value never exceeds the per-position budget.
	maxValue := in.PortfolioValue * s.MaxPositionFrac
	if float64(res.Shares)*in.EntryPrice > maxValue {
		res.Shares = int64(math.Floor(maxValue / in.EntryPrice))
		res.Capped = true
	}

	res.Value = float64(res.Shares) * in.EntryPrice
	res.Fraction = res.Value / in.PortfolioValue
	return res, nil
}

func (s Sizer) fixedRiskShares(in Input) int64 {
	riskPerShare := math.Abs(in.EntryPrice - in.StopPrice)
	return int64(math.Floor(in.PortfolioValue * s.RiskFraction / riskPerShare))
}
