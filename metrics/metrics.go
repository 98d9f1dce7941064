// Package metrics turns a completed portfolio-value series and trade
// log into performance statistics. Compute is a pure function: same
// inputs, bit-identical Report, no hidden state.
package metrics

import (
	"errors"
	"math"
	"sort"
	"time"
)

// ErrInsufficientData is returned when the value series has fewer than
// two points; nothing meaningful can be derived from less.
var ErrInsufficientData = errors.New("metrics: need at least 2 value points")

// TradingDaysPerYear is the annualization convention.
const TradingDaysPerYear = 252

// Point is one day of the portfolio-value series.
type Point struct {
	Date  time.Time
	Value float64
}

// ClosedTrade is the metrics view of one completed round trip.
type ClosedTrade struct {
	Profit      float64 // realized, after costs
	HoldingDays int
}

// Report is the full performance bundle. All ratios default to 0 when
// their denominator is non-positive; no field is ever NaN or Inf.
type Report struct {
	TotalReturnPct  float64
	AnnualReturnPct float64
	VolatilityPct   float64 // annualized

	MaxDrawdownPct  float64
	MaxDrawdownDays int
	Sharpe          float64
	Sortino         float64
	Calmar          float64

	VaR95Pct   float64 // daily historical VaR, positive = loss
	CVaR95Pct  float64 // expected shortfall beyond VaR
	UlcerIndex float64

	BestMonthPct   float64
	WorstMonthPct  float64
	PositiveMonths int
	TotalMonths    int

	Trades       int
	Wins         int
	Losses       int
	WinRatePct   float64
	ProfitFactor float64
	AvgWin       float64
	AvgLoss      float64 // negative
	AvgTrade     float64
	BestTrade    float64
	WorstTrade   float64

	MinHoldingDays int
	AvgHoldingDays float64
	MaxHoldingDays int

	Drawdowns []DrawdownPeriod // sorted by magnitude descending
}

// Compute derives a Report from the value series, the closed-trade log
// and the starting capital. The series must be date-ascending.
func Compute(series []Point, trades []ClosedTrade, initialCapital float64) (*Report, error) {
	if len(series) < 2 {
		return nil, ErrInsufficientData
	}

	base := initialCapital
	if base <= 0 {
		base = series[0].Value
	}

	r := &Report{}

	final := series[len(series)-1].Value
	totalReturn := 0.0
	if base > 0 {
		totalReturn = final/base - 1
	}
	r.TotalReturnPct = totalReturn * 100

	days := len(series) - 1
	annual := annualize(totalReturn, days)
	r.AnnualReturnPct = annual * 100

	rets := dailyReturns(series)
	vol := sampleStd(rets) * math.Sqrt(TradingDaysPerYear)
	r.VolatilityPct = vol * 100

	if vol > 0 {
		r.Sharpe = annual / vol
	}
	if dd := downsideDeviation(rets); dd > 0 {
		r.Sortino = annual / dd
	}

	r.Drawdowns = DrawdownPeriods(series)
	if len(r.Drawdowns) > 0 {
		r.MaxDrawdownPct = r.Drawdowns[0].MaxDrawdownPct
		for _, p := range r.Drawdowns {
			if p.Days > r.MaxDrawdownDays {
				r.MaxDrawdownDays = p.Days
			}
		}
	}
	if r.MaxDrawdownPct > 0 {
		r.Calmar = annual / (r.MaxDrawdownPct / 100)
	}

	r.VaR95Pct, r.CVaR95Pct = historicalVaR(rets, 0.95)
	r.UlcerIndex = ulcerIndex(series)

	monthlyStats(series, r)
	tradeStats(trades, r)

	return r, nil
}

func annualize(totalReturn float64, days int) float64 {
	if days <= 0 || totalReturn <= -1 {
		if totalReturn <= -1 {
			return -1
		}
		return 0
	}
	return math.Pow(1+totalReturn, TradingDaysPerYear/float64(days)) - 1
}

func dailyReturns(series []Point) []float64 {
	out := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev := series[i-1].Value
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, series[i].Value/prev-1)
	}
	return out
}

func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// downsideDeviation is the annualized root-mean-square of negative
// daily returns. Zero when no day lost money.
func downsideDeviation(rets []float64) float64 {
	if len(rets) == 0 {
		return 0
	}
	var ss float64
	neg := 0
	for _, r := range rets {
		if r < 0 {
			ss += r * r
			neg++
		}
	}
	if neg == 0 {
		return 0
	}
	return math.Sqrt(ss/float64(len(rets))) * math.Sqrt(TradingDaysPerYear)
}

// historicalVaR returns the daily VaR and CVaR at the given confidence
// as positive loss percentages; both are 0 when the tail isn't a loss.
func historicalVaR(rets []float64, confidence float64) (varPct, cvarPct float64) {
	if len(rets) == 0 {
		return 0, 0
	}
	sorted := append([]float64(nil), rets...)
	sort.Float64s(sorted)

	idx := int(math.Ceil((1-confidence)*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	if q := sorted[idx]; q < 0 {
		varPct = -q * 100
	}

	var tail float64
	n := 0
	for i := 0; i <= idx; i++ {
		tail += sorted[i]
		n++
	}
	if n > 0 {
		if avg := tail / float64(n); avg < 0 {
			cvarPct = -avg * 100
		}
	}
	return varPct, cvarPct
}

// ulcerIndex is the root-mean-square of the drawdown percentage over
// the whole series.
func ulcerIndex(series []Point) float64 {
	peak := series[0].Value
	var ss float64
	for _, p := range series {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			dd := (peak - p.Value) / peak * 100
			ss += dd * dd
		}
	}
	return math.Sqrt(ss / float64(len(series)))
}

// monthlyStats compounds daily points into calendar-month returns using
// each month's closing value.
func monthlyStats(series []Point, r *Report) {
	type monthEnd struct {
		key   string
		value float64
	}
	var months []monthEnd
	for _, p := range series {
		key := p.Date.Format("2006-01")
		if len(months) > 0 && months[len(months)-1].key == key {
			months[len(months)-1].value = p.Value
			continue
		}
		months = append(months, monthEnd{key, p.Value})
	}
	if len(months) < 2 {
		return
	}

	first := true
	for i := 1; i < len(months); i++ {
		prev := months[i-1].value
		if prev <= 0 {
			continue
		}
		ret := (months[i].value/prev - 1) * 100
		if first {
			r.BestMonthPct, r.WorstMonthPct = ret, ret
			first = false
		} else {
			r.BestMonthPct = math.Max(r.BestMonthPct, ret)
			r.WorstMonthPct = math.Min(r.WorstMonthPct, ret)
		}
		if ret > 0 {
			r.PositiveMonths++
		}
		r.TotalMonths++
	}
}

func tradeStats(trades []ClosedTrade, r *Report) {
	r.Trades = len(trades)
	if len(trades) == 0 {
		return
	}

	var grossWin, grossLoss, total float64
	var holdSum int
	first := true

	for _, t := range trades {
		total += t.Profit
		switch {
		case t.Profit > 0:
			r.Wins++
			grossWin += t.Profit
		case t.Profit < 0:
			r.Losses++
			grossLoss += -t.Profit
		}

		if first {
			r.BestTrade, r.WorstTrade = t.Profit, t.Profit
			r.MinHoldingDays, r.MaxHoldingDays = t.HoldingDays, t.HoldingDays
			first = false
		} else {
			r.BestTrade = math.Max(r.BestTrade, t.Profit)
			r.WorstTrade = math.Min(r.WorstTrade, t.Profit)
			if t.HoldingDays < r.MinHoldingDays {
				r.MinHoldingDays = t.HoldingDays
			}
			if t.HoldingDays > r.MaxHoldingDays {
				r.MaxHoldingDays = t.HoldingDays
			}
		}
		holdSum += t.HoldingDays
	}

	r.WinRatePct = float64(r.Wins) / float64(len(trades)) * 100
	if grossLoss > 0 {
		r.ProfitFactor = grossWin / grossLoss
	}
	if r.Wins > 0 {
		r.AvgWin = grossWin / float64(r.Wins)
	}
	if r.Losses > 0 {
		r.AvgLoss = -grossLoss / float64(r.Losses)
	}
	r.AvgTrade = total / float64(len(trades))
	r.AvgHoldingDays = float64(holdSum) / float64(len(trades))
}
