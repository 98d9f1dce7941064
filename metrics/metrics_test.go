package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func seriesFrom(values ...float64) []Point {
	out := make([]Point, len(values))
	for i, v := range values {
		out[i] = Point{Date: day(i), Value: v}
	}
	return out
}

func TestInsufficientData(t *testing.T) {
	t.Parallel()

	_, err := Compute(nil, nil, 100)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = Compute(seriesFrom(100), nil, 100)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestTotalAndAnnualReturn(t *testing.T) {
	t.Parallel()

	// 252 daily points: exactly one trading year.
	values := make([]float64, 253)
	for i := range values {
		values[i] = 100 * (1 + 0.10*float64(i)/252)
	}
	r, err := Compute(seriesFrom(values...), nil, 100)
	require.NoError(t, err)

	assert.InDelta(t, 10.0, r.TotalReturnPct, 1e-6)
	assert.InDelta(t, 10.0, r.AnnualReturnPct, 1e-6)
}

func TestFlatSeriesHasZeroRatios(t *testing.T) {
	t.Parallel()

	r, err := Compute(seriesFrom(100, 100, 100, 100), nil, 100)
	require.NoError(t, err)

	assert.Zero(t, r.VolatilityPct)
	assert.Zero(t, r.Sharpe)
	assert.Zero(t, r.Sortino)
	assert.Zero(t, r.Calmar)
	assert.Zero(t, r.MaxDrawdownPct)
	assert.Zero(t, r.VaR95Pct)
	assert.Zero(t, r.CVaR95Pct)
	assert.Zero(t, r.UlcerIndex)

	// Nothing is ever NaN or Inf.
	for _, v := range []float64{r.Sharpe, r.Sortino, r.Calmar, r.ProfitFactor, r.WinRatePct} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	t.Parallel()

	series := seriesFrom(100, 104, 99, 107, 103, 111, 95, 118, 120, 116)
	trades := []ClosedTrade{
		{Profit: 1500, HoldingDays: 4},
		{Profit: -700, HoldingDays: 2},
		{Profit: 300, HoldingDays: 9},
	}

	a, err := Compute(series, trades, 100)
	require.NoError(t, err)
	b, err := Compute(series, trades, 100)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestSingleDrawdownPeriod(t *testing.T) {
	t.Parallel()

	// Dips 20% below the peak of 120, then recovers.
	series := seriesFrom(100, 110, 120, 108, 96, 101, 115, 125)

	periods := DrawdownPeriods(series)
	require.Len(t, periods, 1)

	p := periods[0]
	assert.InDelta(t, 20.0, p.MaxDrawdownPct, 0.01)
	assert.True(t, p.Recovered)
	assert.Equal(t, day(2), p.Start)
	assert.Equal(t, day(7), p.End)
	assert.Equal(t, 5, p.Days)
}

func TestDrawdownPeriodsSortedByMagnitude(t *testing.T) {
	t.Parallel()

	// Two episodes: -10% then -25%.
	series := seriesFrom(100, 90, 105, 110, 82.5, 90, 120)

	periods := DrawdownPeriods(series)
	require.Len(t, periods, 2)
	assert.InDelta(t, 25.0, periods[0].MaxDrawdownPct, 0.01)
	assert.InDelta(t, 10.0, periods[1].MaxDrawdownPct, 0.01)
}

func TestUnrecoveredDrawdownEndsAtSeriesEnd(t *testing.T) {
	t.Parallel()

	series := seriesFrom(100, 120, 100, 90)
	periods := DrawdownPeriods(series)
	require.Len(t, periods, 1)
	assert.False(t, periods[0].Recovered)
	assert.Equal(t, day(3), periods[0].End)
	assert.InDelta(t, 25.0, periods[0].MaxDrawdownPct, 0.01)
}

func TestVaRAndCVaR(t *testing.T) {
	t.Parallel()

	// 20 daily returns, one bad day of -5%: the 5% tail is that day.
	values := []float64{100}
	for i := 0; i < 19; i++ {
		values = append(values, values[len(values)-1]*1.002)
	}
	values = append(values, values[len(values)-1]*0.95)

	r, err := Compute(seriesFrom(values...), nil, 100)
	require.NoError(t, err)

	assert.InDelta(t, 5.0, r.VaR95Pct, 0.1)
	assert.GreaterOrEqual(t, r.CVaR95Pct, r.VaR95Pct)
}

func TestMonthlyStats(t *testing.T) {
	t.Parallel()

	series := []Point{
		{Date: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Value: 100},
		{Date: time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), Value: 104},
		{Date: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), Value: 110},
		{Date: time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC), Value: 99},
	}

	r, err := Compute(series, nil, 100)
	require.NoError(t, err)

	assert.Equal(t, 2, r.TotalMonths)
	assert.Equal(t, 1, r.PositiveMonths)
	assert.InDelta(t, 10.0, r.BestMonthPct, 1e-6)
	assert.InDelta(t, -10.0, r.WorstMonthPct, 1e-6)
}

func TestTradeStats(t *testing.T) {
	t.Parallel()

	trades := []ClosedTrade{
		{Profit: 1000, HoldingDays: 5},
		{Profit: 500, HoldingDays: 10},
		{Profit: -300, HoldingDays: 3},
		{Profit: -200, HoldingDays: 30},
	}

	r, err := Compute(seriesFrom(100, 101, 102), trades, 100)
	require.NoError(t, err)

	assert.Equal(t, 4, r.Trades)
	assert.Equal(t, 2, r.Wins)
	assert.Equal(t, 2, r.Losses)
	assert.InDelta(t, 50.0, r.WinRatePct, 1e-9)
	assert.InDelta(t, 1500.0/500.0, r.ProfitFactor, 1e-9)
	assert.InDelta(t, 750, r.AvgWin, 1e-9)
	assert.InDelta(t, -250, r.AvgLoss, 1e-9)
	assert.InDelta(t, 250, r.AvgTrade, 1e-9)
	assert.InDelta(t, 1000, r.BestTrade, 1e-9)
	assert.InDelta(t, -300, r.WorstTrade, 1e-9)
	assert.Equal(t, 3, r.MinHoldingDays)
	assert.Equal(t, 30, r.MaxHoldingDays)
	assert.InDelta(t, 12.0, r.AvgHoldingDays, 1e-9)
}

func TestNoTradesMeansZeroTradeStats(t *testing.T) {
	t.Parallel()

	r, err := Compute(seriesFrom(100, 105, 110), nil, 100)
	require.NoError(t, err)

	assert.Zero(t, r.Trades)
	assert.Zero(t, r.WinRatePct)
	assert.Zero(t, r.ProfitFactor)
}
