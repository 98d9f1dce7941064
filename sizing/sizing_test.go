package sizing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethod(t *testing.T) {
	t.Parallel()

	for m, name := range methodNames {
		got, err := ParseMethod(name)
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	_, err := ParseMethod("martingale")
	assert.Error(t, err)
}

func TestKellyFraction(t *testing.T) {
	t.Parallel()

	// Win rate 0.6, avg win 15%, avg loss 8%:
	// b = 1.875, f* = (0.6*1.875 - 0.4)/1.875 ≈ 0.3867
	stats := TradeStats{WinRate: 0.6, AvgWinPct: 0.15, AvgLossPct: 0.08}
	assert.InDelta(t, 0.386, stats.KellyFraction(), 0.02)
}

func TestKellyFractionClampsToZero(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		stats TradeStats
	}{
		{"negative expectancy", TradeStats{WinRate: 0.4, AvgWinPct: 0.10, AvgLossPct: 0.15}},
		{"zero win rate", TradeStats{WinRate: 0, AvgWinPct: 0.10, AvgLossPct: 0.10}},
		{"certain win rate", TradeStats{WinRate: 1, AvgWinPct: 0.10, AvgLossPct: 0.10}},
		{"no losses recorded", TradeStats{WinRate: 0.6, AvgWinPct: 0.10, AvgLossPct: 0}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Zero(t, tt.stats.KellyFraction())
		})
	}
}

func TestFixedFraction(t *testing.T) {
	t.Parallel()

	s := Sizer{Method: FixedFraction, Fraction: 0.10, MaxPositionFrac: 0.5}
	res, err := s.Size(Input{PortfolioValue: 1_000_000, EntryPrice: 50_000, StopPrice: 46_000})
	require.NoError(t, err)

	// floor(1,000,000 * 0.10 / 50,000) = 2
	assert.Equal(t, int64(2), res.Shares)
	assert.False(t, res.Capped)
	assert.InDelta(t, 0.10, res.Fraction, 1e-9)
}

func TestFixedRisk(t *testing.T) {
	t.Parallel()

	s := Sizer{Method: FixedRisk, RiskFraction: 0.02, MaxPositionFrac: 1}
	res, err := s.Size(Input{PortfolioValue: 1_000_000, EntryPrice: 50_000, StopPrice: 46_000})
	require.NoError(t, err)

	// risk/share 4,000; floor(20,000 / 4,000) = 5
	assert.Equal(t, int64(5), res.Shares)
}

func TestKellySizing(t *testing.T) {
	t.Parallel()

	stats := &TradeStats{WinRate: 0.6, AvgWinPct: 0.15, AvgLossPct: 0.08}

	full := Sizer{Method: Kelly, RiskFraction: 0.02, MaxPositionFrac: 0.5}
	res, err := full.Size(Input{PortfolioValue: 1_000_000, EntryPrice: 100, StopPrice: 92, Stats: stats})
	require.NoError(t, err)
	assert.InDelta(t, 0.386, res.Fraction, 0.02)
	assert.Empty(t, res.Note)

	half := Sizer{Method: HalfKelly, RiskFraction: 0.02, MaxPositionFrac: 0.5}
	res, err = half.Size(Input{PortfolioValue: 1_000_000, EntryPrice: 100, StopPrice: 92, Stats: stats})
	require.NoError(t, err)
	assert.InDelta(t, 0.193, res.Fraction, 0.02)

	quarter := Sizer{Method: QuarterKelly, RiskFraction: 0.02, MaxPositionFrac: 0.5}
	res, err = quarter.Size(Input{PortfolioValue: 1_000_000, EntryPrice: 100, StopPrice: 92, Stats: stats})
	require.NoError(t, err)
	assert.InDelta(t, 0.0966, res.Fraction, 0.01)
}

func TestKellyDegradesToFixedRisk(t *testing.T) {
	t.Parallel()

	s := Sizer{Method: Kelly, RiskFraction: 0.02, MaxPositionFrac: 1}
	bad := &TradeStats{WinRate: 0.4, AvgWinPct: 0.10, AvgLossPct: 0.15}

	res, err := s.Size(Input{PortfolioValue: 1_000_000, EntryPrice: 50_000, StopPrice: 46_000, Stats: bad})
	require.NoError(t, err)

	// Same as plain fixed-risk: floor(20,000 / 4,000) = 5.
	assert.Equal(t, int64(5), res.Shares)
	assert.Contains(t, res.Note, "fixed_risk")

	// Missing stats degrade the same way.
	res, err = s.Size(Input{PortfolioValue: 1_000_000, EntryPrice: 50_000, StopPrice: 46_000})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Shares)
	assert.Contains(t, res.Note, "fixed_risk")
}

func TestVolScaled(t *testing.T) {
	t.Parallel()

	s := Sizer{
		Method:          VolScaled,
		MaxPositionFrac: 0.20,
		RefVolatility:   0.20,
		RefFraction:     0.10,
	}

	// Double the reference vol halves the fraction.
	res, err := s.Size(Input{PortfolioValue: 1_000_000, EntryPrice: 100, StopPrice: 90, Volatility: 0.40})
	require.NoError(t, err)
	assert.InDelta(t, 0.05, res.Fraction, 1e-3)

	// Very calm instrument clamps at the max fraction.
	res, err = s.Size(Input{PortfolioValue: 1_000_000, EntryPrice: 100, StopPrice: 90, Volatility: 0.01})
	require.NoError(t, err)
	assert.InDelta(t, 0.20, res.Fraction, 1e-3)

	// Extremely volatile clamps at the 1% floor.
	res, err = s.Size(Input{PortfolioValue: 1_000_000, EntryPrice: 100, StopPrice: 90, Volatility: 10})
	require.NoError(t, err)
	assert.InDelta(t, 0.01, res.Fraction, 1e-3)
}

func TestMaxPositionCapIsObservable(t *testing.T) {
	t.Parallel()

	// Fixed-risk with a tight stop would buy far more than the cap.
	s := Sizer{Method: FixedRisk, RiskFraction: 0.02, MaxPositionFrac: 0.10}
	res, err := s.Size(Input{PortfolioValue: 1_000_000, EntryPrice: 100, StopPrice: 99})
	require.NoError(t, err)

	assert.True(t, res.Capped)
	assert.LessOrEqual(t, res.Value, 1_000_000*0.10+1e-9)
	assert.Equal(t, int64(1000), res.Shares)
}

func TestInvalidRisk(t *testing.T) {
	t.Parallel()

	s := Sizer{Method: FixedRisk, RiskFraction: 0.02, MaxPositionFrac: 1}
	_, err := s.Size(Input{PortfolioValue: 1_000_000, EntryPrice: 100, StopPrice: 100})
	assert.True(t, errors.Is(err, ErrInvalidRisk))
}

func TestInvalidInputs(t *testing.T) {
	t.Parallel()

	s := Sizer{Method: FixedFraction, Fraction: 0.1, MaxPositionFrac: 1}

	_, err := s.Size(Input{PortfolioValue: 0, EntryPrice: 100, StopPrice: 90})
	assert.Error(t, err)

	_, err = s.Size(Input{PortfolioValue: 1000, EntryPrice: 0, StopPrice: 90})
	assert.Error(t, err)
}
