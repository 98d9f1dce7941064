package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/backtest/config"
	"github.com/quantfold/backtest/market"
	"github.com/quantfold/backtest/metrics"
	"github.com/quantfold/backtest/sim"
)

func testDataset(t *testing.T, days int) *market.Dataset {
	t.Helper()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, 0, days)
	for i := 0; i < days; i++ {
		px := 100 + float64(i%5)
		bars = append(bars, market.Bar{
			Instrument: "A",
			Date:       start.AddDate(0, 0, i),
			Open:       px, High: px, Low: px, Close: px,
			Volume:  10_000,
			Score:   80,
			Quality: 60,
		})
	}
	ds, err := market.NewDataset(bars)
	require.NoError(t, err)
	return ds
}

func testConfig(days int) *config.Config {
	cfg := config.Default()
	cfg.Start = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	cfg.End = cfg.Start.AddDate(0, 0, days-1)
	cfg.CommissionRate = 0
	cfg.TaxRate = 0
	cfg.SlippageBps = 0
	return cfg
}

func TestGridExpandsAllAxes(t *testing.T) {
	t.Parallel()

	base := testConfig(10)
	combos := Grid(base, []float64{0.05, 0.10}, []float64{0.20}, []string{"fixed_risk", "kelly"})

	require.Len(t, combos, 4)
	assert.Equal(t, "fixed_risk/stop=0.05/take=0.20", combos[0].Name)

	seen := map[string]bool{}
	for _, c := range combos {
		seen[c.Name] = true
		assert.InDelta(t, 0.20, c.Config.TakeProfitPct, 1e-9)
	}
	assert.Len(t, seen, 4, "combination names must be unique")

	// Clones: mutating one combination leaves the base untouched.
	combos[0].Config.StopLossPct = 0.99
	assert.InDelta(t, 0.08, base.StopLossPct, 1e-9)
}

func TestGridDefaultsMissingAxesToBase(t *testing.T) {
	t.Parallel()

	base := testConfig(10)
	combos := Grid(base, nil, nil, nil)

	require.Len(t, combos, 1)
	assert.InDelta(t, base.StopLossPct, combos[0].Config.StopLossPct, 1e-9)
	assert.Equal(t, base.SizingMethod, combos[0].Config.SizingMethod)
}

func TestRunIsolatesFailures(t *testing.T) {
	t.Parallel()

	days := 10
	data := testDataset(t, days)

	bad := testConfig(days)
	bad.SizingMethod = "martingale"

	combos := []Combo{
		{Name: "good-1", Config: testConfig(days)},
		{Name: "bad", Config: bad},
		{Name: "good-2", Config: testConfig(days)},
	}

	r := &Runner{Workers: 2}
	outcomes := r.Run(context.Background(), data, combos)

	require.Len(t, outcomes, 3)
	// Input order is preserved regardless of completion order.
	assert.Equal(t, "good-1", outcomes[0].Combo.Name)
	assert.Equal(t, "bad", outcomes[1].Combo.Name)
	assert.Equal(t, "good-2", outcomes[2].Combo.Name)

	assert.NoError(t, outcomes[0].Err)
	assert.NotNil(t, outcomes[0].Result)
	assert.Error(t, outcomes[1].Err)
	assert.Nil(t, outcomes[1].Result)
	assert.NoError(t, outcomes[2].Err)
}

func TestRunCancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	combos := Grid(testConfig(10),
		[]float64{0.04, 0.05, 0.06, 0.08}, []float64{0.20, 0.30, 0.40}, nil)
	r := &Runner{Workers: 1}
	outcomes := r.Run(ctx, testDataset(t, 10), combos)

	require.Len(t, outcomes, len(combos))
	notStarted := 0
	for _, o := range outcomes {
		if o.Err != nil && assert.ErrorIs(t, o.Err, context.Canceled) {
			notStarted++
		}
	}
	assert.Positive(t, notStarted, "cancellation must surface on undispatched combinations")
}

func TestSortByRanksFailuresLast(t *testing.T) {
	t.Parallel()

	outcomes := []Outcome{
		{Combo: Combo{Name: "low"}, Result: &sim.Result{Report: &metrics.Report{Sharpe: 0.4}}},
		{Combo: Combo{Name: "failed"}, Err: assert.AnError},
		{Combo: Combo{Name: "high"}, Result: &sim.Result{Report: &metrics.Report{Sharpe: 1.9}}},
		{Combo: Combo{Name: "mid"}, Result: &sim.Result{Report: &metrics.Report{Sharpe: 1.1}}},
	}

	SortBy(outcomes, BySharpe)

	assert.Equal(t, "high", outcomes[0].Combo.Name)
	assert.Equal(t, "mid", outcomes[1].Combo.Name)
	assert.Equal(t, "low", outcomes[2].Combo.Name)
	assert.Equal(t, "failed", outcomes[3].Combo.Name)
}

func TestRunParallelMatchesSerial(t *testing.T) {
	t.Parallel()

	days := 15
	data := testDataset(t, days)
	combos := Grid(testConfig(days), []float64{0.05, 0.08}, []float64{0.20, 0.30}, nil)

	serial := (&Runner{Workers: 1}).Run(context.Background(), data, combos)
	parallel := (&Runner{Workers: 4}).Run(context.Background(), data, combos)

	require.Len(t, parallel, len(serial))
	for i := range serial {
		require.NoError(t, serial[i].Err)
		require.NoError(t, parallel[i].Err)
		assert.Equal(t, serial[i].Combo.Name, parallel[i].Combo.Name)
		assert.InDelta(t, serial[i].Result.FinalValue, parallel[i].Result.FinalValue, 1e-6)
		assert.InDelta(t, serial[i].Result.Report.TotalReturnPct, parallel[i].Result.Report.TotalReturnPct, 1e-9)
	}
}
