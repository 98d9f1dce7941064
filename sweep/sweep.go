// Package sweep runs the simulation engine over a set of parameter
// combinations. Runs are fully independent: each gets its own engine
// and mutable state, sharing only the read-only dataset. This is the
// only concurrency boundary in the system.
package sweep

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/quantfold/backtest/config"
	"github.com/quantfold/backtest/market"
	"github.com/quantfold/backtest/metrics"
	"github.com/quantfold/backtest/sim"
)

// Combo is one parameter combination to evaluate.
type Combo struct {
	Name   string
	Config *config.Config
}

// Outcome is one combination's result. A failed run carries its error
// here instead of aborting sibling runs.
type Outcome struct {
	Combo  Combo
	Result *sim.Result
	Err    error
}

// Runner executes combinations across a worker pool.
type Runner struct {
	Workers int         // defaults to GOMAXPROCS when <= 0
	Log     *zap.Logger // defaults to zap.NewNop
}

// Run evaluates every combination and returns outcomes in input order.
// Cancelling the context abandons combinations that have not started;
// in-flight runs complete (the core has no mid-run cancellation).
func (r *Runner) Run(ctx context.Context, data *market.Dataset, combos []Combo) []Outcome {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(combos) {
		workers = len(combos)
	}

	outcomes := make([]Outcome, len(combos))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = r.runOne(data, combos[i], log)
			}
		}()
	}

	done := 0
dispatch:
	for i := range combos {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
			done++
		}
	}
	close(jobs)
	wg.Wait()

	// Combinations never dispatched report the cancellation.
	if err := ctx.Err(); err != nil {
		for i := done; i < len(combos); i++ {
			outcomes[i] = Outcome{Combo: combos[i], Err: fmt.Errorf("sweep: not started: %w", err)}
		}
	}

	return outcomes
}

func (r *Runner) runOne(data *market.Dataset, c Combo, log *zap.Logger) Outcome {
	eng, err := sim.New(c.Config, data)
	if err != nil {
		log.Warn("sweep combination rejected", zap.String("combo", c.Name), zap.Error(err))
		return Outcome{Combo: c, Err: err}
	}

	res, err := eng.Run()
	if err != nil {
		log.Warn("sweep combination failed", zap.String("combo", c.Name), zap.Error(err))
		return Outcome{Combo: c, Err: err}
	}

	log.Info("sweep combination done",
		zap.String("combo", c.Name),
		zap.Float64("return_pct", res.Report.TotalReturnPct),
		zap.Float64("sharpe", res.Report.Sharpe),
		zap.Int("trades", res.Report.Trades),
	)
	return Outcome{Combo: c, Result: res}
}

// SortBy orders outcomes by a report metric, descending. Failed runs
// sort last, keeping their relative order.
func SortBy(outcomes []Outcome, key func(*metrics.Report) float64) {
	sort.SliceStable(outcomes, func(i, j int) bool {
		a, b := outcomes[i].Result, outcomes[j].Result
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return key(a.Report) > key(b.Report)
	})
}

// BySharpe is the default ranking key.
func BySharpe(r *metrics.Report) float64 { return r.Sharpe }

// Grid expands stop-loss, take-profit and sizing-method axes against a
// base config into named combinations.
func Grid(base *config.Config, stops, takes []float64, methods []string) []Combo {
	if len(stops) == 0 {
		stops = []float64{base.StopLossPct}
	}
	if len(takes) == 0 {
		takes = []float64{base.TakeProfitPct}
	}
	if len(methods) == 0 {
		methods = []string{base.SizingMethod}
	}

	var combos []Combo
	for _, m := range methods {
		for _, s := range stops {
			for _, t := range takes {
				cfg := base.Clone()
				cfg.SizingMethod = m
				cfg.StopLossPct = s
				cfg.TakeProfitPct = t
				combos = append(combos, Combo{
					Name:   fmt.Sprintf("%s/stop=%.2f/take=%.2f", m, s, t),
					Config: cfg,
				})
			}
		}
	}
	return combos
}
